package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Transfer operations counted by AddTransfers.
const (
	OpUpload = "upload"
	OpDelete = "delete"
	OpReap   = "reap"
)

// Recorder defines observability hooks for publish runs.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncPublishOutcome(outcome string) // outcome: published|build_failed|failed|refused
	AddTransfers(op string, n int)
	SetLastPublish(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncPublishOutcome(string)                   {}
func (NoopRecorder) AddTransfers(string, int)                   {}
func (NoopRecorder) SetLastPublish(time.Time)                   {}
