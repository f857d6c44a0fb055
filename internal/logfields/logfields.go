package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyRef        = "ref"
	KeyDraft      = "draft"
	KeyBucket     = "bucket"
	KeyKey        = "key"
	KeyPrefix     = "prefix"
	KeyMode       = "mode"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyRepo       = "repository"
	KeyPR         = "pull_request"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr     { return slog.String(KeyRunID, id) }
func Ref(r string) slog.Attr        { return slog.String(KeyRef, r) }
func Draft(d string) slog.Attr      { return slog.String(KeyDraft, d) }
func Bucket(b string) slog.Attr     { return slog.String(KeyBucket, b) }
func Key(k string) slog.Attr        { return slog.String(KeyKey, k) }
func Prefix(p string) slog.Attr     { return slog.String(KeyPrefix, p) }
func Mode(m string) slog.Attr       { return slog.String(KeyMode, m) }
func Stage(name string) slog.Attr   { return slog.String(KeyStage, name) }
func Repository(r string) slog.Attr { return slog.String(KeyRepo, r) }
func PullRequest(n int) slog.Attr   { return slog.Int(KeyPR, n) }
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr        { return slog.String(KeyURL, u) }
func Count(n int) slog.Attr         { return slog.Int(KeyCount, n) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
