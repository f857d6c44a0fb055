// Package metrics records publish-run metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	rec := metrics.NewPrometheusRecorder(reg)
//	p := pipeline.New(deps).WithRecorder(rec)
//
// A CLI run is too short-lived to be scraped, so PrometheusRecorder's registry
// is pushed to a Pushgateway at the end of the run when one is configured.
package metrics
