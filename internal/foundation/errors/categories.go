package errors

import (
	"log/slog"
	"slices"
)

// ErrorCategory groups failures by the system that produced them.
type ErrorCategory string

const (
	// Input problems, reported before anything remote is touched.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryAuth       ErrorCategory = "auth"

	// Remote systems: the drafts bucket, the CDN and the pull request forge.
	CategoryStorage ErrorCategory = "storage"
	CategoryCDN     ErrorCategory = "cdn"
	CategoryForge   ErrorCategory = "forge"

	// Local work: the site generator and the staging tree.
	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"

	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ExitCode is the process exit status used when a command fails with c.
func (c ErrorCategory) ExitCode() int {
	switch c {
	case CategoryValidation:
		return 2
	case CategoryAuth:
		return 5
	case CategoryConfig:
		return 7
	case CategoryStorage, CategoryCDN, CategoryForge:
		return 8
	case CategoryInternal:
		return 10
	case CategoryBuild, CategoryFileSystem:
		return 11
	case CategoryRuntime:
		return 12
	default:
		return 1
	}
}

// ErrorSeverity is how much of the run an error takes down.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // run aborted
	SeverityError   ErrorSeverity = "error"   // step failed
	SeverityWarning ErrorSeverity = "warning" // run continued without the step
)

// Level maps the severity onto a slog level.
func (s ErrorSeverity) Level() slog.Level {
	if s == SeverityWarning {
		return slog.LevelWarn
	}
	return slog.LevelError
}

// RetryStrategy tells the operator how a failure gets repaired. Nothing in
// docdraft retries by itself.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryRerun      RetryStrategy = "rerun" // the next push republishes the draft
	RetryUserAction RetryStrategy = "user"
)

// ErrorContext is structured detail attached to an error.
type ErrorContext map[string]any

// Set stores key, allocating the map when needed.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = make(ErrorContext)
	}
	c[key] = value
	return c
}

// Attrs returns the context as slog attributes sorted by key.
func (c ErrorContext) Attrs() []slog.Attr {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, c[k]))
	}
	return attrs
}
