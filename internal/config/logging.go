package config

import (
	"log/slog"

	"git.home.luguber.info/inful/docdraft/internal/foundation/normalization"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer("log level", map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

// Slog maps the level onto slog.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewNormalizer("log format", map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// SyncMode selects how the synchronizer compares objects.
type SyncMode string

const (
	SyncModeAuto        SyncMode = "auto" // derived from the asset diff
	SyncModeFull        SyncMode = "full"
	SyncModeIncremental SyncMode = "incremental"
)

var syncModeNormalizer = normalization.NewNormalizer("sync mode", map[string]SyncMode{
	"auto":        SyncModeAuto,
	"full":        SyncModeFull,
	"incremental": SyncModeIncremental,
	"size-only":   SyncModeIncremental,
}, SyncModeAuto)

// ParseSyncMode accepts the same spellings as sync.mode in the config file.
func ParseSyncMode(raw string) (SyncMode, error) {
	m, err := syncModeNormalizer.Normalize(raw)
	if err != nil {
		return "", configErr(err, "sync.mode")
	}
	return m, nil
}
