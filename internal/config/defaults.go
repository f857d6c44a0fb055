package config

import (
	"path/filepath"
	"time"
)

// Defaults for a freshly loaded configuration.
const (
	DefaultRoot        = "langflow-drafts"
	DefaultAssetsDir   = "assets"
	DefaultCommand     = "npm run build"
	DefaultOutput      = "build"
	DefaultLogFile     = "docdraft-build.log"
	DefaultStagingName = ".docdraft-staging"
	DefaultTailLines   = 50
	DefaultWaitTimeout = 30 * time.Minute
	DefaultReaperTTL   = 30 * 24 * time.Hour
	DefaultSubject     = "docdraft.published"
	DefaultMetricsJob  = "docdraft"
)

// ApplyDefaults fills unset fields and normalizes enumerations.
func ApplyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Drafts.Root == "" {
		cfg.Drafts.Root = DefaultRoot
	}
	if cfg.Drafts.AssetsDir == "" {
		cfg.Drafts.AssetsDir = DefaultAssetsDir
	}
	if cfg.Build.Command == "" {
		cfg.Build.Command = DefaultCommand
	}
	if cfg.Build.Dir == "" {
		cfg.Build.Dir = "."
	}
	if cfg.Build.Output == "" {
		cfg.Build.Output = DefaultOutput
	}
	if cfg.Build.LogFile == "" {
		cfg.Build.LogFile = DefaultLogFile
	}
	if cfg.Build.TailLines <= 0 {
		cfg.Build.TailLines = DefaultTailLines
	}
	if cfg.Sync.StagingDir == "" {
		cfg.Sync.StagingDir = filepath.Join(cfg.Build.Dir, DefaultStagingName)
	}
	if cfg.CDN.WaitTimeout <= 0 {
		cfg.CDN.WaitTimeout = Duration(DefaultWaitTimeout)
	}
	if cfg.Reaper.TTL <= 0 {
		cfg.Reaper.TTL = Duration(DefaultReaperTTL)
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultSubject
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = DefaultMetricsJob
	}

	var err error
	if cfg.Logging.Level, err = logLevelNormalizer.Normalize(string(cfg.Logging.Level)); err != nil {
		return configErr(err, "logging.level")
	}
	if cfg.Logging.Format, err = logFormatNormalizer.Normalize(string(cfg.Logging.Format)); err != nil {
		return configErr(err, "logging.format")
	}
	if cfg.Sync.Mode, err = syncModeNormalizer.Normalize(string(cfg.Sync.Mode)); err != nil {
		return configErr(err, "sync.mode")
	}
	return nil
}

// BuildOutputDir is the generator output resolved against the build directory.
func (c *Config) BuildOutputDir() string {
	if filepath.IsAbs(c.Build.Output) {
		return c.Build.Output
	}
	return filepath.Join(c.Build.Dir, c.Build.Output)
}

// BuildLogPath is the build log resolved against the build directory.
func (c *Config) BuildLogPath() string {
	if filepath.IsAbs(c.Build.LogFile) {
		return c.Build.LogFile
	}
	return filepath.Join(c.Build.Dir, c.Build.LogFile)
}
