package config

import (
	"net/url"
	"strings"

	"git.home.luguber.info/inful/docdraft/internal/foundation"
	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
)

// Validate checks settings every command relies on.
func (c *Config) Validate() error {
	var vr foundation.ValidationResult
	c.validateCommon(&vr)
	return vr.ToError()
}

// ValidatePublish additionally checks what a publish run needs.
func (c *Config) ValidatePublish() error {
	var vr foundation.ValidationResult
	c.validateCommon(&vr)

	vr.Require("drafts.base_url", c.Drafts.BaseURL)
	if c.Drafts.BaseURL != "" {
		if u, err := url.Parse(c.Drafts.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			vr.Add("drafts.base_url", "url", "must be an absolute URL")
		}
	}
	if !c.CDN.Skip {
		vr.Require("cdn.distribution_id", c.CDN.DistributionID)
	}
	if c.GitHub.Comment {
		vr.Require("github.token", c.GitHub.Token)
		vr.Require("github.repository", c.GitHub.Repository)
	}
	vr.Require("build.command", c.Build.Command)
	return vr.ToError()
}

func (c *Config) validateCommon(vr *foundation.ValidationResult) {
	vr.Require("drafts.root", c.Drafts.Root)
	if strings.Contains(c.Drafts.Root, "/") || strings.ContainsAny(c.Drafts.Root, "*?") {
		vr.Add("drafts.root", "segment", "must be a single path segment")
	}
	if strings.Contains(c.Drafts.AssetsDir, "..") || strings.HasPrefix(c.Drafts.AssetsDir, "/") {
		vr.Add("drafts.assets_dir", "relative", "must be a relative path inside the draft")
	}
	vr.Require("storage.bucket", c.Storage.Bucket)
	foundation.OneOf(vr, "sync.mode", c.Sync.Mode, SyncModeAuto, SyncModeFull, SyncModeIncremental)
	foundation.OneOf(vr, "logging.format", c.Logging.Format, LogFormatText, LogFormatJSON)
	if c.Reaper.TTL < 0 || c.Reaper.Every < 0 {
		vr.Add("reaper", "duration", "durations must not be negative")
	}
	if c.GitHub.Repository != "" {
		owner, name, ok := strings.Cut(c.GitHub.Repository, "/")
		if !ok || owner == "" || name == "" {
			vr.Add("github.repository", "format", "must be owner/name")
		}
	}
}

func configErr(err error, field string) error {
	return errors.WrapError(err, errors.CategoryConfig, "invalid configuration value").
		WithContext("field", field).Build()
}
