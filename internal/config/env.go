package config

import (
	"strconv"
	"strings"
)

// Environment variables read by ApplyEnv.
const (
	EnvHeadRef        = "GITHUB_HEAD_REF"
	EnvRef            = "GITHUB_REF"
	EnvRepository     = "GITHUB_REPOSITORY"
	EnvEventPath      = "GITHUB_EVENT_PATH"
	EnvAPIURL         = "GITHUB_API_URL"
	EnvToken          = "GITHUB_TOKEN"
	EnvPullRequest    = "DRAFTS_PR_NUMBER"
	EnvBaseURL        = "DRAFTS_BASE_URL"
	EnvBucket         = "DRAFTS_BUCKET"
	EnvDistributionID = "DRAFTS_DISTRIBUTION_ID"
	EnvRoot           = "DRAFTS_ROOT"
	EnvNATSURL        = "DRAFTS_NATS_URL"
	EnvPushgateway    = "DRAFTS_PUSHGATEWAY_URL"
	EnvLogLevel       = "DOCDRAFT_LOG_LEVEL"
	EnvAccessKeyID    = "AWS_ACCESS_KEY_ID"
	EnvSecretKey      = "AWS_SECRET_ACCESS_KEY"
	EnvRegion         = "AWS_REGION"
	EnvDefaultRegion  = "AWS_DEFAULT_REGION"
)

// ApplyEnv overlays non-empty environment values onto cfg.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&cfg.GitHub.Repository, EnvRepository)
	set(&cfg.GitHub.EventPath, EnvEventPath)
	set(&cfg.GitHub.APIURL, EnvAPIURL)
	set(&cfg.GitHub.Token, EnvToken)
	set(&cfg.Drafts.BaseURL, EnvBaseURL)
	set(&cfg.Drafts.Root, EnvRoot)
	set(&cfg.Storage.Bucket, EnvBucket)
	set(&cfg.Storage.AccessKeyID, EnvAccessKeyID)
	set(&cfg.Storage.SecretAccessKey, EnvSecretKey)
	set(&cfg.Storage.Region, EnvRegion, EnvDefaultRegion)
	set(&cfg.CDN.DistributionID, EnvDistributionID)
	set(&cfg.Notify.NATSURL, EnvNATSURL)
	set(&cfg.Metrics.PushgatewayURL, EnvPushgateway)

	if v := getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = LogLevel(v)
	}
	if v := getenv(EnvPullRequest); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.GitHub.PullRequest = n
		}
	}
}

// RefFromEnv returns the branch reference supplied by the CI, preferring the
// pull-request head over the workflow ref.
func RefFromEnv(getenv func(string) string) string {
	if v := strings.TrimSpace(getenv(EnvHeadRef)); v != "" {
		return v
	}
	return strings.TrimSpace(getenv(EnvRef))
}
