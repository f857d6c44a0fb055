// Package config loads docdraft settings from a YAML file, a .env file and the
// CI environment, in increasing order of precedence.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
)

// CurrentVersion is the configuration schema version written by Init.
const CurrentVersion = "1"

// Config is the complete docdraft configuration.
type Config struct {
	Version string        `yaml:"version"`
	Drafts  DraftsConfig  `yaml:"drafts"`
	Storage StorageConfig `yaml:"storage"`
	CDN     CDNConfig     `yaml:"cdn"`
	Build   BuildConfig   `yaml:"build"`
	Sync    SyncConfig    `yaml:"sync"`
	GitHub  GitHubConfig  `yaml:"github"`
	Reaper  ReaperConfig  `yaml:"reaper"`
	History HistoryConfig `yaml:"history"`
	Notify  NotifyConfig  `yaml:"notify"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// DraftsConfig describes where drafts live and how they are reached.
type DraftsConfig struct {
	Root      string `yaml:"root"`       // key prefix shared by all drafts
	BaseURL   string `yaml:"base_url"`   // public origin serving the bucket
	AssetsDir string `yaml:"assets_dir"` // asset subdirectory inside a draft
}

// StorageConfig selects the bucket drafts are written to.
type StorageConfig struct {
	Bucket          string `yaml:"bucket"` // s3://name, file:///path, mem://name or a bare S3 bucket name
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// CDNConfig configures cache invalidation.
type CDNConfig struct {
	DistributionID string   `yaml:"distribution_id"`
	WaitTimeout    Duration `yaml:"wait_timeout"`
	Skip           bool     `yaml:"skip"`
}

// BuildConfig configures the site generator.
type BuildConfig struct {
	Command   string `yaml:"command"`
	Dir       string `yaml:"dir"`        // directory the command runs in
	Output    string `yaml:"output"`     // generator output, relative to Dir
	LogFile   string `yaml:"log_file"`   // combined build output
	TailLines int    `yaml:"tail_lines"` // lines quoted in a failure comment
	Skip      bool   `yaml:"skip"`       // publish an existing Output without building
}

// SyncConfig tunes synchronization.
type SyncConfig struct {
	Mode       SyncMode `yaml:"mode"`
	StagingDir string   `yaml:"staging_dir"`
}

// GitHubConfig configures pull-request reporting.
type GitHubConfig struct {
	Token       string `yaml:"token"`
	APIURL      string `yaml:"api_url"`
	Repository  string `yaml:"repository"` // owner/name
	EventPath   string `yaml:"event_path"`
	PullRequest int    `yaml:"pull_request"`
	Comment     bool   `yaml:"comment"`
}

// ReaperConfig configures stale-draft cleanup.
type ReaperConfig struct {
	TTL    Duration `yaml:"ttl"`
	Every  Duration `yaml:"every"`
	DryRun bool     `yaml:"dry_run"`
}

// HistoryConfig configures the local run ledger.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig configures publish notifications.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Duration is a time.Duration that unmarshals from strings such as "72h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Value == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid duration").
			WithContext("value", value.Value).WithContext("line", value.Line).Build()
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads configPath (optional), applies .env, environment overrides and
// defaults, and normalizes the result. Callers validate with Validate or
// ValidatePublish once CLI flags have been applied.
func Load(configPath string) (*Config, error) {
	return LoadWithEnv(configPath, os.Getenv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(configPath string, getenv func(string) string) (*Config, error) {
	// Missing .env files are normal in CI.
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.ConfigError("configuration file not found").
					WithContext("path", configPath).Build()
			}
			return nil, errors.WrapError(err, errors.CategoryConfig, "read configuration file").Build()
		}
		expanded := os.Expand(string(data), getenv)
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "parse configuration file").
				WithContext("path", configPath).Build()
		}
		if cfg.Version != "" && cfg.Version != CurrentVersion {
			return nil, errors.ConfigError("unsupported configuration version").
				WithContext("version", cfg.Version).WithContext("expected", CurrentVersion).Build()
		}
	}

	ApplyEnv(cfg, getenv)
	if err := ApplyDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).Build()
	}
	example := Example()
	data, err := yaml.Marshal(example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal example configuration").Build()
	}
	header := "# docdraft configuration. Values support ${VAR} expansion;\n" +
		"# CI environment variables override them.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write configuration file").
			WithContext("path", configPath).Build()
	}
	return nil
}

// Example returns the configuration written by Init.
func Example() *Config {
	cfg := &Config{
		Version: CurrentVersion,
		Drafts:  DraftsConfig{BaseURL: "https://drafts.example.com"},
		Storage: StorageConfig{Bucket: "${DRAFTS_BUCKET}", Region: "us-east-1"},
		CDN:     CDNConfig{DistributionID: "${DRAFTS_DISTRIBUTION_ID}"},
		Build:   BuildConfig{Dir: "docs"},
		GitHub:  GitHubConfig{Token: "${GITHUB_TOKEN}"},
	}
	_ = ApplyDefaults(cfg)
	return cfg
}
