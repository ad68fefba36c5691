package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "TESTNETOOR"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultGitHubAPIURL is the GitHub REST API base URL.
	DefaultGitHubAPIURL = "https://api.github.com"

	// DefaultWorkflowOwner owns the repository holding the testnet workflows.
	DefaultWorkflowOwner = "maidsafe"

	// DefaultWorkflowRepo is the repository holding the testnet workflows.
	DefaultWorkflowRepo = "sn-testnet-workflows"

	// DefaultBranch is the ref workflows are dispatched on.
	DefaultBranch = "main"

	// DefaultReleaseOwner owns the repository release notes are built from.
	DefaultReleaseOwner = "maidsafe"

	// DefaultReleaseRepo is the repository release notes are built from.
	DefaultReleaseRepo = "autonomi"

	// DefaultLinearAPIURL is the Linear GraphQL endpoint.
	DefaultLinearAPIURL = "https://api.linear.app/graphql"

	// DefaultDatabaseDriver is the default store driver.
	DefaultDatabaseDriver = "sqlite"

	// DefaultInitialDelay is how long to wait after a dispatch before
	// looking for the created run.
	DefaultInitialDelay = "5s"

	// DefaultPollInterval is the delay between run list polls.
	DefaultPollInterval = "3s"

	// DefaultPollAttempts bounds the number of run list polls.
	DefaultPollAttempts = 5

	// DefaultClockSkew is subtracted from the dispatch time when matching
	// runs, to tolerate drift between the local and GitHub clocks.
	DefaultClockSkew = "30s"

	// DefaultCompletionTimeout bounds --wait.
	DefaultCompletionTimeout = "2h"

	// DefaultAPIListen is the listen address of the read-only API.
	DefaultAPIListen = ":8080"
)

// DefaultWorkflowIDs maps workflow kinds to their GitHub Actions workflow ids.
var DefaultWorkflowIDs = map[string]int64{
	"bootstrap-network": 117603859,
	"deposit-funds":     125539747,
	"destroy-network":   63357826,
	"drain-funds":       125539717,
	"kill-droplets":     128317470,
	"launch-clients":    150941453,
	"launch-network":    58844793,
	"network-status":    109064529,
	"reset-to-n-nodes":  147671395,
	"start-nodes":       109583089,
	"start-telegraf":    113666375,
	"stop-nodes":        126035983,
	"stop-telegraf":     109718824,
	"update-peer":       127823614,
	"upgrade-antctl":    134899834,
	"upgrade-network":   109064531,
	"upgrade-uploaders": 118769505,
	"upscale-network":   105092652,
}

// Config is the root configuration for testnetoor.
type Config struct {
	Global   GlobalConfig   `yaml:"global" mapstructure:"global"`
	GitHub   GitHubConfig   `yaml:"github" mapstructure:"github"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Release  ReleaseConfig  `yaml:"release" mapstructure:"release"`
	Linear   LinearConfig   `yaml:"linear" mapstructure:"linear"`
	Slack    SlackConfig    `yaml:"slack" mapstructure:"slack"`
	Archive  ArchiveConfig  `yaml:"archive" mapstructure:"archive"`
	API      APIConfig      `yaml:"api" mapstructure:"api"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// GitHubConfig describes where workflows live and how they are dispatched.
type GitHubConfig struct {
	APIURL        string           `yaml:"api_url" mapstructure:"api_url"`
	Owner         string           `yaml:"owner" mapstructure:"owner"`
	Repo          string           `yaml:"repo" mapstructure:"repo"`
	Token         string           `yaml:"token,omitempty" mapstructure:"token"`
	DefaultBranch string           `yaml:"default_branch" mapstructure:"default_branch"`
	Dispatch      DispatchConfig   `yaml:"dispatch" mapstructure:"dispatch"`
	Workflows     map[string]int64 `yaml:"workflows,omitempty" mapstructure:"workflows"`
}

// DispatchConfig controls run id resolution after a dispatch.
type DispatchConfig struct {
	InitialDelay      string `yaml:"initial_delay" mapstructure:"initial_delay"`
	PollInterval      string `yaml:"poll_interval" mapstructure:"poll_interval"`
	PollAttempts      int    `yaml:"poll_attempts" mapstructure:"poll_attempts"`
	ClockSkew         string `yaml:"clock_skew" mapstructure:"clock_skew"`
	CompletionTimeout string `yaml:"completion_timeout" mapstructure:"completion_timeout"`
}

// DispatchTiming is the parsed form of DispatchConfig.
type DispatchTiming struct {
	InitialDelay      time.Duration
	PollInterval      time.Duration
	PollAttempts      int
	ClockSkew         time.Duration
	CompletionTimeout time.Duration
}

// ReleaseConfig points at the repository release notes are built from.
type ReleaseConfig struct {
	Owner string `yaml:"owner" mapstructure:"owner"`
	Repo  string `yaml:"repo" mapstructure:"repo"`
	Token string `yaml:"token,omitempty" mapstructure:"token"`
}

// LinearConfig configures the Linear GraphQL client. APIKeyEnv maps a team
// name to the environment variable holding that team's API key.
type LinearConfig struct {
	APIURL    string            `yaml:"api_url" mapstructure:"api_url"`
	APIKeyEnv map[string]string `yaml:"api_key_env,omitempty" mapstructure:"api_key_env"`
}

// SlackConfig configures the incoming webhook reports are posted to.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url,omitempty" mapstructure:"webhook_url"`
}

// ArchiveConfig configures where comparison reports are archived.
type ArchiveConfig struct {
	S3 *S3ArchiveConfig `yaml:"s3,omitempty" mapstructure:"s3"`
}

// S3ArchiveConfig contains S3 settings for report archiving.
type S3ArchiveConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

// Load reads the configuration file at path (optional) and applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := bindSecretEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// setDefaults registers every known key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("global.log_level", DefaultLogLevel)

	v.SetDefault("github.api_url", DefaultGitHubAPIURL)
	v.SetDefault("github.owner", DefaultWorkflowOwner)
	v.SetDefault("github.repo", DefaultWorkflowRepo)
	v.SetDefault("github.default_branch", DefaultBranch)
	v.SetDefault("github.dispatch.initial_delay", DefaultInitialDelay)
	v.SetDefault("github.dispatch.poll_interval", DefaultPollInterval)
	v.SetDefault("github.dispatch.poll_attempts", DefaultPollAttempts)
	v.SetDefault("github.dispatch.clock_skew", DefaultClockSkew)
	v.SetDefault("github.dispatch.completion_timeout", DefaultCompletionTimeout)

	v.SetDefault("database.driver", DefaultDatabaseDriver)
	v.SetDefault("database.sqlite.path", "")

	v.SetDefault("release.owner", DefaultReleaseOwner)
	v.SetDefault("release.repo", DefaultReleaseRepo)

	v.SetDefault("linear.api_url", DefaultLinearAPIURL)

	v.SetDefault("api.server.listen", DefaultAPIListen)
}

// bindSecretEnv binds secrets to both the prefixed variable and the
// conventional name used by the workflows repository.
func bindSecretEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"github.token":      {EnvPrefix + "_GITHUB_TOKEN", "WORKFLOW_RUNNER_PAT"},
		"release.token":     {EnvPrefix + "_RELEASE_TOKEN", "RELEASE_GITHUB_TOKEN"},
		"slack.webhook_url": {EnvPrefix + "_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL"},
	}

	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	return nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.GitHub.DefaultBranch == "" {
		c.GitHub.DefaultBranch = DefaultBranch
	}

	if c.GitHub.Dispatch.PollAttempts <= 0 {
		c.GitHub.Dispatch.PollAttempts = DefaultPollAttempts
	}

	// Configured ids override the built-in table one kind at a time.
	ids := make(map[string]int64, len(DefaultWorkflowIDs))
	for kind, id := range DefaultWorkflowIDs {
		ids[kind] = id
	}

	for kind, id := range c.GitHub.Workflows {
		ids[kind] = id
	}

	c.GitHub.Workflows = ids

	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDatabaseDriver
	}

	if c.Database.Driver == "sqlite" && c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = filepath.Join(DefaultDataDir(), "testnetoor.db")
	}

	if len(c.Linear.APIKeyEnv) == 0 {
		c.Linear.APIKeyEnv = map[string]string{"engineering": "LINEAR_API_KEY"}
	}

	if c.API.Server.Listen == "" {
		c.API.Server.Listen = DefaultAPIListen
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		return errors.New("github.owner and github.repo are required")
	}

	if _, err := c.GitHub.Dispatch.Timing(); err != nil {
		return fmt.Errorf("github.dispatch: %w", err)
	}

	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if s3 := c.Archive.S3; s3 != nil && s3.Enabled && s3.Bucket == "" {
		return errors.New("archive.s3.bucket is required when archiving is enabled")
	}

	return nil
}

// WorkflowID returns the configured workflow id for a kind.
func (c *GitHubConfig) WorkflowID(kind string) (int64, error) {
	id, ok := c.Workflows[kind]
	if !ok || id == 0 {
		return 0, fmt.Errorf("no workflow id configured for %q", kind)
	}

	return id, nil
}

// Timing parses the dispatch durations.
func (d DispatchConfig) Timing() (DispatchTiming, error) {
	timing := DispatchTiming{PollAttempts: d.PollAttempts}

	fields := []struct {
		name  string
		value string
		def   string
		dst   *time.Duration
	}{
		{"initial_delay", d.InitialDelay, DefaultInitialDelay, &timing.InitialDelay},
		{"poll_interval", d.PollInterval, DefaultPollInterval, &timing.PollInterval},
		{"clock_skew", d.ClockSkew, DefaultClockSkew, &timing.ClockSkew},
		{"completion_timeout", d.CompletionTimeout, DefaultCompletionTimeout, &timing.CompletionTimeout},
	}

	for _, f := range fields {
		value := f.value
		if value == "" {
			value = f.def
		}

		parsed, err := time.ParseDuration(value)
		if err != nil {
			return DispatchTiming{}, fmt.Errorf("parsing %s: %w", f.name, err)
		}

		*f.dst = parsed
	}

	if timing.PollAttempts <= 0 {
		timing.PollAttempts = DefaultPollAttempts
	}

	return timing, nil
}

// DefaultDataDir returns the per-user data directory for the local store.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "testnetoor")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".testnetoor"
	}

	return filepath.Join(home, ".local", "share", "testnetoor")
}

// APIKey returns the Linear API key of a team, read from the environment
// variable the team is mapped to.
func (c *LinearConfig) APIKey(team string) (string, error) {
	envName := ""

	for name, env := range c.APIKeyEnv {
		if strings.EqualFold(name, team) {
			envName = env

			break
		}
	}

	if envName == "" {
		return "", fmt.Errorf("no linear api key configured for team %q", team)
	}

	key := os.Getenv(envName)
	if key == "" {
		return "", fmt.Errorf("linear api key for team %q is not set (%s)", team, envName)
	}

	return key, nil
}
