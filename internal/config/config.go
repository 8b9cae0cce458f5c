// Package config loads pipeline orchestrator configuration via viper.
// Configuration comes from an optional YAML file plus PIPEWRIGHT_*
// environment overrides; defaults are registered with SetDefaults.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GateMode selects how an approval gate behaves for a phase.
// "auto" bypasses the gate entirely; "manual" suspends the run until a
// human decision arrives.
const (
	GateAuto   = "auto"
	GateManual = "manual"
)

// Config represents the complete orchestrator configuration.
type Config struct {
	Gates   GatesConfig   `mapstructure:"gates"`
	Merge   MergeConfig   `mapstructure:"merge"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Repair  RepairConfig  `mapstructure:"repair"`
	Logging LoggingConfig `mapstructure:"logging"`
	Paths   PathsConfig   `mapstructure:"paths"`
}

// GatesConfig controls which phases suspend for human approval.
// Each value is "auto" or "manual".
type GatesConfig struct {
	Requirements string `mapstructure:"requirements"`
	Plan         string `mapstructure:"plan"`
	Merge        string `mapstructure:"merge"`
}

// MergeConfig selects the merge strategy for completed runs.
type MergeConfig struct {
	// Push pushes the feature branch to the remote after committing.
	Push bool `mapstructure:"push"`
	// OpenPR opens a pull request for the feature branch (implies Push upstream).
	OpenPR bool `mapstructure:"open_pr"`
	// AllowMerge lands the merge automatically once the merge gate passes.
	AllowMerge bool `mapstructure:"allow_merge"`
	// BaseBranch is the branch merges land on (default: "main").
	BaseBranch string `mapstructure:"base_branch"`
}

// AgentConfig controls how the external coding agent is invoked.
type AgentConfig struct {
	// Command is the agent executable (default: "claude").
	Command string `mapstructure:"command"`
	// MaxTurns caps agent interaction turns per producer invocation (0 = agent default).
	MaxTurns int `mapstructure:"max_turns"`
	// RepairMaxTurns caps turns for narrow repair invocations.
	RepairMaxTurns int `mapstructure:"repair_max_turns"`
	// CIWatchTimeoutMinutes bounds how long merge steps watch CI checks.
	CIWatchTimeoutMinutes int `mapstructure:"ci_watch_timeout_minutes"`
}

// RepairConfig controls the automatic artifact repair loop.
type RepairConfig struct {
	// MaxAttempts is the number of repair attempts before a validation
	// failure becomes fatal (default: 3).
	MaxAttempts int `mapstructure:"max_attempts"`
}

// LoggingConfig controls structured run logging.
type LoggingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"`
}

// PathsConfig controls where run data lives.
type PathsConfig struct {
	// RunDir is the root directory for run artifacts, checkpoints, and logs
	// (default: ".pipewright").
	RunDir string `mapstructure:"run_dir"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Gates: GatesConfig{
			Requirements: GateManual,
			Plan:         GateManual,
			Merge:        GateManual,
		},
		Merge: MergeConfig{
			Push:       false,
			OpenPR:     false,
			AllowMerge: false,
			BaseBranch: "main",
		},
		Agent: AgentConfig{
			Command:               "claude",
			MaxTurns:              0,
			RepairMaxTurns:        5,
			CIWatchTimeoutMinutes: 20,
		},
		Repair: RepairConfig{
			MaxAttempts: 3,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		Paths: PathsConfig{
			RunDir: ".pipewright",
		},
	}
}

// CIWatchTimeout returns the CI watch timeout as a time.Duration.
func (c *AgentConfig) CIWatchTimeout() time.Duration {
	return time.Duration(c.CIWatchTimeoutMinutes) * time.Minute
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("gates.requirements", defaults.Gates.Requirements)
	viper.SetDefault("gates.plan", defaults.Gates.Plan)
	viper.SetDefault("gates.merge", defaults.Gates.Merge)

	viper.SetDefault("merge.push", defaults.Merge.Push)
	viper.SetDefault("merge.open_pr", defaults.Merge.OpenPR)
	viper.SetDefault("merge.allow_merge", defaults.Merge.AllowMerge)
	viper.SetDefault("merge.base_branch", defaults.Merge.BaseBranch)

	viper.SetDefault("agent.command", defaults.Agent.Command)
	viper.SetDefault("agent.max_turns", defaults.Agent.MaxTurns)
	viper.SetDefault("agent.repair_max_turns", defaults.Agent.RepairMaxTurns)
	viper.SetDefault("agent.ci_watch_timeout_minutes", defaults.Agent.CIWatchTimeoutMinutes)

	viper.SetDefault("repair.max_attempts", defaults.Repair.MaxAttempts)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	viper.SetDefault("paths.run_dir", defaults.Paths.RunDir)
}

// Load reads the configuration from viper into a Config struct and
// validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Init configures viper to read the config file and environment, then
// loads and validates the configuration. The config file is optional.
func Init() (*Config, error) {
	SetDefaults()

	viper.SetConfigName("pipewright")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(ConfigDir())

	viper.SetEnvPrefix("PIPEWRIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return Load()
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pipewright")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pipewright"
	}
	return filepath.Join(home, ".config", "pipewright")
}

// ValidGateModes returns the list of valid gate mode values.
func ValidGateModes() []string {
	return []string{GateAuto, GateManual}
}
