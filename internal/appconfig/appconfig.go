// Package appconfig loads the optional top-level ~/.cron-burgundy/config.toml:
// state directory override, log rotation sizes, history DSN, and metrics
// push URL. Grounded on internal/config.Config's discriminated-section
// pattern (LogConfig/HistoryConfig/MetricsConfig), narrowed to this
// program's single-host, no-daemon scope.
package appconfig

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the decoded contents of config.toml. Every field is optional;
// zero values mean "use the built-in default".
type Config struct {
	StateDir string `mapstructure:"state_dir"`
	Log LogConfig `mapstructure:"log"`
	HistoryDSN string `mapstructure:"history_dsn"`
	MetricsPushURL string `mapstructure:"metrics_push_url"`
	MetricsPushJob string `mapstructure:"metrics_push_job"`
}

// LogConfig mirrors rlog's rotation settings, narrowed to the two
// knobs this program's per-job and runner logs actually use.
type LogConfig struct {
	MaxSizeMB int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
}

// DefaultStateDir returns "$HOME/.cron-burgundy", the persisted-state
// layout root. HOME is the only environment variable this program
// reads.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cron-burgundy")
}

// DefaultConfigPath returns "$HOME/.cron-burgundy/config.toml".
func DefaultConfigPath() string {
	return filepath.Join(DefaultStateDir(), "config.toml")
}

// Load reads path if it exists; a missing file yields an all-defaults
// Config rather than an error, since the file is documented as optional.
func Load(path string) (Config, error) {
	cfg := Config{
		StateDir: DefaultStateDir(),
		Log: LogConfig{MaxSizeMB: 20, MaxBackups: 2},
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir()
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 20
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 2
	}
	return cfg, nil
}
