// Package config loads daemon configuration from a YAML file and
// NOTEBRIDGE_* environment variables, environment taking precedence.
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

type Config struct {
	// SessionsDir is the root of the upstream session store.
	SessionsDir string `mapstructure:"sessions_dir"`
	// DataDir holds the daemon's durable state, including the default
	// file queue.
	DataDir string `mapstructure:"data_dir"`
	// QueueDSN selects the queue backend. Empty means a file queue under
	// DataDir.
	QueueDSN string `mapstructure:"queue_dsn"`

	SinkURL   string `mapstructure:"sink_url"`
	SinkToken string `mapstructure:"sink_token"`

	ListenAddr string `mapstructure:"listen_addr"`
	APIToken   string `mapstructure:"api_token"`

	FlushInterval time.Duration `mapstructure:"flush_interval"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	SyncDebounce  time.Duration `mapstructure:"sync_debounce"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
	SplitLimit    int           `mapstructure:"split_limit"`

	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NOTEBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("notebridge")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "notebridge"))
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("sessions_dir", filepath.Join(home, ".agent", "projects"))
	v.SetDefault("data_dir", filepath.Join(home, ".local", "share", "notebridge"))
	v.SetDefault("queue_dsn", "")
	v.SetDefault("sink_url", "http://127.0.0.1:8080")
	v.SetDefault("sink_token", "")
	v.SetDefault("listen_addr", "127.0.0.1:7171")
	v.SetDefault("api_token", "")
	v.SetDefault("flush_interval", 5*time.Second)
	v.SetDefault("poll_interval", 30*time.Second)
	v.SetDefault("sync_debounce", 30*time.Second)
	v.SetDefault("watch_debounce", 2*time.Second)
	v.SetDefault("split_limit", 100*1024)
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
}

func (c Config) validate() error {
	if strings.TrimSpace(c.SessionsDir) == "" {
		return fmt.Errorf("sessions_dir is required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}
	if strings.TrimSpace(c.SinkURL) == "" {
		return fmt.Errorf("sink_url is required")
	}
	if c.FlushInterval < 0 || c.PollInterval < 0 || c.SyncDebounce < 0 || c.WatchDebounce < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	return nil
}

// QueueDSNOrDefault falls back to a file queue under the data directory.
func (c Config) QueueDSNOrDefault() string {
	if strings.TrimSpace(c.QueueDSN) != "" {
		return c.QueueDSN
	}
	return "file://" + filepath.Join(c.DataDir, "queue")
}
