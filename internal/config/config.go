// Package config loads settings from defaults, an optional config file,
// and TASKDECK_* environment variables, in that order.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Database is the sqlite file path.
	Database string
	// SessionTTL bounds how long a login stays valid.
	SessionTTL time.Duration
	// RetryAttempts and RetryDelay shape the busy-retry policy when
	// another process holds the database file.
	RetryAttempts int
	RetryDelay    time.Duration
	// RefreshInterval drives the GUI auto-refresh timer.
	RefreshInterval time.Duration
}

func Default() Config {
	return Config{
		Database:        "todo_app.db",
		SessionTTL:      24 * time.Hour,
		RetryAttempts:   5,
		RetryDelay:      50 * time.Millisecond,
		RefreshInterval: 5 * time.Second,
	}
}

// Load reads the config file at path, or searches the user config
// directory and the working directory when path is empty. A missing
// file is not an error unless a path was given explicitly.
func Load(path string) (Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault("database", def.Database)
	v.SetDefault("session_ttl", def.SessionTTL)
	v.SetDefault("retry_attempts", def.RetryAttempts)
	v.SetDefault("retry_delay", def.RetryDelay)
	v.SetDefault("refresh_interval", def.RefreshInterval)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "taskdeck"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TASKDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, err
		}
		// No config file found in the search paths; defaults and env apply.
	}

	return Config{
		Database:        v.GetString("database"),
		SessionTTL:      v.GetDuration("session_ttl"),
		RetryAttempts:   v.GetInt("retry_attempts"),
		RetryDelay:      v.GetDuration("retry_delay"),
		RefreshInterval: v.GetDuration("refresh_interval"),
	}, nil
}

// EnsureDir creates the parent directory of path.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
