// Package config loads runtime and logging settings from a file and ASYNCRT_*
// environment variables.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Swind/go-async-runtime/core"
	"github.com/natefinch/lumberjack"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ASYNCRT_RUNTIME_WORKERS.
const EnvPrefix = "ASYNCRT"

// LogSettings configures the logrus logger handed to the runtime.
type LogSettings struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`

	// File enables a rolling log file instead of stderr.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Settings is the whole configuration document.
type Settings struct {
	Runtime core.Config `mapstructure:"runtime"`
	Log     LogSettings `mapstructure:"log"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Runtime: core.DefaultConfig(),
		Log: LogSettings{
			Level:      "info",
			MaxSizeMB:  50,
			MaxAgeDays: 7,
			MaxBackups: 5,
		},
	}
}

// Load reads path (YAML, JSON or TOML by extension) and applies environment
// overrides. An empty path loads defaults plus environment only.
func Load(path string) (Settings, error) {
	vp := viper.New()
	setDefaults(vp, Default())

	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	if path != "" {
		vp.SetConfigFile(path)
		if err := vp.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var s Settings
	if err := vp.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := s.Runtime.Validate(); err != nil {
		return Settings{}, err
	}
	if _, err := logrus.ParseLevel(s.Log.Level); err != nil {
		return Settings{}, fmt.Errorf("config: log level: %w", err)
	}
	return s, nil
}

// Every key needs a default so that AutomaticEnv overrides reach Unmarshal.
func setDefaults(vp *viper.Viper, d Settings) {
	rc := d.Runtime
	vp.SetDefault("runtime.name", rc.Name)
	vp.SetDefault("runtime.workers", rc.Workers)
	vp.SetDefault("runtime.background_workers", rc.BackgroundWorkers)
	vp.SetDefault("runtime.system_workers", rc.SystemWorkers)
	vp.SetDefault("runtime.regions", rc.Regions)
	vp.SetDefault("runtime.pin_workers", rc.PinWorkers)
	vp.SetDefault("runtime.background_nice", rc.BackgroundNice)
	vp.SetDefault("runtime.idle_timeout", rc.IdleTimeout)
	vp.SetDefault("runtime.drain_timeout", rc.DrainTimeout)
	vp.SetDefault("runtime.task_history_capacity", rc.TaskHistoryCapacity)

	vp.SetDefault("log.level", d.Log.Level)
	vp.SetDefault("log.json", d.Log.JSON)
	vp.SetDefault("log.file", d.Log.File)
	vp.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	vp.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	vp.SetDefault("log.max_backups", d.Log.MaxBackups)
}

// NewLogger builds a logrus logger from the log settings.
func (s Settings) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}

	l := logrus.New()
	l.SetLevel(level)
	if s.Log.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stderr
	if s.Log.File != "" {
		out = &lumberjack.Logger{
			Filename:   s.Log.File,
			MaxSize:    s.Log.MaxSizeMB,  // megabytes
			MaxAge:     s.Log.MaxAgeDays, // days
			MaxBackups: s.Log.MaxBackups,
			LocalTime:  true,
		}
	}
	l.SetOutput(out)
	return l, nil
}

// NewRuntimeBuilder returns a builder carrying the runtime settings and logger.
func (s Settings) NewRuntimeBuilder() (*core.RuntimeBuilder, error) {
	l, err := s.NewLogger()
	if err != nil {
		return nil, err
	}
	return core.NewRuntimeBuilder().
		Config(s.Runtime).
		Logger(core.NewLogrusLogger(l)), nil
}
