package core

import "time"

// Config holds runtime configuration. The mapstructure tags let config.Load decode
// it from files and environment variables.
type Config struct {
	// Name prefixes worker names in logs and metrics.
	Name string `mapstructure:"name"`

	// Workers is the number of foreground async workers.
	// Zero means one per usable CPU.
	Workers int `mapstructure:"workers"`

	// BackgroundWorkers is the number of low-priority async workers that serve
	// Background placement. Zero disables Background placement.
	BackgroundWorkers int `mapstructure:"background_workers"`

	// SystemWorkers is the number of threads running blocking system tasks.
	SystemWorkers int `mapstructure:"system_workers"`

	// Regions is the number of memory regions foreground workers are spread over.
	// Zero detects the number of CPU packages.
	Regions int `mapstructure:"regions"`

	// PinWorkers binds each foreground worker to one CPU.
	PinWorkers bool `mapstructure:"pin_workers"`

	// BackgroundNice is the nice increment applied to background worker threads.
	BackgroundNice int `mapstructure:"background_nice"`

	// IdleTimeout bounds how long an idle worker parks between checks.
	// Zero parks until notified.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// DrainTimeout is how long tasks may keep running after Stop before they are
	// aborted. Zero waits for them indefinitely.
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`

	// TaskHistoryCapacity is the number of finished tasks kept for RecentTasks.
	TaskHistoryCapacity int `mapstructure:"task_history_capacity"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Name:                "asyncrt",
		Workers:             0,
		BackgroundWorkers:   1,
		SystemWorkers:       2,
		Regions:             0,
		PinWorkers:          false,
		BackgroundNice:      10,
		IdleTimeout:         time.Second,
		DrainTimeout:        5 * time.Second,
		TaskHistoryCapacity: defaultTaskHistoryCapacity,
	}
}

// WithName returns a copy of the config with the runtime name set.
func (c Config) WithName(name string) Config {
	c.Name = name
	return c
}

// WithWorkers returns a copy of the config with the foreground worker count set.
func (c Config) WithWorkers(n int) Config {
	c.Workers = n
	return c
}

// WithBackgroundWorkers returns a copy of the config with the background worker count set.
func (c Config) WithBackgroundWorkers(n int) Config {
	c.BackgroundWorkers = n
	return c
}

// WithSystemWorkers returns a copy of the config with the system pool size set.
func (c Config) WithSystemWorkers(n int) Config {
	c.SystemWorkers = n
	return c
}

// WithRegions returns a copy of the config with the region count set.
func (c Config) WithRegions(n int) Config {
	c.Regions = n
	return c
}

// WithPinnedWorkers returns a copy of the config with CPU pinning set.
func (c Config) WithPinnedWorkers(pin bool) Config {
	c.PinWorkers = pin
	return c
}

// WithIdleTimeout returns a copy of the config with the idle park timeout set.
func (c Config) WithIdleTimeout(d time.Duration) Config {
	c.IdleTimeout = d
	return c
}

// WithDrainTimeout returns a copy of the config with the drain timeout set.
func (c Config) WithDrainTimeout(d time.Duration) Config {
	c.DrainTimeout = d
	return c
}

// Validate reports the first invalid field as a programming error.
func (c Config) Validate() error {
	switch {
	case c.Workers < 0:
		return ProgrammingError("workers must not be negative, got %d", c.Workers)
	case c.BackgroundWorkers < 0:
		return ProgrammingError("background workers must not be negative, got %d", c.BackgroundWorkers)
	case c.SystemWorkers < 1:
		return ProgrammingError("at least one system worker is required, got %d", c.SystemWorkers)
	case c.Regions < 0:
		return ProgrammingError("regions must not be negative, got %d", c.Regions)
	case c.Workers > 0 && c.Regions > c.Workers:
		return ProgrammingError("%d regions cannot be spread over %d workers", c.Regions, c.Workers)
	case c.BackgroundNice < 0 || c.BackgroundNice > 19:
		return ProgrammingError("background nice must be in [0, 19], got %d", c.BackgroundNice)
	case c.IdleTimeout < 0:
		return ProgrammingError("idle timeout must not be negative, got %s", c.IdleTimeout)
	case c.DrainTimeout < 0:
		return ProgrammingError("drain timeout must not be negative, got %s", c.DrainTimeout)
	}
	return nil
}
