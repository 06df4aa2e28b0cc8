package config

import (
	"os"
	"strconv"

	"github.com/robfig/cron/v3"
)

const (
	EnvSchedulerEnabled  = "CONTADOR_SCHEDULER_ENABLED"
	EnvSchedulerSchedule = "CONTADOR_SCHEDULER_SCHEDULE"
)

// SchedulerConfig holds the automatic scan scheduler parameters.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *SchedulerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites fields from overlay. Enabled always applies.
func (c *SchedulerConfig) Merge(overlay *SchedulerConfig) {
	c.Enabled = overlay.Enabled
	if overlay.Schedule != "" {
		c.Schedule = overlay.Schedule
	}
}

func (c *SchedulerConfig) loadDefaults() {
	if c.Schedule == "" {
		c.Schedule = "0 * * * *"
	}
}

func (c *SchedulerConfig) loadEnv() {
	if v := os.Getenv(EnvSchedulerEnabled); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Enabled = enabled
		}
	}
	if v := os.Getenv(EnvSchedulerSchedule); v != "" {
		c.Schedule = v
	}
}

func (c *SchedulerConfig) validate() error {
	_, err := cron.ParseStandard(c.Schedule)
	return err
}
