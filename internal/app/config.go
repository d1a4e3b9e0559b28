package app

import (
	"fmt"
	"time"

	"github.com/specialistvlad/tricore/internal/config"
)

// Config holds the process-level settings for an App. Non-zero values
// override the configuration file.
type Config struct {
	ConfigPath string // .hcl, .yaml or .yml

	Role            string
	TickRate        float64
	Device          string
	DeviceURL       string
	HealthcheckPort int

	// Duration stops the run after a fixed time. Zero runs until a signal.
	Duration time.Duration

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Role != "" {
		if _, err := config.RoleMask(cfg.Role); err != nil {
			return nil, err
		}
	}
	if cfg.TickRate < 0 {
		return nil, fmt.Errorf("tick rate must not be negative, got %g", cfg.TickRate)
	}
	if cfg.Duration < 0 {
		return nil, fmt.Errorf("duration must not be negative, got %s", cfg.Duration)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck port out of range: %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}

// overlay applies the non-zero process settings to m.
func (c *Config) overlay(m *config.Model) {
	if c.Role != "" {
		m.Runtime.Role = c.Role
	}
	if c.TickRate > 0 {
		m.Runtime.TickRate = c.TickRate
	}
	if c.HealthcheckPort > 0 {
		m.Runtime.HealthcheckPort = c.HealthcheckPort
	}
	if c.Device != "" {
		m.Device.Kind = c.Device
	}
	if c.DeviceURL != "" {
		m.Device.URL = c.DeviceURL
	}
}
