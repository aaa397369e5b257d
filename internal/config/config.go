// Package config loads the acquisition configuration from JSON. Fields are
// pointers so a partial file only overrides what it names; the Get* methods
// supply defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lupm-obs/tau2grab/internal/transport"
)

// Config is the root acquisition configuration.
type Config struct {
	// Camera link
	Port        *string `json:"port,omitempty"`
	BaudRate    *int    `json:"baud_rate,omitempty"`
	UARTWrapped *bool   `json:"uart_wrapped,omitempty"`
	StrictMode  *bool   `json:"strict_mode,omitempty"`

	// Command pacing and sync, duration strings like "100ms".
	SettleDelay *string `json:"settle_delay,omitempty"`
	SyncTimeout *string `json:"sync_timeout,omitempty"`

	// Acquisition loop
	CaptureWindow   *string `json:"capture_window,omitempty"`
	CaptureInterval *string `json:"capture_interval,omitempty"`
	TempInterval    *string `json:"temperature_interval,omitempty"`
	FFCOnStart      *bool   `json:"ffc_on_start,omitempty"`

	// Outputs
	OutputDir    *string `json:"output_dir,omitempty"`
	DatabasePath *string `json:"database_path,omitempty"`
}

// Load reads and validates a JSON config file.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every field that is set.
func (c *Config) Validate() error {
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}

	for name, field := range map[string]*string{
		"settle_delay":         c.SettleDelay,
		"sync_timeout":         c.SyncTimeout,
		"capture_window":       c.CaptureWindow,
		"capture_interval":     c.CaptureInterval,
		"temperature_interval": c.TempInterval,
	} {
		if field == nil || *field == "" {
			continue
		}
		d, err := time.ParseDuration(*field)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, *field, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// GetPort returns the camera device path.
func (c *Config) GetPort() string {
	if c.Port == nil || *c.Port == "" {
		return "/dev/ttyUSB0"
	}
	return *c.Port
}

// GetPortOptions returns the serial options for the command channel.
func (c *Config) GetPortOptions() transport.PortOptions {
	opts := transport.PortOptions{}
	if c.BaudRate != nil {
		opts.BaudRate = *c.BaudRate
	}
	return opts
}

// GetUARTWrapped reports whether the command channel needs UART framing.
func (c *Config) GetUARTWrapped() bool {
	if c.UARTWrapped == nil {
		return false
	}
	return *c.UARTWrapped
}

// GetStrictMode reports whether wrong-mode operations fail instead of
// switching automatically.
func (c *Config) GetStrictMode() bool {
	if c.StrictMode == nil {
		return false
	}
	return *c.StrictMode
}

func (c *Config) duration(field *string, fallback time.Duration) time.Duration {
	if field == nil || *field == "" {
		return fallback
	}
	d, err := time.ParseDuration(*field)
	if err != nil {
		return fallback
	}
	return d
}

// GetSettleDelay returns the post-command pacing delay.
func (c *Config) GetSettleDelay() time.Duration {
	return c.duration(c.SettleDelay, 100*time.Millisecond)
}

// GetSyncTimeout returns the marker search timeout.
func (c *Config) GetSyncTimeout() time.Duration {
	return c.duration(c.SyncTimeout, 200*time.Millisecond)
}

// GetCaptureWindow returns the length of one acquisition window.
func (c *Config) GetCaptureWindow() time.Duration {
	return c.duration(c.CaptureWindow, 10*time.Second)
}

// GetCaptureInterval returns the pause between acquisition windows.
func (c *Config) GetCaptureInterval() time.Duration {
	return c.duration(c.CaptureInterval, time.Minute)
}

// GetTempInterval returns the period of camera temperature sampling.
func (c *Config) GetTempInterval() time.Duration {
	return c.duration(c.TempInterval, 5*time.Minute)
}

// GetFFCOnStart reports whether a long flat field correction runs before the
// first capture.
func (c *Config) GetFFCOnStart() bool {
	if c.FFCOnStart == nil {
		return true
	}
	return *c.FFCOnStart
}

// GetOutputDir returns the directory for recorded frame runs.
func (c *Config) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "./tau2data"
	}
	return *c.OutputDir
}

// GetDatabasePath returns the metadata database path.
func (c *Config) GetDatabasePath() string {
	if c.DatabasePath == nil || *c.DatabasePath == "" {
		return "./tau2data/tau2grab.db"
	}
	return *c.DatabasePath
}
