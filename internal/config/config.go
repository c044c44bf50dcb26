package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrInvalidConfig marks configuration values outside their allowed
// ranges. Out-of-range values are rejected, never clamped.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all application configuration
type Config struct {
	// Monitor configuration
	Monitor MonitorConfig

	// Storage configuration
	Storage StorageConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Web server configuration
	Web WebConfig
}

// MonitorConfig holds sampling behavior configuration
type MonitorConfig struct {
	Interval       time.Duration // Time between captures
	MaxDuration    time.Duration // Session length cutoff, 0 = run until stopped
	FlushThreshold int           // Buffered records before a durable flush
	StopGrace      time.Duration // Extra time Stop waits for the loop to exit

	MinInterval        time.Duration // Minimum allowed capture interval
	MaxInterval        time.Duration // Maximum allowed capture interval
	MaxSessionDuration time.Duration // Maximum allowed session length
}

// StorageConfig holds output locations
type StorageConfig struct {
	OutputDir    string // Root directory for the activity log and screenshots
	DatabasePath string // SQLite path for session history, empty means default
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string // Path to PID file for daemon management
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string // Host to bind web server to
	Port int    // Port for web server
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Monitor: MonitorConfig{
			Interval:           60 * time.Second,
			MaxDuration:        0, // run until stopped
			FlushThreshold:     5,
			StopGrace:          5 * time.Second,
			MinInterval:        1 * time.Second,
			MaxInterval:        60 * time.Second,
			MaxSessionDuration: 120 * time.Minute,
		},
		Storage: StorageConfig{
			OutputDir:    "screen_monitor_data",
			DatabasePath: "", // Empty means use default ~/.config/bbw/bbw.db
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/bbw-%d.pid", os.Getuid()),
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid(),
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Monitor.Interval < c.Monitor.MinInterval {
		return fmt.Errorf("%w: capture interval (%v) cannot be less than minimum (%v)",
			ErrInvalidConfig, c.Monitor.Interval, c.Monitor.MinInterval)
	}

	if c.Monitor.Interval > c.Monitor.MaxInterval {
		return fmt.Errorf("%w: capture interval (%v) cannot be greater than maximum (%v)",
			ErrInvalidConfig, c.Monitor.Interval, c.Monitor.MaxInterval)
	}

	// MaxDuration of zero means the session runs until stopped.
	if c.Monitor.MaxDuration != 0 {
		if c.Monitor.MaxDuration < time.Minute {
			return fmt.Errorf("%w: session duration (%v) cannot be less than 1m",
				ErrInvalidConfig, c.Monitor.MaxDuration)
		}
		if c.Monitor.MaxDuration > c.Monitor.MaxSessionDuration {
			return fmt.Errorf("%w: session duration (%v) cannot be greater than maximum (%v)",
				ErrInvalidConfig, c.Monitor.MaxDuration, c.Monitor.MaxSessionDuration)
		}
	}

	if c.Monitor.FlushThreshold < 1 {
		return fmt.Errorf("%w: flush threshold must be at least 1, got %d",
			ErrInvalidConfig, c.Monitor.FlushThreshold)
	}

	if c.Monitor.StopGrace < 0 {
		return fmt.Errorf("%w: stop grace cannot be negative", ErrInvalidConfig)
	}

	if c.Storage.OutputDir == "" {
		return fmt.Errorf("%w: output directory cannot be empty", ErrInvalidConfig)
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("%w: web port must be between 1 and 65535, got %d",
			ErrInvalidConfig, c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("%w: web host cannot be empty", ErrInvalidConfig)
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("%w: PID file path cannot be empty", ErrInvalidConfig)
	}

	return nil
}

// CheckInterval reports whether a capture interval is inside the
// allowed range. The config is not modified.
func (c *Config) CheckInterval(interval time.Duration) error {
	if interval < c.Monitor.MinInterval {
		return fmt.Errorf("%w: capture interval cannot be less than %v",
			ErrInvalidConfig, c.Monitor.MinInterval)
	}
	if interval > c.Monitor.MaxInterval {
		return fmt.Errorf("%w: capture interval cannot be greater than %v",
			ErrInvalidConfig, c.Monitor.MaxInterval)
	}
	return nil
}

// CheckMaxDuration reports whether a session duration cutoff is inside
// the allowed range. Zero means the session runs until stopped. The
// config is not modified.
func (c *Config) CheckMaxDuration(d time.Duration) error {
	if d == 0 {
		return nil
	}
	if d < time.Minute {
		return fmt.Errorf("%w: session duration cannot be less than 1m", ErrInvalidConfig)
	}
	if d > c.Monitor.MaxSessionDuration {
		return fmt.Errorf("%w: session duration cannot be greater than %v",
			ErrInvalidConfig, c.Monitor.MaxSessionDuration)
	}
	return nil
}

// SetInterval sets the capture interval with validation
func (c *Config) SetInterval(interval time.Duration) error {
	if err := c.CheckInterval(interval); err != nil {
		return err
	}
	c.Monitor.Interval = interval
	return nil
}

// SetMaxDuration sets the session duration cutoff with validation.
// A duration of zero means the session runs until stopped.
func (c *Config) SetMaxDuration(d time.Duration) error {
	if err := c.CheckMaxDuration(d); err != nil {
		return err
	}
	c.Monitor.MaxDuration = d
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d",
			ErrInvalidConfig, port)
	}
	c.Web.Port = port
	return nil
}

// LogPath returns the activity log location inside the output directory.
func (c *Config) LogPath() string {
	return filepath.Join(c.Storage.OutputDir, "activity_log.csv")
}

// ScreenshotDir returns the screenshot artifact directory.
func (c *Config) ScreenshotDir() string {
	return filepath.Join(c.Storage.OutputDir, "screenshots")
}

// GetIntervalSeconds returns the capture interval in seconds
func (c *Config) GetIntervalSeconds() int64 {
	return int64(c.Monitor.Interval.Seconds())
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Monitor:
    Interval: %v
    Max Duration: %v
    Flush Threshold: %d
    Stop Grace: %v
  Storage:
    Output Dir: %s
    Database: %s
  Daemon:
    PID File: %s
  Web:
    Host: %s
    Port: %d`,
		c.Monitor.Interval,
		c.Monitor.MaxDuration,
		c.Monitor.FlushThreshold,
		c.Monitor.StopGrace,
		c.Storage.OutputDir,
		c.Storage.DatabasePath,
		c.Daemon.PIDFile,
		c.Web.Host,
		c.Web.Port,
	)
}
