package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override file and default values
func LoadFromEnv(cfg *Config) {
	// Storage configuration
	if outputDir := os.Getenv("BBW_OUTPUT_DIR"); outputDir != "" {
		cfg.Storage.OutputDir = outputDir
	}

	if dbPath := os.Getenv("BBW_DB_PATH"); dbPath != "" {
		cfg.Storage.DatabasePath = dbPath
	}

	// Monitor configuration
	if interval := os.Getenv("BBW_INTERVAL"); interval != "" {
		if seconds, err := strconv.Atoi(interval); err == nil && seconds > 0 {
			d := time.Duration(seconds) * time.Second
			if d >= cfg.Monitor.MinInterval && d <= cfg.Monitor.MaxInterval {
				cfg.Monitor.Interval = d
			}
		}
	}

	if duration := os.Getenv("BBW_DURATION"); duration != "" {
		if minutes, err := strconv.Atoi(duration); err == nil && minutes >= 0 {
			d := time.Duration(minutes) * time.Minute
			if d == 0 || d <= cfg.Monitor.MaxSessionDuration {
				cfg.Monitor.MaxDuration = d
			}
		}
	}

	// Daemon configuration
	if pidFile := os.Getenv("BBW_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	// Web configuration
	if webHost := os.Getenv("BBW_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("BBW_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

// New creates a new Config with default values, applies the config file
// if one exists, then loads environment overrides.
func New() *Config {
	cfg := Default()
	if path := configFilePath(); path != "" {
		// Best effort: a missing or malformed file falls back to defaults.
		_ = LoadFromFile(cfg, path)
	}
	LoadFromEnv(cfg)
	return cfg
}
