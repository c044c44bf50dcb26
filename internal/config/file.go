package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of the optional config file. All fields
// are optional; zero values leave the current config untouched.
type fileConfig struct {
	Monitor struct {
		IntervalSeconds *int `yaml:"interval_seconds"`
		DurationMinutes *int `yaml:"duration_minutes"`
		FlushThreshold  *int `yaml:"flush_threshold"`
	} `yaml:"monitor"`
	Storage struct {
		OutputDir    string `yaml:"output_dir"`
		DatabasePath string `yaml:"database_path"`
	} `yaml:"storage"`
	Daemon struct {
		PIDFile string `yaml:"pid_file"`
	} `yaml:"daemon"`
	Web struct {
		Host string `yaml:"host"`
		Port *int   `yaml:"port"`
	} `yaml:"web"`
}

// configFilePath returns the config file to load: BBW_CONFIG if set,
// otherwise ~/.config/bbw/config.yaml when it exists.
func configFilePath() string {
	if path := os.Getenv("BBW_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(homeDir, ".config", "bbw", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// LoadFromFile applies settings from a YAML file onto cfg. Values the
// file does not mention keep their current setting.
func LoadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Monitor.IntervalSeconds != nil {
		cfg.Monitor.Interval = time.Duration(*fc.Monitor.IntervalSeconds) * time.Second
	}
	if fc.Monitor.DurationMinutes != nil {
		cfg.Monitor.MaxDuration = time.Duration(*fc.Monitor.DurationMinutes) * time.Minute
	}
	if fc.Monitor.FlushThreshold != nil {
		cfg.Monitor.FlushThreshold = *fc.Monitor.FlushThreshold
	}
	if fc.Storage.OutputDir != "" {
		cfg.Storage.OutputDir = fc.Storage.OutputDir
	}
	if fc.Storage.DatabasePath != "" {
		cfg.Storage.DatabasePath = fc.Storage.DatabasePath
	}
	if fc.Daemon.PIDFile != "" {
		cfg.Daemon.PIDFile = fc.Daemon.PIDFile
	}
	if fc.Web.Host != "" {
		cfg.Web.Host = fc.Web.Host
	}
	if fc.Web.Port != nil {
		cfg.Web.Port = *fc.Web.Port
	}

	return nil
}
