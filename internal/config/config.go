// Package config handles runlim configuration using Viper.
//
// Configuration sources (in priority order):
//  1. Environment variables (RUNLIM_*)
//  2. Config file (~/.config/runlim/config.yaml)
//  3. Built-in defaults
//
// Only ambient concerns are configurable. The timeout itself is always
// a positional argument: a missing timeout is a usage error, never a
// configured default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultLogLevel is the default structured-log level.
	DefaultLogLevel = "info"
	// DefaultLogFormat is the default structured-log format.
	DefaultLogFormat = "text"
	// DefaultLogStderr is the default stderr sink mode. Off keeps the
	// error stream down to the one diagnostic line per failure.
	DefaultLogStderr = "off"
)

// Config holds the runlim configuration.
type Config struct {
	v *viper.Viper
}

// Load reads configuration from all sources.
func Load() *Config {
	v := viper.New()

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.file", "")
	v.SetDefault("log.stderr", DefaultLogStderr)

	// Config file location
	home, err := os.UserHomeDir()
	if err == nil {
		configDir := filepath.Join(home, ".config", "runlim")
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	v.SetEnvPrefix("RUNLIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found, but warn on other errors)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}

	return &Config{v: v}
}

// GetString returns a configuration value as string.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// All returns all configuration as a map.
func (c *Config) All() map[string]interface{} {
	return c.v.AllSettings()
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() string {
	return c.GetString("log.level")
}

// LogFormat returns the configured log format.
func (c *Config) LogFormat() string {
	return c.GetString("log.format")
}

// LogFile returns the configured log file path.
func (c *Config) LogFile() string {
	return c.GetString("log.file")
}

// LogStderr returns the configured stderr sink mode.
func (c *Config) LogStderr() string {
	return c.GetString("log.stderr")
}
