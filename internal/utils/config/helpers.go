package config

import (
	"os"
	"path/filepath"
	"time"
)

// ConfigHelpers provides convenient access to global configuration
type ConfigHelpers struct {
	config *GlobalConfig
}

// NewConfigHelpers creates a new config helpers instance
func NewConfigHelpers(config *GlobalConfig) *ConfigHelpers {
	if config == nil {
		config = DefaultGlobalConfig()
	}
	return &ConfigHelpers{config: config}
}

// OutputDir returns the absolute path to the default output directory
func (c *ConfigHelpers) OutputDir() (string, error) {
	return filepath.Abs(c.config.OutputDir)
}

// ManifestSuffix returns the suffix appended to manifest names
func (c *ConfigHelpers) ManifestSuffix() string {
	return c.config.ManifestSuffix
}

// TempDir returns the temporary directory path
func (c *ConfigHelpers) TempDir() string {
	if c.config.TempDir == "" {
		return os.TempDir()
	}
	return c.config.TempDir
}

// LogLevel returns the configured log level
func (c *ConfigHelpers) LogLevel() string {
	return c.config.Logging.Level
}

// VendorSentinel returns the license substring marking vendor packages
func (c *ConfigHelpers) VendorSentinel() string {
	return c.config.Vendor.Sentinel
}

// VendorGroup returns the component group used for vendor packages
func (c *ConfigHelpers) VendorGroup() string {
	return c.config.Vendor.Group
}

// FetchTimeout returns the timeout for remote downloads
func (c *ConfigHelpers) FetchTimeout() time.Duration {
	return c.config.Fetch.Timeout
}

// ShowProgress reports whether downloads draw a progress bar
func (c *ConfigHelpers) ShowProgress() bool {
	return c.config.Fetch.Progress == nil || *c.config.Fetch.Progress
}

// CreateTempDir ensures a temp subdirectory exists
func (c *ConfigHelpers) CreateTempDir(subdir string) (string, error) {
	tempDir := filepath.Join(c.TempDir(), subdir)
	err := CreateDirIfNotExists(tempDir)
	return tempDir, err
}

// CreateDirIfNotExists creates dir and its parents when missing
func CreateDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
