package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when --config is unset.
const DefaultConfigFile = "openwrt-sbom.yml"

// GlobalConfig holds tool-wide settings read from openwrt-sbom.yml.
type GlobalConfig struct {
	OutputDir      string        `yaml:"output_dir"`
	ManifestSuffix string        `yaml:"manifest_suffix"`
	TempDir        string        `yaml:"temp_dir"`
	Logging        LoggingConfig `yaml:"logging"`
	Vendor         VendorConfig  `yaml:"vendor"`
	Fetch          FetchConfig   `yaml:"fetch"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// VendorConfig identifies packages owned by the device vendor. A package whose
// license contains Sentinel (case-insensitive) is reported under Group.
type VendorConfig struct {
	Sentinel string `yaml:"sentinel"`
	Group    string `yaml:"group"`
}

// FetchConfig controls downloads of remote CPE maps.
type FetchConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	Progress *bool         `yaml:"progress"`
}

// DefaultGlobalConfig returns the built-in settings.
func DefaultGlobalConfig() *GlobalConfig {
	progress := true
	return &GlobalConfig{
		OutputDir:      "sbom-output",
		ManifestSuffix: "-cyclonedx.json",
		Logging:        LoggingConfig{Level: "info"},
		Vendor:         VendorConfig{Sentinel: "adstec", Group: "Ads-tec"},
		Fetch:          FetchConfig{Timeout: 30 * time.Second, Progress: &progress},
	}
}

// LoadGlobalConfig reads path on top of the defaults. Unset keys keep their
// default value.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// FindConfigFile returns the first existing config file among explicit,
// ./openwrt-sbom.yml and $HOME/.config/openwrt-sbom/config.yml. An explicit
// path that does not exist is an error; otherwise "" means none was found.
func FindConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}

	candidates := []string{DefaultConfigFile}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "openwrt-sbom", "config.yml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("checking config file %s: %w", c, err)
		}
	}
	return "", nil
}

// Load finds and reads the global config, falling back to the defaults when
// no file exists.
func Load(explicit string) (*GlobalConfig, string, error) {
	path, err := FindConfigFile(explicit)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return DefaultGlobalConfig(), "", nil
	}
	cfg, err := LoadGlobalConfig(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func (c *GlobalConfig) fillDefaults() {
	def := DefaultGlobalConfig()
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.ManifestSuffix == "" {
		c.ManifestSuffix = def.ManifestSuffix
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Vendor.Sentinel == "" {
		c.Vendor.Sentinel = def.Vendor.Sentinel
	}
	if c.Vendor.Group == "" {
		c.Vendor.Group = def.Vendor.Group
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = def.Fetch.Timeout
	}
	if c.Fetch.Progress == nil {
		c.Fetch.Progress = def.Fetch.Progress
	}
}
