package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig contains all configuration sections for the agent. It is loaded
// once at startup and treated as read-only for the process lifetime; changing
// it requires a restart.
type GlobalConfig struct {
	DiscoveryConfig DiscoveryConfig `json:"discovery,omitempty" yaml:"discovery,omitempty"`
	BaselineConfig  BaselineConfig  `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	MonitorConfig   MonitorConfig   `json:"monitor,omitempty" yaml:"monitor,omitempty"`
	AlertsConfig    AlertsConfig    `json:"alerts,omitempty" yaml:"alerts,omitempty"`
	StorageConfig   StorageConfig   `json:"storage,omitempty" yaml:"storage,omitempty"`
	LogConfig       LogConfig       `json:"log,omitempty" yaml:"log,omitempty"`
}

// NewDefaultGlobalConfig creates a GlobalConfig with default values.
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		DiscoveryConfig: NewDefaultDiscoveryConfig(),
		BaselineConfig:  NewDefaultBaselineConfig(),
		MonitorConfig:   NewDefaultMonitorConfig(),
		AlertsConfig:    NewDefaultAlertsConfig(),
		StorageConfig:   NewDefaultStorageConfig(),
		LogConfig:       NewDefaultLogConfig(),
	}
}

// LoadGlobalConfig loads configuration from the given path, or from default
// locations when the path is empty. YAML is used for .yaml/.yml extensions,
// JSON otherwise. Values not present in the file keep their defaults.
func LoadGlobalConfig(providedPath string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		if providedPath != "" {
			return nil, fmt.Errorf("config file '%s' does not exist", providedPath)
		}
		return nil, fmt.Errorf("no config file found in default locations")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filePath, err)
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, err
	}

	cfg.MonitorConfig.ResolveDurations()
	return cfg, nil
}

// parseConfigContent parses the config content based on file extension.
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}
