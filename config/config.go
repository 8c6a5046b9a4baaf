// Package config loads the core's configuration from the environment and
// a JSON config file searched in conventional locations. Environment
// variables win over file values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ProviderConfig holds per-provider settings.
type ProviderConfig struct {
	APIKey   string         `json:"api_key"`
	Endpoint string         `json:"endpoint,omitempty"`
	Model    string         `json:"model,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Config is the loaded configuration.
type Config struct {
	DefaultProvider string                    `json:"default_provider,omitempty"`
	ManifestURL     string                    `json:"manifest_url,omitempty"`
	DatabasePath    string                    `json:"database_path,omitempty"`
	MaxToolLoops    int                       `json:"max_tool_loops,omitempty"`
	Providers       map[string]ProviderConfig `json:"providers"`
}

// envKeys maps provider names to the environment variables their API keys
// conventionally live in.
var envKeys = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"mistralai": "MISTRAL_API_KEY",
}

// Load reads configuration: JSON file first, environment second.
func Load() (*Config, error) {
	cfg := &Config{Providers: make(map[string]ProviderConfig)}

	if err := loadFromFile(cfg); err != nil {
		return nil, err
	}
	loadFromEnvironment(cfg)

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = defaultDatabasePath()
	}
	return cfg, nil
}

// loadFromFile merges the first config file found. A missing file is fine.
func loadFromFile(cfg *Config) error {
	locations := []string{
		filepath.Join(os.Getenv("HOME"), ".config", "smarthopper", "smarthopper.config.json"),
		"smarthopper.config.json",
		".smarthopper.config.json",
	}
	if custom := os.Getenv("SMARTHOPPER_CONFIG"); custom != "" {
		locations = append([]string{custom}, locations...)
	}

	for _, path := range locations {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing config %s: %w", path, err)
		}
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]ProviderConfig)
		}
		return nil
	}
	return nil
}

// loadFromEnvironment overrides file values with environment variables.
func loadFromEnvironment(cfg *Config) {
	for provider, envKey := range envKeys {
		key := os.Getenv(envKey)
		if key == "" {
			continue
		}
		pc := cfg.Providers[provider]
		pc.APIKey = key
		cfg.Providers[provider] = pc
	}

	if v := os.Getenv("SMARTHOPPER_DEFAULT_PROVIDER"); v != "" {
		cfg.DefaultProvider = v
	}
	if v := os.Getenv("SMARTHOPPER_MANIFEST_URL"); v != "" {
		cfg.ManifestURL = v
	}
	if v := os.Getenv("SMARTHOPPER_DB"); v != "" {
		cfg.DatabasePath = v
	}
}

func defaultDatabasePath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "smarthopper", "smarthopper.db")
}

// HasProvider reports whether a provider has an API key configured.
func (c *Config) HasProvider(name string) bool {
	pc, ok := c.Providers[name]
	return ok && pc.APIKey != ""
}

// Settings flattens a provider's configuration into the settings map the
// provider layer consumes.
func (c *Config) Settings(name string) map[string]any {
	pc, ok := c.Providers[name]
	if !ok {
		return map[string]any{}
	}

	settings := make(map[string]any, len(pc.Extra)+3)
	for k, v := range pc.Extra {
		settings[k] = v
	}
	if pc.APIKey != "" {
		settings["api_key"] = pc.APIKey
	}
	if pc.Endpoint != "" {
		settings["endpoint"] = pc.Endpoint
	}
	if pc.Model != "" {
		settings["model"] = pc.Model
	}
	return settings
}
