package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const ConfigFileName = "dropvault.json"

// DefaultAPIURL is the production service; override per project in
// dropvault.json or with DROPVAULT_API_URL.
const DefaultAPIURL = "https://dropvault-2.onrender.com"

// Config represents the CLI configuration file
type Config struct {
	APIURL string `json:"api_url"`
}

// DefaultConfig returns a configuration pointing at the production API
func DefaultConfig() *Config {
	return &Config{APIURL: DefaultAPIURL}
}

// FindConfigFile searches for dropvault.json in the current directory
// and parent directories
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found in %s or any parent directory", ConfigFileName, currentDir)
}

// Load reads the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveAPIURL returns the API base URL: the DROPVAULT_API_URL
// environment variable wins, then dropvault.json if present, then the
// production default.
func ResolveAPIURL() string {
	if url := os.Getenv("DROPVAULT_API_URL"); url != "" {
		return url
	}

	if path, err := FindConfigFile(); err == nil {
		if cfg, err := Load(path); err == nil && cfg.APIURL != "" {
			return cfg.APIURL
		}
	}

	return DefaultAPIURL
}
