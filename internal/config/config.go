// ABOUTME: Configuration management for freewrite with YAML config loading.
// ABOUTME: Handles the store directory, AI completion settings, logging, and ~ expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIURL is the default OpenAI-compatible completion endpoint.
	DefaultAPIURL = "https://api.openai.com/v1"

	// DefaultModel is the default completion model.
	DefaultModel = "gpt-4o"

	// DefaultPreviewWorkers bounds concurrent body reads during preview hydration.
	DefaultPreviewWorkers = 4
)

// Config stores freewrite configuration loaded from ~/.config/freewrite/config.yaml.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	AI      AIConfig      `yaml:"ai"`
	Preview PreviewConfig `yaml:"preview"`
	Log     LogConfig     `yaml:"log"`
}

// StoreConfig locates the entry directory.
type StoreConfig struct {
	Dir string `yaml:"dir"`
	// Location is an IANA zone name used for filename timestamps; empty means local time.
	Location string `yaml:"location"`
}

// AIConfig holds OpenAI-compatible completion API settings.
type AIConfig struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// PreviewConfig tunes background preview hydration.
type PreviewConfig struct {
	Workers int `yaml:"workers"`
}

// LogConfig controls log level and optional file output.
type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// HasAI returns true if an AI API key is configured (in the file or OPENAI_API_KEY).
func (c *Config) HasAI() bool {
	return c.GetAPIKey() != ""
}

// GetAPIKey returns the configured API key, falling back to OPENAI_API_KEY.
func (c *Config) GetAPIKey() string {
	if c.AI.APIKey != "" {
		return c.AI.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// GetAPIURL returns the completion endpoint base URL without a trailing slash.
func (c *Config) GetAPIURL() string {
	if c.AI.APIURL == "" {
		return DefaultAPIURL
	}
	return strings.TrimRight(c.AI.APIURL, "/")
}

// GetModel returns the completion model name.
func (c *Config) GetModel() string {
	if c.AI.Model == "" {
		return DefaultModel
	}
	return c.AI.Model
}

// GetPreviewWorkers returns the hydration concurrency limit.
func (c *Config) GetPreviewWorkers() int {
	if c.Preview.Workers <= 0 {
		return DefaultPreviewWorkers
	}
	return c.Preview.Workers
}

// GetLocation resolves the filename timestamp zone.
func (c *Config) GetLocation() (*time.Location, error) {
	if c.Store.Location == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Store.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid store location %q: %w", c.Store.Location, err)
	}
	return loc, nil
}

// GetStoreDir returns the entry directory. FREEWRITE_DIR overrides the config
// file; the default is $XDG_DATA_HOME/freewrite (~/.local/share/freewrite).
func (c *Config) GetStoreDir() (string, error) {
	if dir := os.Getenv("FREEWRITE_DIR"); dir != "" {
		return ExpandPath(dir)
	}
	if c.Store.Dir != "" {
		return ExpandPath(c.Store.Dir)
	}
	return DataDir()
}

// GetLogDir returns the log directory, or "" when file logging is disabled.
func (c *Config) GetLogDir() (string, error) {
	return ExpandPath(c.Log.Dir)
}

// DataDir returns the default entry directory.
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "freewrite"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "freewrite", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from disk. Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
