package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rubiojr/itemsearch/pkg/core"
)

//go:embed config.toml.sample
var configTemplate string

const (
	defaultAPIURL           = "https://api.guildwars2.com"
	defaultMinQueryLength   = 3
	defaultFetchTimeout     = 30 * time.Second
	defaultFetchConcurrency = 4
)

type Config struct {
	StorageDir       string   `toml:"storage_dir"`
	CatalogPath      string   `toml:"catalog_path,omitempty"`
	APIURL           string   `toml:"api_url"`
	APIKey           string   `toml:"api_key,omitempty"`
	DumpDir          string   `toml:"dump_dir,omitempty"`
	MinQueryLength   int      `toml:"min_query_length"`
	FetchTimeout     Duration `toml:"fetch_timeout"`
	FetchConcurrency int      `toml:"fetch_concurrency"`
	RefreshInterval  Duration `toml:"refresh_interval,omitempty"`
	Permissions      []string `toml:"permissions,omitempty"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() (*Config, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return nil, fmt.Errorf("getting default storage directory: %w", err)
	}
	cfg := &Config{StorageDir: storageDir}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if c.MinQueryLength <= 0 {
		c.MinQueryLength = defaultMinQueryLength
	}
	if c.FetchTimeout.Duration <= 0 {
		c.FetchTimeout = Duration{defaultFetchTimeout}
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = defaultFetchConcurrency
	}
}

// LoadConfig reads the TOML file at configPath, falling back to defaults for
// a missing file or unset keys.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.StorageDir == "" {
		storageDir, err := GetDefaultStorageDir()
		if err != nil {
			return nil, fmt.Errorf("getting default storage directory: %w", err)
		}
		config.StorageDir = storageDir
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	if c.RefreshInterval.Duration < 0 {
		return fmt.Errorf("invalid config: negative refresh_interval %v", c.RefreshInterval)
	}
	for _, p := range c.Permissions {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("invalid config: empty permission name")
		}
	}
	return nil
}

// CatalogDBPath is the sqlite catalog location inside the storage dir.
func (c *Config) CatalogDBPath() string {
	return filepath.Join(c.StorageDir, "catalog.db")
}

// ConfiguredPermissions returns the permissions listed in the file, or nil
// when none are.
func (c *Config) ConfiguredPermissions() core.Permissions {
	if len(c.Permissions) == 0 {
		return nil
	}
	return core.ParsePermissions(c.Permissions)
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0600)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template := strings.Replace(configTemplate, "/home/user/.local/share/itemsearch", c.StorageDir, 1)
	return os.WriteFile(configPath, []byte(template), 0600)
}

// GetDefaultStorageDir returns $XDG_DATA_HOME/itemsearch, creating it.
func GetDefaultStorageDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	dir := filepath.Join(dataDir, "itemsearch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating storage directory %s: %w", dir, err)
	}
	return dir, nil
}

// GetConfigDir returns $XDG_CONFIG_HOME/itemsearch, creating it.
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "itemsearch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return dir, nil
}

func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
