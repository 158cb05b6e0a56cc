package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SMLion1959422/OpenCaselist-Block-Scrapper/internal/caselist"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Caselist Caselist `yaml:"caselist"`
	Targets  Targets  `yaml:"targets"`
	Cache    Cache    `yaml:"cache"`
	Output   Output   `yaml:"output"`
	Feeds    []Feed   `yaml:"feeds"`
	Server   Server   `yaml:"server"`
}

type Caselist struct {
	Name     string `yaml:"name"`
	Token    string `yaml:"token"`
	TokenEnv string `yaml:"token_env"`
	BaseURL  string `yaml:"base_url"`
}

type Targets struct {
	Mode          string             `yaml:"mode"`
	Teams         []caselist.TeamRef `yaml:"teams"`
	Schools       []string           `yaml:"schools"`
	DaysRecent    int                `yaml:"days_recent"`
	TopicKeywords []string           `yaml:"topic_keywords"`
}

type Cache struct {
	Dir      string `yaml:"dir"`
	TTLHours int    `yaml:"ttl_hours"`
}

type Output struct {
	Dir     string `yaml:"dir"`
	Name    string `yaml:"name"`
	DataDir string `yaml:"data_dir"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Server struct {
	Port int `yaml:"port"`
}

// ConfigDir returns the XDG config directory for blockscraper.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "blockscraper")
}

// DataDir returns the XDG data directory for blockscraper.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "blockscraper")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/blockscraper/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'blockscraper init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Caselist: Caselist{
			Name:     "hspf25",
			TokenEnv: "CASELIST_TOKEN",
			BaseURL:  caselist.DefaultBaseURL,
		},
		Targets: Targets{
			Mode:       caselist.ModeTeams,
			DaysRecent: 7,
		},
		Cache:  Cache{TTLHours: 1},
		Output: Output{Dir: "caselist_output", Name: "compiled_blocks"},
		Server: Server{Port: 8000},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG
// default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetCacheDir returns the directory downloaded documents live in.
func (c *Config) GetCacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(c.GetDataDir(), "cache")
}

// GetToken returns the archive token from config or, failing that,
// from the configured environment variable.
func (c *Config) GetToken() string {
	if c.Caselist.Token != "" {
		return c.Caselist.Token
	}
	if c.Caselist.TokenEnv != "" {
		return os.Getenv(c.Caselist.TokenEnv)
	}
	return ""
}

// GetTTL returns the round-listing cache lifetime.
func (c *Config) GetTTL() time.Duration {
	hours := c.Cache.TTLHours
	if hours <= 0 {
		hours = 1
	}
	return time.Duration(hours) * time.Hour
}

// OutputName returns the base name for generated files.
func (c *Config) OutputName() string {
	if c.Output.Name != "" {
		return c.Output.Name
	}
	return c.Caselist.Name
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
