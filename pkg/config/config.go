package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration errors.
var (
	ErrNoAppliance = errors.New("config: appliance host is empty and discovery is disabled")
)

// Config is the full client configuration.
type Config struct {
	Appliance ApplianceConfig `yaml:"appliance"`
	Write     WriteConfig     `yaml:"write"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Log       LogConfig       `yaml:"log"`
}

// ApplianceConfig locates the appliance server.
type ApplianceConfig struct {
	// Host is the appliance hostname or IP. Empty with Discover enabled
	// means the first discovered appliance is used.
	Host string `yaml:"host"`

	// Port is the API port.
	Port int `yaml:"port"`

	// EventsPath is the websocket path of the push event channel.
	EventsPath string `yaml:"events_path"`

	// Discover enables mDNS discovery of appliances on the local network.
	Discover bool `yaml:"discover"`
}

// WriteConfig tunes the coalescing write scheduler. Durations are Go
// duration strings, e.g. "50ms".
type WriteConfig struct {
	ThrottleDelay string `yaml:"throttle_delay"`
	FinalDelay    string `yaml:"final_delay"`
}

// CatalogConfig tunes the station catalog cache.
type CatalogConfig struct {
	// Dir is where the persisted catalog snapshot lives.
	Dir        string `yaml:"dir"`
	StaleAfter string `yaml:"stale_after"`
	TTL        string `yaml:"ttl"`
}

// LogConfig controls the CBOR file log.
type LogConfig struct {
	// File is the log file path, empty to disable file logging.
	File string `yaml:"file"`

	// Debug also mirrors events to stderr via slog.
	Debug bool `yaml:"debug"`
}

// Default returns the built-in defaults. The result does not pass Validate
// until an appliance host is set or discovery is enabled.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads and validates a config file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Appliance.Port == 0 {
		c.Appliance.Port = 8090
	}
	if c.Appliance.EventsPath == "" {
		c.Appliance.EventsPath = "/api/v1/events"
	}
	if c.Write.ThrottleDelay == "" {
		c.Write.ThrottleDelay = "50ms"
	}
	if c.Write.FinalDelay == "" {
		c.Write.FinalDelay = "500ms"
	}
	if c.Catalog.Dir == "" {
		if cacheDir, err := os.UserCacheDir(); err == nil {
			c.Catalog.Dir = cacheDir + "/roomtone"
		} else {
			c.Catalog.Dir = ".roomtone"
		}
	}
	if c.Catalog.StaleAfter == "" {
		c.Catalog.StaleAfter = "5m"
	}
	if c.Catalog.TTL == "" {
		c.Catalog.TTL = "10m"
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Appliance.Host == "" && !c.Appliance.Discover {
		return ErrNoAppliance
	}
	if c.Appliance.Port < 1 || c.Appliance.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Appliance.Port)
	}
	for name, value := range map[string]string{
		"write.throttle_delay": c.Write.ThrottleDelay,
		"write.final_delay":    c.Write.FinalDelay,
		"catalog.stale_after":  c.Catalog.StaleAfter,
		"catalog.ttl":          c.Catalog.TTL,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	throttle, _ := time.ParseDuration(c.Write.ThrottleDelay)
	final, _ := time.ParseDuration(c.Write.FinalDelay)
	if final < throttle {
		return fmt.Errorf("config: write.final_delay %s must not be shorter than write.throttle_delay %s", c.Write.FinalDelay, c.Write.ThrottleDelay)
	}
	return nil
}

// BaseURL returns the HTTP base URL of the appliance API.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Appliance.Host, c.Appliance.Port)
}

// EventsURL returns the websocket URL of the push event channel.
func (c *Config) EventsURL() string {
	return fmt.Sprintf("ws://%s:%d%s", c.Appliance.Host, c.Appliance.Port, c.Appliance.EventsPath)
}

// ThrottleDelay returns the parsed scheduler throttle delay.
func (c *Config) ThrottleDelay() time.Duration {
	d, _ := time.ParseDuration(c.Write.ThrottleDelay)
	return d
}

// FinalDelay returns the parsed scheduler final delay.
func (c *Config) FinalDelay() time.Duration {
	d, _ := time.ParseDuration(c.Write.FinalDelay)
	return d
}

// CatalogStaleAfter returns the parsed catalog staleness threshold.
func (c *Config) CatalogStaleAfter() time.Duration {
	d, _ := time.ParseDuration(c.Catalog.StaleAfter)
	return d
}

// CatalogTTL returns the parsed catalog TTL.
func (c *Config) CatalogTTL() time.Duration {
	d, _ := time.ParseDuration(c.Catalog.TTL)
	return d
}
