package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.yaml.in/yaml/v3"
)

const (
	DefaultPath       = "configs/ddns.yaml"
	DefaultInterval   = 60
	DefaultCacheFile  = "ip_cache.txt"
	DefaultDeviceFile = "device_id"
)

// Config is one generation of the agent configuration.
type Config struct {
	Device     string         `yaml:"device"`
	Token      string         `yaml:"token"`
	Interval   int            `yaml:"interval"`
	CacheFile  string         `yaml:"cache_file"`
	DeviceFile string         `yaml:"device_file"`
	StatusAddr string         `yaml:"status_addr"`
	Provider   ProviderConfig `yaml:"provider"`
	Zones      []ZoneRule     `yaml:"zones"`
}

// ZoneRule lists the records that should track the host addresses in one
// provider zone.
type ZoneRule struct {
	Name    string           `yaml:"name"`
	Records []RecordTemplate `yaml:"records"`
}

// RecordTemplate describes a record created for every related public address.
type RecordTemplate struct {
	Name    string   `yaml:"name"`
	Family  Family   `yaml:"type"`
	Comment string   `yaml:"comment"`
	Proxied bool     `yaml:"proxied"`
	Tags    []string `yaml:"tags"`
	TTL     int      `yaml:"ttl"`
}

// Load reads the configuration from the path in DDNS_CONFIG_PATH, defaulting
// to "configs/ddns.yaml".
func Load() (*Config, error) {
	path := os.Getenv("DDNS_CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	return LoadFromPath(path)
}

// LoadFromPath reads, defaults and validates the configuration at path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.CacheFile == "" {
		cfg.CacheFile = DefaultCacheFile
	}
	if cfg.DeviceFile == "" {
		cfg.DeviceFile = DefaultDeviceFile
	}
	for i := range cfg.Zones {
		for j := range cfg.Zones[i].Records {
			if cfg.Zones[i].Records[j].Family == "" {
				cfg.Zones[i].Records[j].Family = FamilyAll
			}
		}
	}

	// Expand ${ENV_VAR} references in the credential and provider settings.
	cfg.Token = os.ExpandEnv(cfg.Token)
	cfg.Provider.expandEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Token == "" && c.Provider.Settings[SettingAPIToken] == "" {
		return fmt.Errorf("config: missing required field 'token'")
	}
	if c.Interval < 0 {
		return fmt.Errorf("config: interval must not be negative, got %d", c.Interval)
	}
	if c.Device != "" {
		if err := ValidateDevice(c.Device); err != nil {
			return err
		}
	}
	for i, zone := range c.Zones {
		if _, ok := dns.IsDomainName(zone.Name); !ok || zone.Name == "" {
			return fmt.Errorf("config: zones[%d]: invalid zone name %q", i, zone.Name)
		}
		for j, rec := range zone.Records {
			if rec.Name == "@" {
				continue
			}
			if _, ok := dns.IsDomainName(rec.Name); !ok || rec.Name == "" {
				return fmt.Errorf("config: zones[%d].records[%d]: invalid record name %q", i, j, rec.Name)
			}
			if rec.TTL < 0 {
				return fmt.Errorf("config: zones[%d].records[%d]: negative ttl %d", i, j, rec.TTL)
			}
		}
	}
	return nil
}

// PollInterval returns the configured interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// OwnerTag is the comment prefix that marks records created by this device.
func (c *Config) OwnerTag() string {
	return "[" + c.Device + "]"
}

// Hash identifies a configuration generation. Two configs with the same
// contents hash identically regardless of formatting in the source file.
func (c *Config) Hash() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		// Config only holds plain data; marshalling cannot fail.
		panic(fmt.Sprintf("config: marshal for hash: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ZoneNames returns the configured zone names in file order.
func (c *Config) ZoneNames() []string {
	names := make([]string, 0, len(c.Zones))
	for _, z := range c.Zones {
		names = append(names, strings.TrimSuffix(z.Name, "."))
	}
	return names
}
