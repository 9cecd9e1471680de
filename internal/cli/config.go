package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/frankli0324/go-centra"
)

// Config holds request defaults read from a YAML file. Flags given on the
// command line win over it.
type Config struct {
	Headers         map[string]string `yaml:"headers,omitempty"`
	Timeout         time.Duration     `yaml:"timeout,omitempty"`
	FollowRedirects int               `yaml:"followRedirects,omitempty"`
	MaxBuffer       int64             `yaml:"maxBuffer,omitempty"`
	Compress        *bool             `yaml:"compress,omitempty"`
	Proxy           string            `yaml:"proxy,omitempty"`
	Insecure        *bool             `yaml:"insecure,omitempty"`
	NoColor         *bool             `yaml:"noColor,omitempty"`
	DNS             *DNSConfig        `yaml:"dns,omitempty"`
}

// DNSConfig mirrors [centra.ResolveConfig].
type DNSConfig struct {
	Server  string            `yaml:"server,omitempty"`
	Network string            `yaml:"network,omitempty"` // ip4 or ip6
	Hosts   map[string]string `yaml:"hosts,omitempty"`
}

func (d *DNSConfig) resolveConfig() *centra.ResolveConfig {
	if d == nil || (d.Server == "" && d.Network == "" && len(d.Hosts) == 0) {
		return nil
	}
	return &centra.ResolveConfig{
		CustomDNSServer: d.Server,
		Network:         d.Network,
		StaticHosts:     d.Hosts,
	}
}

func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// ConfigFilenames are searched for in the working directory when no
// --config is given.
var ConfigFilenames = []string{
	".centra.yaml",
	".centra.yml",
	"centra.yaml",
}

// LoadConfig loads the config at path, or the first of [ConfigFilenames]
// found in the working directory. No file means an empty config.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}
	return &Config{}, nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if n := cfg.DNS; n != nil && n.Network != "" && n.Network != "ip4" && n.Network != "ip6" {
		return nil, fmt.Errorf("parse config %s: dns network must be ip4 or ip6, got %q", path, n.Network)
	}
	return cfg, nil
}
