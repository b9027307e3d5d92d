// Package appconfig loads ionhash's CLI configuration: which algorithm to
// hash with by default, and how to log.
package appconfig

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ionhash/internal/applog"
)

// Config is the root configuration document.
type Config struct {
	Version   int            `yaml:"version"`
	Algorithm string         `yaml:"algorithm"`
	Logging   applog.Config  `yaml:"logging"`
}

// Validate checks what matters for a hashing CLI: a known configuration
// version, a recognized algorithm name, and a valid logging section.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("appconfig: unsupported configuration version %d", c.Version)
	}
	switch c.Algorithm {
	case "sha256", "sha1", "md5", "sha512", "blake2b256":
	default:
		return fmt.Errorf("appconfig: unknown algorithm %q", c.Algorithm)
	}
	return c.Logging.Validate()
}

// defaultConfig is the configuration used when no file is provided.
func defaultConfig() *Config {
	return &Config{
		Version:   1,
		Algorithm: "sha256",
		Logging: applog.Config{
			Console: applog.LoggerConfig{Level: "normal"},
		},
	}
}

// Load reads the configuration from path, superimposing its values on the
// default configuration, and validates the result. An empty path returns
// the default configuration unchanged.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("appconfig: reading config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("appconfig: decoding config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("appconfig: invalid configuration: %w", err)
	}
	return cfg, nil
}

// Dump marshals cfg back to YAML.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("appconfig: marshaling config: %w", err)
	}
	return data, nil
}
