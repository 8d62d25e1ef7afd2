// Package config reads the optional CLI settings file, ~/.encql.yaml,
// that lets common flags (master key path, DSN, output format) default
// to a saved value instead of being retyped on every invocation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/encql/encql/internal/errs"
)

// Config is the parsed form of ~/.encql.yaml.
type Config struct {
	DefaultMasterKeyFile string `yaml:"default_master_key_file"`
	DefaultDSN           string `yaml:"default_dsn"`
	OutputFormat         string `yaml:"output_format"`
}

// DefaultPath returns ~/.encql.yaml for the current user.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: DefaultPath: %w", errs.IOError{Err: err})
	}
	return filepath.Join(home, ".encql.yaml"), nil
}

// Load reads and parses the config file at path. A missing file is not
// an error: it returns a zero-value Config, since every setting has a
// flag-level fallback.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: Load: %w", errs.IOError{Err: err})
	}

	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("config: Load: %w", errs.FormatError{Reason: err.Error()})
	}
	return &c, nil
}

// MasterKeyFile returns flagValue if set, otherwise the config's default.
func (c *Config) MasterKeyFile(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return c.DefaultMasterKeyFile
}

// DSN returns flagValue if set, otherwise the config's default.
func (c *Config) DSN(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return c.DefaultDSN
}

// Format returns flagValue if set, otherwise the config's default,
// falling back to "table" if neither is set.
func (c *Config) Format(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if c.OutputFormat != "" {
		return c.OutputFormat
	}
	return "table"
}
