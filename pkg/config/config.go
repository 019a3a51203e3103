// Package config loads Rev toolchain settings from TOML or YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the settings that shape a run. Zero limits are unlimited.
type Config struct {
	Annotate     bool   `toml:"annotate" yaml:"annotate"`
	StrictGuards bool   `toml:"strict_guards" yaml:"strict_guards"`
	MaxSteps     int64  `toml:"max_steps" yaml:"max_steps"`
	TimeoutMs    int64  `toml:"timeout_ms" yaml:"timeout_ms"`
	Trace        string `toml:"trace" yaml:"trace"`
	Pretty       bool   `toml:"pretty" yaml:"pretty"`
}

// SourceDefault names the built-in defaults as a configuration source.
const SourceDefault = "defaults"

// Project and user file names, in lookup order.
var (
	projectFiles = []string{".rev.toml", ".rev.yaml", ".rev.yml"}
	userFile     = filepath.Join(".rev", "config.toml")
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Annotate:     true,
		StrictGuards: true,
	}
}

// Load loads configuration from project and user config files.
// Precedence: project (.rev.toml, .rev.yaml, .rev.yml) → user
// (~/.rev/config.toml) → defaults. It returns the path the settings came
// from, or SourceDefault. A file that exists but cannot be parsed is an
// error; missing files are skipped.
func Load(projectDir string) (*Config, string, error) {
	for _, name := range projectFiles {
		path := filepath.Join(projectDir, name)
		cfg, err := LoadFile(path)
		if err == nil {
			return cfg, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, userFile)
		cfg, err := LoadFile(path)
		if err == nil {
			return cfg, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}
	}

	return Default(), SourceDefault, nil
}

// LoadFile reads one configuration file. The format follows the extension:
// .yaml and .yml are YAML, anything else TOML. Keys absent from the file keep
// their defaults; unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, cfg)
	default:
		err = decodeTOML(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeTOML(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate rejects negative limits.
func (c *Config) Validate() error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative, got %d", c.MaxSteps)
	}
	if c.TimeoutMs < 0 {
		return fmt.Errorf("timeout_ms must not be negative, got %d", c.TimeoutMs)
	}
	return nil
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return err.Error()
	}
	return buf.String()
}
