// Package testutil provides shared test helpers for Rev tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/rev/pkg/config"
)

// ScenariosDir is the relative path from the module root to the shared scenarios.
const ScenariosDir = "testdata/scenarios"

// Scenario is one end-to-end case loaded from a YAML file.
type Scenario struct {
	Name    string          `yaml:"name"`
	Cmd     string          `yaml:"cmd"`
	Program string          `yaml:"program"`
	Stdin   string          `yaml:"stdin,omitempty"`
	Config  *ScenarioConfig `yaml:"config,omitempty"`
	Tags    []string        `yaml:"tags,omitempty"`
	Expect  ExpectedResult  `yaml:"expect"`
}

// ScenarioConfig overrides the default configuration for a scenario.
type ScenarioConfig struct {
	MaxSteps     *int64 `yaml:"max_steps,omitempty"`
	TimeoutMs    *int64 `yaml:"timeout_ms,omitempty"`
	StrictGuards *bool  `yaml:"strict_guards,omitempty"`
	Annotate     *bool  `yaml:"annotate,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode       int      `yaml:"exitCode"`
	Stdout         *string  `yaml:"stdout,omitempty"`
	StdoutContains string   `yaml:"stdoutContains,omitempty"`
	Codes          []string `yaml:"codes,omitempty"`
}

// Apply returns the default configuration with the scenario overrides.
func (c *ScenarioConfig) Apply() *config.Config {
	cfg := config.Default()
	if c == nil {
		return cfg
	}
	if c.MaxSteps != nil {
		cfg.MaxSteps = *c.MaxSteps
	}
	if c.TimeoutMs != nil {
		cfg.TimeoutMs = *c.TimeoutMs
	}
	if c.StrictGuards != nil {
		cfg.StrictGuards = *c.StrictGuards
	}
	if c.Annotate != nil {
		cfg.Annotate = *c.Annotate
	}
	return cfg
}

// LoadScenario loads a scenario file. The name defaults to the file name.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if s.Cmd == "" {
		s.Cmd = "run"
	}
	return &s, nil
}

// ListScenarios returns the scenario files under root, sorted by name.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
