package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "budget.yaml", `
program: |
  fn main(argc: int) -> () := argc
config:
  max_steps: 5
expect:
  exitCode: 4
  codes: [E_BUDGET]
`)
	s, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "budget" {
		t.Errorf("Name = %q, want budget", s.Name)
	}
	if s.Cmd != "run" {
		t.Errorf("Cmd = %q, want run", s.Cmd)
	}
	if s.Expect.ExitCode != 4 || len(s.Expect.Codes) != 1 || s.Expect.Codes[0] != "E_BUDGET" {
		t.Errorf("Expect = %+v", s.Expect)
	}
	if s.Expect.Stdout != nil {
		t.Errorf("Stdout = %q, want unset", *s.Expect.Stdout)
	}
	cfg := s.Config.Apply()
	if cfg.MaxSteps != 5 || !cfg.StrictGuards {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoadScenario_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "expect: [")
	if _, err := LoadScenario(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestApplyNil(t *testing.T) {
	var c *ScenarioConfig
	cfg := c.Apply()
	if !cfg.Annotate || cfg.MaxSteps != 0 {
		t.Errorf("nil overrides changed defaults: %+v", cfg)
	}
}

func TestListScenarios(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "")
	writeFile(t, dir, "a.yml", "")
	writeFile(t, dir, "notes.txt", "")
	if err := os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := ListScenarios(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a.yml" || filepath.Base(files[1]) != "b.yaml" {
		t.Errorf("ListScenarios = %v", files)
	}
}
