package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoaderLoadWithFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "stackscan.config.yml")
	writeFile(t, configPath, "maxEvidence: 5\nformat: markdown\nexclude:\n  - \"**/testdata\"\ndetectors: stacks\n")

	t.Setenv(envMaxEvidence, "7")
	t.Setenv(envIncludeTests, "true")

	loader := Loader{ConfigPath: configPath, EnvFile: filepath.Join(dir, ".env")}
	cfg, err := loader.Load(Overrides{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}

	if cfg.MaxEvidence != 7 {
		t.Fatalf("env override should set max evidence to 7, got %d", cfg.MaxEvidence)
	}

	if !cfg.IncludeTests {
		t.Fatal("expected include tests from env")
	}

	if cfg.Format != "markdown" {
		t.Fatalf("expected format markdown, got %s", cfg.Format)
	}

	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "**/testdata" {
		t.Fatalf("unexpected excludes: %#v", cfg.Exclude)
	}

	if len(cfg.Detectors) != 1 || cfg.Detectors[0] != "stacks" {
		t.Fatalf("unexpected detectors: %#v", cfg.Detectors)
	}
}

func TestFlagOverridesWin(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "stackscan.config.yml")
	writeFile(t, configPath, "format: table\nverbose: true\n")
	t.Setenv(envFormat, "sarif")

	one := 1
	quiet := false
	loader := Loader{ConfigPath: configPath, EnvFile: filepath.Join(dir, "missing.env")}
	cfg, err := loader.Load(Overrides{Format: "JSON", MaxEvidence: &one, Verbose: &quiet})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Format != "json" {
		t.Fatalf("expected flag to win with format json, got %s", cfg.Format)
	}
	if cfg.MaxEvidence != 1 {
		t.Fatalf("expected max evidence 1, got %d", cfg.MaxEvidence)
	}
	if cfg.Verbose {
		t.Fatal("explicit false flag should override file value")
	}
}

func TestDefaultsWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	loader := Loader{ConfigPath: filepath.Join(dir, "absent.yml"), EnvFile: filepath.Join(dir, ".env")}
	cfg, err := loader.Load(Overrides{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.MaxEvidence != DefaultMaxEvidence || cfg.Format != "json" || len(cfg.Detectors) != 2 {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestEnvFileFeedsExpansion(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	writeFile(t, envPath, "RULES_DIR=/opt/rules\nSTACKSCAN_OUTPUT=report.md\n")

	configPath := filepath.Join(dir, "stackscan.config.yml")
	writeFile(t, configPath, "rulesFile: ${RULES_DIR}/extra.yml\n")

	cfg, err := Loader{ConfigPath: configPath, EnvFile: envPath}.Load(Overrides{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.RulesFile != "/opt/rules/extra.yml" {
		t.Fatalf("expected expanded rules file, got %q", cfg.RulesFile)
	}
	if cfg.Output != "report.md" {
		t.Fatalf("expected output from env file, got %q", cfg.Output)
	}
	if _, set := os.LookupEnv("RULES_DIR"); set {
		t.Fatal("env file must not leak into the process environment")
	}
}

func TestMaxEvidenceIsClamped(t *testing.T) {
	dir := t.TempDir()
	zero := 0
	cfg, err := Loader{ConfigPath: filepath.Join(dir, "absent.yml"), EnvFile: filepath.Join(dir, ".env")}.Load(Overrides{MaxEvidence: &zero})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.MaxEvidence != 1 {
		t.Fatalf("expected max evidence clamped to 1, got %d", cfg.MaxEvidence)
	}
}

func TestInvalidEnvValue(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envMaxEvidence, "lots")

	_, err := Loader{ConfigPath: filepath.Join(dir, "absent.yml"), EnvFile: filepath.Join(dir, ".env")}.Load(Overrides{})
	if err == nil {
		t.Fatal("expected error for non-numeric max evidence")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RuntimeConfig)
		wantErr bool
	}{
		{"defaults", func(*RuntimeConfig) {}, false},
		{"unknown format", func(c *RuntimeConfig) { c.Format = "xml" }, true},
		{"sarif", func(c *RuntimeConfig) { c.Format = "sarif" }, false},
		{"no detectors", func(c *RuntimeConfig) { c.Detectors = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRuntimeConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	got := ParseList("stacks, deploy\n  extra")
	if len(got) != 3 || got[0] != "stacks" || got[2] != "extra" {
		t.Fatalf("unexpected list: %#v", got)
	}
	if ParseList("  ") != nil {
		t.Fatal("expected nil for blank input")
	}
}
