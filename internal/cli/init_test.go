package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/stackscan/internal/config"
)

func TestInitCommandWritesStarterConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "stackscan.config.yml")
	loader := &config.Loader{ConfigPath: path, EnvFile: filepath.Join(dir, ".env")}

	stdout, _, err := executeCmd(newInitCmd(loader))
	if err != nil {
		t.Fatalf("init command failed: %v", err)
	}

	if !strings.Contains(stdout, path) {
		t.Fatalf("expected config path in message, got: %s", stdout)
	}

	cfg, err := loader.Load(config.Overrides{})
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.MaxEvidence != 3 || cfg.Format != "json" {
		t.Fatalf("unexpected starter values: %#v", cfg)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "**/testdata" {
		t.Fatalf("unexpected starter excludes: %#v", cfg.Exclude)
	}
}

func TestInitCommandRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stackscan.config.yml")
	if err := os.WriteFile(path, []byte("format: table\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	loader := &config.Loader{ConfigPath: path, EnvFile: filepath.Join(dir, ".env")}

	_, _, err := executeCmd(newInitCmd(loader))
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "format: table\n" {
		t.Fatalf("existing config was modified: %q", data)
	}

	if _, _, err := executeCmd(newInitCmd(loader), "--force"); err != nil {
		t.Fatalf("init --force failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), "maxEvidence: 3") {
		t.Fatalf("expected starter config after --force, got %q", data)
	}
}
