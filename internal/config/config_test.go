package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Care.WindowStart != "06:00" {
		t.Errorf("expected window_start 06:00, got %s", cfg.Care.WindowStart)
	}
	if cfg.Care.WindowEnd != "21:00" {
		t.Errorf("expected window_end 21:00, got %s", cfg.Care.WindowEnd)
	}
	if cfg.LLM.Provider != "copilot" {
		t.Errorf("expected provider copilot, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %s", cfg.LLM.Model)
	}
	if cfg.Identity.Parent == "" {
		t.Error("expected a default parent identity")
	}
	if cfg.Storage.DBPath == "" {
		t.Error("expected a default db path")
	}
}

func TestLoadFrom_FileNotExists(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should return defaults
	if cfg.Care.WindowStart != "06:00" {
		t.Errorf("expected default window_start, got %s", cfg.Care.WindowStart)
	}
}

func TestLoadFrom_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[care]
window_start = "07:00"
window_end = "19:00"

[identity]
parent = "alex"

[llm]
provider = "ollama"
model = "llama3.2"
base_url = "http://localhost:11435"

[storage]
db_path = "/tmp/test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Care.WindowStart != "07:00" || cfg.Care.WindowEnd != "19:00" {
		t.Errorf("care window = %s-%s, want 07:00-19:00", cfg.Care.WindowStart, cfg.Care.WindowEnd)
	}
	if cfg.Identity.Parent != "alex" {
		t.Errorf("parent = %s, want alex", cfg.Identity.Parent)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("provider = %s, want ollama", cfg.LLM.Provider)
	}
	if cfg.Storage.DBPath != "/tmp/test.db" {
		t.Errorf("db_path = %s, want /tmp/test.db", cfg.Storage.DBPath)
	}
}

func TestLoadFrom_InvalidWindow(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[care]
window_start = "19:00"
window_end = "07:00"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(configPath); err == nil {
		t.Error("expected error for inverted care window")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COPARENT_WINDOW_START", "08:00")
	t.Setenv("COPARENT_PARENT", "sam")
	t.Setenv("COPARENT_LLM_PROVIDER", "lmstudio")

	cfg, err := LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Care.WindowStart != "08:00" {
		t.Errorf("window_start = %s, want env override 08:00", cfg.Care.WindowStart)
	}
	if cfg.Identity.Parent != "sam" {
		t.Errorf("parent = %s, want sam", cfg.Identity.Parent)
	}
	if cfg.LLM.Provider != "lmstudio" {
		t.Errorf("provider = %s, want lmstudio", cfg.LLM.Provider)
	}
}

func TestCareWindow(t *testing.T) {
	cfg := Default()
	cfg.Care.WindowStart = "07:00"
	cfg.Care.WindowEnd = "19:30"

	w, err := cfg.CareWindow()
	if err != nil {
		t.Fatal(err)
	}
	if w.Start != 28 || w.End != 78 {
		t.Errorf("window = [%d,%d), want [28,78)", w.Start, w.End)
	}

	cfg.Care.WindowEnd = "24:00"
	w, err = cfg.CareWindow()
	if err != nil {
		t.Fatal(err)
	}
	if w.End != 96 {
		t.Errorf("End = %d, want 96 for 24:00", w.End)
	}
}

func TestValidate_MissingParent(t *testing.T) {
	cfg := Default()
	cfg.Identity.Parent = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty parent identity")
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.toml")

	cfg := Default()
	cfg.Care.WindowStart = "07:15"
	cfg.Identity.Parent = "alex"

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Care.WindowStart != "07:15" || loaded.Identity.Parent != "alex" {
		t.Errorf("reloaded config = %+v", loaded.Care)
	}
}
