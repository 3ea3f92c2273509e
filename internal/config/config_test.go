package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Role != RoleUser {
		t.Errorf("expected RoleUser, got %s", cfg.Role)
	}
	if cfg.Identity.KeyFile != "node.key" {
		t.Errorf("expected node.key, got %s", cfg.Identity.KeyFile)
	}
	if cfg.Network.ListenPort != 8000 {
		t.Errorf("expected listen port 8000, got %d", cfg.Network.ListenPort)
	}
	if cfg.Miner.Difficulty != 3 {
		t.Errorf("expected difficulty 3, got %d", cfg.Miner.Difficulty)
	}
	if cfg.Miner.BlockBudget != -1 {
		t.Errorf("expected block budget -1 (forever), got %d", cfg.Miner.BlockBudget)
	}
}

func TestLoadConfigCreatesDefaultOnFirstRun(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := LoadConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Storage.DataDir != dataDir {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, dataDir)
	}

	if _, err := os.Stat(ConfigPath(dataDir)); err != nil {
		t.Errorf("config file was not created: %v", err)
	}
}

func TestLoadConfigReadsExisting(t *testing.T) {
	dataDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Identity.Name = "custom-name"
	if err := cfg.Save(ConfigPath(dataDir)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Identity.Name != "custom-name" {
		t.Errorf("Identity.Name = %q, want custom-name", loaded.Identity.Name)
	}
}

func TestConfigPathExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	got := ConfigPath("~/dini-config-test")
	want := filepath.Join(home, "dini-config-test", ConfigFileName)
	if got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
}
