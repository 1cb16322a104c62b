package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFeedsAdminPassword(t *testing.T) {
	// Registers a restore, then clears the variable for this test.
	t.Setenv(AdminPasswordEnv, "")
	os.Unsetenv(AdminPasswordEnv)

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("# secrets\n"+AdminPasswordEnv+"=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AdminPassword != "from-dotenv" {
		t.Errorf("expected password from dotenv, got %q", cfg.AdminPassword)
	}
}

func TestLoadEnvKeepsExisting(t *testing.T) {
	t.Setenv(AdminPasswordEnv, "from-shell")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(AdminPasswordEnv+"=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv(AdminPasswordEnv); got != "from-shell" {
		t.Errorf("expected shell value to win, got %q", got)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
	if err := LoadEnv(""); err != nil {
		t.Errorf("empty path should be ignored, got %v", err)
	}
}
