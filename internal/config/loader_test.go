package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Farm.BaseDomain != "wiki.local" {
		t.Errorf("base_domain = %q", cfg.Farm.BaseDomain)
	}
	if len(cfg.Farm.Categories) == 0 {
		t.Error("default categories empty")
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmd.yaml")
	yaml := `
server:
  port: "9090"
farm:
  base_domain: farm.example.org
  categories: [uncategorised, gaming]
cache:
  ttl: 30s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Farm.BaseDomain != "farm.example.org" {
		t.Errorf("base_domain = %q", cfg.Farm.BaseDomain)
	}
	if len(cfg.Farm.Categories) != 2 {
		t.Errorf("categories = %v", cfg.Farm.Categories)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("ttl = %v", cfg.Cache.TTL)
	}
	// Untouched sections keep their defaults.
	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("max_conns = %d", cfg.Postgres.MaxConns)
	}
}

func TestLoadFromEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmd.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	t.Setenv("FARMD_PORT", "7070")
	t.Setenv("FARMD_BASE_DOMAIN", "env.example.org")
	t.Setenv("FARMD_CACHE_TTL", "90s")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %q, want env value", cfg.Server.Port)
	}
	if cfg.Farm.BaseDomain != "env.example.org" {
		t.Errorf("base_domain = %q", cfg.Farm.BaseDomain)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("ttl = %v", cfg.Cache.TTL)
	}
}

func TestLoadFromRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmd.yaml")
	if err := os.WriteFile(path, []byte("farm:\n  categories: []\n  base_domain: x\n"), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("empty categories should fail validation")
	}

	if err := os.WriteFile(path, []byte("provisioner:\n  max_concurrent: 0\n"), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("zero max_concurrent should fail validation")
	}
}
