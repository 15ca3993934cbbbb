package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFillsDefaults(t *testing.T) {
	path := writeConfig(t, "listen: \":9100\"\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Listen != ":9100" {
		t.Errorf("listen = %q, want :9100", cfg.Listen)
	}
	if cfg.MaxClientsPerRoom != 32 {
		t.Errorf("max_clients_per_room = %d, want default 32", cfg.MaxClientsPerRoom)
	}
	if cfg.RetainedCap != 1024 {
		t.Errorf("retained_cap = %d, want default 1024", cfg.RetainedCap)
	}
}

func TestLoadConfigFull(t *testing.T) {
	path := writeConfig(t, `
listen: ":9200"
max_clients_per_room: 8
retained_cap: 64
write_timeout: 2s
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxClientsPerRoom != 8 || cfg.RetainedCap != 64 {
		t.Errorf("limits = %d/%d, want 8/64", cfg.MaxClientsPerRoom, cfg.RetainedCap)
	}
	if got := cfg.GetWriteTimeout(); got != 2*time.Second {
		t.Errorf("write timeout = %v, want 2s", got)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults ok", func(c *Config) {}, false},
		{"empty listen", func(c *Config) { c.Listen = "" }, true},
		{"negative room cap", func(c *Config) { c.MaxClientsPerRoom = -1 }, true},
		{"negative retained cap", func(c *Config) { c.RetainedCap = -1 }, true},
		{"bad write timeout", func(c *Config) { c.WriteTimeout = "soon" }, true},
		{"empty write timeout ok", func(c *Config) { c.WriteTimeout = "" }, false},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); (err != nil) != tc.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestGetWriteTimeoutFallback(t *testing.T) {
	cfg := Config{WriteTimeout: ""}
	if got := cfg.GetWriteTimeout(); got != 10*time.Second {
		t.Errorf("empty timeout = %v, want 10s", got)
	}
	cfg.WriteTimeout = "250ms"
	if got := cfg.GetWriteTimeout(); got != 250*time.Millisecond {
		t.Errorf("parsed timeout = %v, want 250ms", got)
	}
}
