package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RunAddress != "localhost:8080" {
		t.Errorf("RunAddress = %q", cfg.RunAddress)
	}
	if cfg.SAPFormat != "atom" || cfg.SAPTimeout != 30*time.Second {
		t.Errorf("SAP format/timeout = %q / %v", cfg.SAPFormat, cfg.SAPTimeout)
	}
	if cfg.DashboardConcurrency != 6 || cfg.SessionTTL != 8*time.Hour {
		t.Errorf("concurrency/session ttl = %d / %v", cfg.DashboardConcurrency, cfg.SessionTTL)
	}
	if cfg.Location() == nil {
		t.Error("Location is nil")
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shopfloor.yaml")
	yaml := "run_address: file:1\nsap_format: json\ntimezone: Europe/Berlin\ndashboard_concurrency: 2\nsession_ttl: 2h\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DASHBOARD_CONCURRENCY", "4")

	cfg, err := Load([]string{"-config", path, "-a", "flag:2", "-dashboard-concurrency", "3"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"flag beats file", cfg.RunAddress, "flag:2"},
		{"file beats default", cfg.SAPFormat, "json"},
		{"env beats flag", cfg.DashboardConcurrency, 4},
		{"file duration", cfg.SessionTTL, 2 * time.Hour},
		{"timezone", cfg.Location().String(), "Europe/Berlin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad format", []string{"-sap-format", "csv"}},
		{"bad timezone", []string{"-tz", "Mars/Olympus"}},
		{"bad duration", []string{"-session-ttl", "forever"}},
		{"zero concurrency", []string{"-dashboard-concurrency", "0"}},
		{"bad log level", []string{"-log-level", "loud"}},
		{"missing config file", []string{"-config", "/nonexistent/shopfloor.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	lvl, err := cfg.SlogLevel()
	if err != nil || lvl != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, %v", lvl, err)
	}
}
