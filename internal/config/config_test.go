package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewFromEnvDefaults(t *testing.T) {
	cfg, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DBPath != "mealcart.db" {
		t.Errorf("DBPath = %q, want mealcart.db", cfg.DBPath)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log = %q/%q, want info/text", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.PastPeriods != 8 || cfg.FuturePeriods != 4 {
		t.Errorf("window = %d/%d, want 8/4", cfg.PastPeriods, cfg.FuturePeriods)
	}
	if cfg.StoreTimeout != 5*time.Second {
		t.Errorf("StoreTimeout = %v, want 5s", cfg.StoreTimeout)
	}
	if cfg.GenerateRateLimit != 20 {
		t.Errorf("GenerateRateLimit = %d, want 20", cfg.GenerateRateLimit)
	}
	if cfg.BackupInterval != 0 || cfg.BackupEnabled() {
		t.Errorf("backups should be disabled by default")
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", cfg.Location)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
}

func TestNewFromEnvOverrides(t *testing.T) {
	t.Setenv("MEALCART_PORT", "9090")
	t.Setenv("MEALCART_DB_PATH", "/var/lib/mealcart/data.db")
	t.Setenv("MEALCART_LOG_LEVEL", "DEBUG")
	t.Setenv("MEALCART_LOG_FORMAT", "json")
	t.Setenv("MEALCART_TIMEZONE", "America/Denver")
	t.Setenv("MEALCART_PAST_PERIODS", "12")
	t.Setenv("MEALCART_FUTURE_PERIODS", "2")
	t.Setenv("MEALCART_STORE_TIMEOUT", "750ms")
	t.Setenv("MEALCART_GENERATE_RATE_LIMIT", "5")
	t.Setenv("MEALCART_WS_ORIGIN_PATTERNS", "app.example.com,*.example.com")
	t.Setenv("MEALCART_S3_BUCKET", "backups")
	t.Setenv("MEALCART_S3_ACCESS_KEY", "ak")
	t.Setenv("MEALCART_S3_SECRET_KEY", "sk")
	t.Setenv("MEALCART_BACKUP_PASSPHRASE", "hunter2")
	t.Setenv("MEALCART_BACKUP_INTERVAL", "6h")

	cfg, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.DBPath != "/var/lib/mealcart/data.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("log = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Location.String() != "America/Denver" {
		t.Errorf("Location = %v", cfg.Location)
	}
	if cfg.PastPeriods != 12 || cfg.FuturePeriods != 2 {
		t.Errorf("window = %d/%d", cfg.PastPeriods, cfg.FuturePeriods)
	}
	if cfg.StoreTimeout != 750*time.Millisecond {
		t.Errorf("StoreTimeout = %v", cfg.StoreTimeout)
	}
	if cfg.GenerateRateLimit != 5 {
		t.Errorf("GenerateRateLimit = %d", cfg.GenerateRateLimit)
	}
	if len(cfg.WSOriginPatterns) != 2 || cfg.WSOriginPatterns[1] != "*.example.com" {
		t.Errorf("WSOriginPatterns = %v", cfg.WSOriginPatterns)
	}
	if !cfg.BackupEnabled() || cfg.BackupInterval != 6*time.Hour {
		t.Errorf("backup enabled=%v interval=%v", cfg.BackupEnabled(), cfg.BackupInterval)
	}
}

func TestNewFromEnvInvalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"non-numeric port", "MEALCART_PORT", "http", "parse config"},
		{"port out of range", "MEALCART_PORT", "70000", "MEALCART_PORT"},
		{"negative past periods", "MEALCART_PAST_PERIODS", "-1", "MEALCART_PAST_PERIODS"},
		{"bad duration", "MEALCART_STORE_TIMEOUT", "soon", "parse config"},
		{"zero timeout", "MEALCART_STORE_TIMEOUT", "0s", "MEALCART_STORE_TIMEOUT"},
		{"unknown level", "MEALCART_LOG_LEVEL", "verbose", "MEALCART_LOG_LEVEL"},
		{"unknown format", "MEALCART_LOG_FORMAT", "xml", "MEALCART_LOG_FORMAT"},
		{"unknown timezone", "MEALCART_TIMEZONE", "Mars/Olympus", "MEALCART_TIMEZONE"},
		{"zero rate limit", "MEALCART_GENERATE_RATE_LIMIT", "0", "MEALCART_GENERATE_RATE_LIMIT"},
		{"interval without s3", "MEALCART_BACKUP_INTERVAL", "1h", "MEALCART_BACKUP_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := NewFromEnv()
			if err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mealcart.yaml")
	body := "port: 7070\npast_periods: 3\nstore_timeout: 2s\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MEALCART_PAST_PERIODS", "6")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070 from file", cfg.Port)
	}
	if cfg.PastPeriods != 6 {
		t.Errorf("PastPeriods = %d, want env override 6", cfg.PastPeriods)
	}
	if cfg.StoreTimeout != 2*time.Second {
		t.Errorf("StoreTimeout = %v, want 2s", cfg.StoreTimeout)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
