package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ROSTER_DATA_FILE", "ROSTER_CODEC", "ROSTER_COMPRESSION", "ROSTER_SOURCE",
		"ROSTER_SOURCE_URL", "ROSTER_NAT", "ROSTER_SEED", "ROSTER_MAX_BATCH",
		"ROSTER_FETCH_TIMEOUT", "ROSTER_RATE_LIMIT", "ROSTER_RETRIES",
		"ROSTER_MAX_SHORT_PAGES", "ROSTER_REFRESH_SCHEDULE", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY",
		"ROSTER_BUDGET_ENABLED", "ROSTER_BUDGET_DAILY_LIMIT", "ROSTER_BUDGET_WARN_AT", "TZ",
		"ROSTER_BACKUP_KEEP", "ROSTER_DEBUG",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Data.Path != "dados.txt" {
		t.Errorf("expected default data file dados.txt, got %s", cfg.Data.Path)
	}
	if cfg.Data.Codec != "json" || cfg.Data.Compression != "none" {
		t.Errorf("unexpected data defaults: %+v", cfg.Data)
	}
	if cfg.Source.Provider != "randomuser" || cfg.Source.MaxBatch != 5000 || cfg.Source.Nat != "us" {
		t.Errorf("unexpected source defaults: %+v", cfg.Source)
	}
	if cfg.Source.Timeout != 30*time.Second {
		t.Errorf("expected 30s fetch timeout, got %s", cfg.Source.Timeout)
	}
	if cfg.Builder.MaxShortPages != 3 {
		t.Errorf("expected 3 short pages, got %d", cfg.Builder.MaxShortPages)
	}
	if cfg.Storage.Enabled {
		t.Error("storage should be disabled without credentials")
	}
	if cfg.Storage.Keep != 0 {
		t.Errorf("expected unlimited backups, got keep=%d", cfg.Storage.Keep)
	}
	if cfg.Debug {
		t.Error("debug should be off by default")
	}
	if cfg.Refresh.Enabled {
		t.Error("refresh should be disabled without a schedule")
	}
	if cfg.Budget.Enabled || cfg.Budget.DailyLimit != 50000 || cfg.Budget.WarnAt != 0.8 {
		t.Errorf("unexpected budget defaults: %+v", cfg.Budget)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("expected UTC timezone, got %s", cfg.Timezone)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ROSTER_DATA_FILE", "/tmp/people.yaml")
	t.Setenv("ROSTER_CODEC", "yaml")
	t.Setenv("ROSTER_COMPRESSION", "zstd")
	t.Setenv("ROSTER_SOURCE", "synthetic")
	t.Setenv("ROSTER_MAX_BATCH", "3")
	t.Setenv("ROSTER_FETCH_TIMEOUT", "5s")
	t.Setenv("ROSTER_RETRIES", "2")
	t.Setenv("MINIO_ACCESS_KEY", "key")
	t.Setenv("MINIO_SECRET_KEY", "secret")
	t.Setenv("ROSTER_REFRESH_SCHEDULE", "0 3 * * *")
	t.Setenv("ROSTER_REFRESH_COUNT", "250")
	t.Setenv("ROSTER_BACKUP_KEEP", "7")
	t.Setenv("ROSTER_DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Data.Path != "/tmp/people.yaml" || cfg.Data.Codec != "yaml" || cfg.Data.Compression != "zstd" {
		t.Errorf("unexpected data config: %+v", cfg.Data)
	}
	if cfg.Source.Provider != "synthetic" || cfg.Source.MaxBatch != 3 || cfg.Source.Timeout != 5*time.Second {
		t.Errorf("unexpected source config: %+v", cfg.Source)
	}
	if cfg.Source.Retries != 2 {
		t.Errorf("expected 2 retries, got %d", cfg.Source.Retries)
	}
	if !cfg.Storage.Enabled || cfg.Storage.Keep != 7 {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
	if !cfg.Debug {
		t.Error("ROSTER_DEBUG=true should enable debug logging")
	}
	if !cfg.Refresh.Enabled || cfg.Refresh.Count != 250 {
		t.Errorf("unexpected refresh config: %+v", cfg.Refresh)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"ROSTER_CODEC", "xml"},
		{"ROSTER_COMPRESSION", "gzip"},
		{"ROSTER_SOURCE", "ldap"},
		{"ROSTER_MAX_BATCH", "many"},
		{"ROSTER_MAX_BATCH", "0"},
		{"ROSTER_FETCH_TIMEOUT", "soon"},
		{"ROSTER_RATE_LIMIT", "fast"},
		{"ROSTER_MAX_SHORT_PAGES", "x"},
		{"ROSTER_REFRESH_COUNT", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestHistoryConfig(t *testing.T) {
	t.Setenv("ROSTER_HISTORY_DB", "")
	if cfg := loadHistoryConfig(); cfg.Enabled {
		t.Error("empty ROSTER_HISTORY_DB should disable history")
	}

	t.Setenv("ROSTER_HISTORY_DB", "/tmp/h.db")
	if cfg := loadHistoryConfig(); !cfg.Enabled || cfg.Path != "/tmp/h.db" {
		t.Errorf("unexpected history config: %+v", cfg)
	}
}

func TestStorageKeep(t *testing.T) {
	for value, want := range map[string]int{"": 0, "3": 3, "0": 0, "-2": 0, "lots": 0} {
		t.Setenv("ROSTER_BACKUP_KEEP", value)
		if got := loadStorageConfig().Keep; got != want {
			t.Errorf("ROSTER_BACKUP_KEEP=%q: keep = %d, want %d", value, got, want)
		}
	}
}

func TestBudgetConfig(t *testing.T) {
	t.Setenv("ROSTER_BUDGET_ENABLED", "true")
	t.Setenv("ROSTER_BUDGET_DAILY_LIMIT", "12000")
	t.Setenv("ROSTER_BUDGET_WARN_AT", "0.5")

	cfg := loadBudgetConfig()
	if !cfg.Enabled || cfg.DailyLimit != 12000 || cfg.WarnAt != 0.5 {
		t.Errorf("unexpected budget config: %+v", cfg)
	}

	// out of range values fall back to defaults
	t.Setenv("ROSTER_BUDGET_DAILY_LIMIT", "-1")
	t.Setenv("ROSTER_BUDGET_WARN_AT", "1.5")

	cfg = loadBudgetConfig()
	if cfg.DailyLimit != 50000 || cfg.WarnAt != 0.8 {
		t.Errorf("expected defaults for invalid budget values, got %+v", cfg)
	}
}
