package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("POSTGRES_HOST", "testhost")
	t.Setenv("SNAPSHOT_FRESHNESS", "2m")
	t.Setenv("CLICKHOUSE_ENABLED", "true")
	t.Setenv("RISK_SCAM_CONTRACTS", "0xAAA, 0xbbb,,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}
	if cfg.Database.Postgres.Host != "testhost" {
		t.Errorf("Database.Postgres.Host = %v, want %v", cfg.Database.Postgres.Host, "testhost")
	}
	if cfg.Cache.SnapshotFreshness != 2*time.Minute {
		t.Errorf("Cache.SnapshotFreshness = %v, want %v", cfg.Cache.SnapshotFreshness, 2*time.Minute)
	}
	if !cfg.Database.ClickHouse.Enabled {
		t.Error("Database.ClickHouse.Enabled = false, want true")
	}
	if want := []string{"0xAAA", "0xbbb"}; !reflect.DeepEqual(cfg.Risk.ScamContracts, want) {
		t.Errorf("Risk.ScamContracts = %v, want %v", cfg.Risk.ScamContracts, want)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Cache.SnapshotFreshness != 5*time.Minute {
		t.Errorf("Cache.SnapshotFreshness = %v, want 5m", cfg.Cache.SnapshotFreshness)
	}
	if cfg.OneInch.Timeout != 10*time.Second {
		t.Errorf("OneInch.Timeout = %v, want 10s", cfg.OneInch.Timeout)
	}
	if cfg.OneInch.HistoryLimit != 50 {
		t.Errorf("OneInch.HistoryLimit = %v, want 50", cfg.OneInch.HistoryLimit)
	}
	if cfg.LLM.MaxTokens != 1024 {
		t.Errorf("LLM.MaxTokens = %v, want 1024", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("LLM.Timeout = %v, want 60s", cfg.LLM.Timeout)
	}
	if !cfg.Quota.Enabled || cfg.Quota.OneInchPerSecond != 1 || cfg.Quota.LLMPerMinute != 30 {
		t.Errorf("Quota = %+v, want enabled with 1/s and 30/min", cfg.Quota)
	}
}

func TestLoadConfig_RejectsNegativeQuota(t *testing.T) {
	t.Setenv("LLM_REQUESTS_PER_MINUTE", "-1")

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() error = nil, want error for negative quota")
	}
}

func TestLoadConfig_RejectsNonPositiveFreshness(t *testing.T) {
	t.Setenv("SNAPSHOT_FRESHNESS", "-1m")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() expected error for negative freshness")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "200")
	t.Setenv("TEST_INT_INVALID", "invalid")
	t.Setenv("TEST_FLOAT", "0.5")
	t.Setenv("TEST_BOOL", "yes")
	t.Setenv("TEST_DURATION", "30s")

	if got := getEnv("TEST_NOT_SET", "default"); got != "default" {
		t.Errorf("getEnv() = %v, want default", got)
	}
	if got := getEnvAsInt("TEST_INT", 100); got != 200 {
		t.Errorf("getEnvAsInt() = %v, want 200", got)
	}
	if got := getEnvAsInt("TEST_INT_INVALID", 100); got != 100 {
		t.Errorf("getEnvAsInt() = %v, want 100", got)
	}
	if got := getEnvAsFloat("TEST_FLOAT", 1); got != 0.5 {
		t.Errorf("getEnvAsFloat() = %v, want 0.5", got)
	}
	if got := getEnvAsBool("TEST_BOOL", true); got != true {
		t.Errorf("getEnvAsBool() with unparseable value = %v, want default true", got)
	}
	if got := getEnvAsDuration("TEST_DURATION", time.Second); got != 30*time.Second {
		t.Errorf("getEnvAsDuration() = %v, want 30s", got)
	}
	if got := getEnvAsList("TEST_LIST_NOT_SET", nil); got != nil {
		t.Errorf("getEnvAsList() = %v, want nil", got)
	}
}
