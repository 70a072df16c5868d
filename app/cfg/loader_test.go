package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:              "./data/test.db",
		ChannelsDir:         "./channels",
		Port:                "8080",
		WebhookURL:          "https://hooks.example.com/ingest",
		WorkerCount:         3,
		SchedulerInterval:   60,
		APIAccessKey:        "test-key",
		MaxAgeDays:          30,
		CleanupIntervalDays: 7,
		SessionRetention:    100,
		SessionMaxAge:       30,
		UserAgent:           "Test Agent",
		UTCOffset:           -5,
		Debug:               true,
		Version:             "test-version",
	}

	if cfg.DBPath != "./data/test.db" {
		t.Errorf("Expected DB path './data/test.db', got '%s'", cfg.DBPath)
	}
	if cfg.ChannelsDir != "./channels" {
		t.Errorf("Expected channels dir './channels', got '%s'", cfg.ChannelsDir)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.WebhookURL != "https://hooks.example.com/ingest" {
		t.Errorf("Expected webhook URL 'https://hooks.example.com/ingest', got '%s'", cfg.WebhookURL)
	}
	if cfg.WorkerCount != 3 {
		t.Errorf("Expected worker count 3, got %d", cfg.WorkerCount)
	}
	if cfg.SchedulerInterval != 60 {
		t.Errorf("Expected scheduler interval 60, got %d", cfg.SchedulerInterval)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if cfg.MaxAgeDays != 30 {
		t.Errorf("Expected max age 30 days, got %d", cfg.MaxAgeDays)
	}
	if cfg.SessionRetention != 100 {
		t.Errorf("Expected session retention 100, got %d", cfg.SessionRetention)
	}
	if cfg.Version != "test-version" {
		t.Errorf("Expected version 'test-version', got '%s'", cfg.Version)
	}
}

func TestLocation(t *testing.T) {
	cfg := &Cfg{UTCOffset: -5}

	loc := cfg.Location()
	if loc == nil {
		t.Fatal("Location should not be nil")
	}

	// Offset must be fixed regardless of date (no DST)
	winter := time.Date(2025, 1, 15, 12, 0, 0, 0, loc)
	summer := time.Date(2025, 7, 15, 12, 0, 0, 0, loc)

	_, winterOffset := winter.Zone()
	_, summerOffset := summer.Zone()

	if winterOffset != -5*3600 {
		t.Errorf("Expected offset %d, got %d", -5*3600, winterOffset)
	}
	if winterOffset != summerOffset {
		t.Errorf("Offset should be fixed year-round, got %d and %d", winterOffset, summerOffset)
	}
}
