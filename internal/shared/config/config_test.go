package config

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-that-is-long-enough-0123456789"

func TestInit_DefaultsApplied(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	if err := Init(); err != nil {
		t.Fatalf("expected config to load with defaults, got %v", err)
	}

	cfg := GlobalConfig
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Game.ExtractionMaxPerCall != 5 {
		t.Fatalf("expected extraction cap 5, got %d", cfg.Game.ExtractionMaxPerCall)
	}
	if cfg.Game.TravelTime != 3*time.Second {
		t.Fatalf("expected travel time 3s, got %v", cfg.Game.TravelTime)
	}
	if cfg.Game.SweepGrace != 7*time.Second {
		t.Fatalf("expected sweep grace 7s, got %v", cfg.Game.SweepGrace)
	}
	if cfg.Game.InventoryCapacity != 300 {
		t.Fatalf("expected inventory capacity 300, got %d", cfg.Game.InventoryCapacity)
	}
	if cfg.Game.StorageCapacity != 1000 {
		t.Fatalf("expected storage capacity 1000, got %d", cfg.Game.StorageCapacity)
	}
	if cfg.Game.StorageCapPerOwner != 10 {
		t.Fatalf("expected storage cap per owner 10, got %d", cfg.Game.StorageCapPerOwner)
	}
	if cfg.Game.StorageMinSeparation != 5.0 {
		t.Fatalf("expected min separation 5.0, got %v", cfg.Game.StorageMinSeparation)
	}
	if cfg.Game.OfferWindow != 5*time.Minute {
		t.Fatalf("expected offer window 5m, got %v", cfg.Game.OfferWindow)
	}
	if cfg.Game.BatchMaxPerFrequency != 5 || cfg.Game.BatchMaxTotal != 30 {
		t.Fatalf("expected batch limits 5/30, got %d/%d",
			cfg.Game.BatchMaxPerFrequency, cfg.Game.BatchMaxTotal)
	}
	if cfg.Game.RelayBufferCapacity != 30 {
		t.Fatalf("expected relay buffer capacity 30, got %d", cfg.Game.RelayBufferCapacity)
	}
	if cfg.Game.RelayChargePerRoute != 2.5 {
		t.Fatalf("expected relay charge 2.5, got %v", cfg.Game.RelayChargePerRoute)
	}
	if cfg.Game.RelayTransitWindow != 2*time.Second {
		t.Fatalf("expected relay transit window 2s, got %v", cfg.Game.RelayTransitWindow)
	}
	if cfg.Admin.Username != "admin" {
		t.Fatalf("expected default admin username, got %q", cfg.Admin.Username)
	}
}

func TestInit_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if err := Init(); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestInit_RejectsShortJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	err := Init()
	if err == nil {
		t.Fatalf("expected error for short JWT_SECRET")
	}
	if !strings.Contains(err.Error(), "32 characters") {
		t.Fatalf("expected length complaint, got %v", err)
	}
}

func TestInit_EnvironmentOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("GAME_EXTRACTION_MAX_PER_CALL", "9")
	t.Setenv("GAME_TRAVEL_TIME_MS", "1500")
	t.Setenv("GAME_INVENTORY_CAPACITY", "50")
	t.Setenv("SERVER_PORT", "9090")

	if err := Init(); err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}

	cfg := GlobalConfig
	if cfg.Game.ExtractionMaxPerCall != 9 {
		t.Fatalf("expected overridden extraction cap 9, got %d", cfg.Game.ExtractionMaxPerCall)
	}
	if cfg.Game.TravelTime != 1500*time.Millisecond {
		t.Fatalf("expected overridden travel time 1.5s, got %v", cfg.Game.TravelTime)
	}
	if cfg.Game.InventoryCapacity != 50 {
		t.Fatalf("expected overridden inventory capacity 50, got %d", cfg.Game.InventoryCapacity)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected overridden port 9090, got %q", cfg.Server.Port)
	}
}

func TestInit_RejectsZeroExtractionCap(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("GAME_EXTRACTION_MAX_PER_CALL", "0")

	if err := Init(); err == nil {
		t.Fatalf("expected error for zero extraction cap")
	}
}

func TestConnectionString(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DB_HOST", "dbhost")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "svc")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "pipeline")
	t.Setenv("DB_SSLMODE", "require")

	if err := Init(); err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}

	got := GlobalConfig.ConnectionString()
	want := "host=dbhost port=5433 user=svc password=pw dbname=pipeline sslmode=require"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
