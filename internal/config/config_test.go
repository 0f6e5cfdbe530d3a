package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("GEO_PROVIDERS", "")
	t.Setenv("CONTACT_COOLDOWN", "")
	t.Setenv("ADMIN_ROLES", "")
	t.Setenv("REALTIME_CHANNEL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.GeoProviderTimeout != 4*time.Second {
		t.Fatalf("expected 4s geo timeout, got %s", cfg.GeoProviderTimeout)
	}
	if len(cfg.GeoProviders) != 3 || cfg.GeoProviders[0] != "ipapi" {
		t.Fatalf("unexpected default providers: %v", cfg.GeoProviders)
	}
	if cfg.ContactCooldown != 3*time.Second {
		t.Fatalf("expected 3s cooldown, got %s", cfg.ContactCooldown)
	}
	if cfg.ExportTZLabel != "PH" || cfg.ExportTimezone != "Asia/Manila" {
		t.Fatalf("unexpected export tz defaults: %s %s", cfg.ExportTimezone, cfg.ExportTZLabel)
	}
	if cfg.AnalyticsEnabled {
		t.Fatalf("expected analytics disabled by default")
	}
	if len(cfg.AdminRoles) != 1 || cfg.AdminRoles[0] != "admin" {
		t.Fatalf("unexpected default admin roles: %v", cfg.AdminRoles)
	}
	if cfg.RealtimeChannel != "admin_notifications:changes" {
		t.Fatalf("unexpected realtime channel %q", cfg.RealtimeChannel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("GEO_PROVIDERS", "ipwho, ipapi ,")
	t.Setenv("GEO_PROVIDER_TIMEOUT", "2s")
	t.Setenv("CONTACT_COOLDOWN", "10s")
	t.Setenv("PUBLIC_RATE_LIMIT_RPS", "2.5")
	t.Setenv("ANALYTICS_ENABLED", "true")
	t.Setenv("LEAD_ALERT_RECIPIENTS", "a@example.com,b@example.com")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if len(cfg.GeoProviders) != 2 || cfg.GeoProviders[0] != "ipwho" || cfg.GeoProviders[1] != "ipapi" {
		t.Fatalf("unexpected providers: %v", cfg.GeoProviders)
	}
	if cfg.GeoProviderTimeout != 2*time.Second {
		t.Fatalf("expected geo timeout override, got %s", cfg.GeoProviderTimeout)
	}
	if cfg.ContactCooldown != 10*time.Second {
		t.Fatalf("expected cooldown override, got %s", cfg.ContactCooldown)
	}
	if cfg.PublicRateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.PublicRateLimitRPS)
	}
	if !cfg.AnalyticsEnabled {
		t.Fatalf("expected analytics enabled")
	}
	if len(cfg.LeadAlertRecipients) != 2 {
		t.Fatalf("expected two alert recipients, got %v", cfg.LeadAlertRecipients)
	}
}
