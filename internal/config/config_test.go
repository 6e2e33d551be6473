package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.CatalogTTLSeconds != 60 {
		t.Errorf("catalog ttl = %d, want 60", cfg.CatalogTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Errorf("token ttl = %d, want 480", cfg.AccessTokenTTLMinutes)
	}
	if cfg.LogLevel != "info" || cfg.LogEncoding != "json" {
		t.Errorf("log config = %q/%q, want info/json", cfg.LogLevel, cfg.LogEncoding)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CATALOG_TTL_SECONDS", "bogus")
	t.Setenv("AUTH_SECRET", " secret \n")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Port)
	}
	if cfg.CatalogTTLSeconds != 60 {
		t.Errorf("catalog ttl = %d, want fallback 60 on bad value", cfg.CatalogTTLSeconds)
	}
	if cfg.AuthSecret != "secret" {
		t.Errorf("auth secret = %q, want trimmed", cfg.AuthSecret)
	}
	if cfg.Address() != ":9090" {
		t.Errorf("address = %q, want :9090", cfg.Address())
	}
}
