package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_HOST", "")
	t.Setenv("BROKER", "")
	t.Setenv("PORT", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Redis.Enabled() {
		t.Error("Expected Redis to be disabled without REDIS_HOST")
	}
	if cfg.Broker.Kind != "none" {
		t.Errorf("Expected broker 'none' without Redis, got %q", cfg.Broker.Kind)
	}
	if cfg.Presence.TTL != 24*time.Hour {
		t.Errorf("Expected presence TTL 24h, got %v", cfg.Presence.TTL)
	}
	if cfg.InstanceID == "" {
		t.Error("Expected a generated instance id")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("BROKER", "")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("PRESENCE_TTL", "90s")
	t.Setenv("SEND_BUFFER", "not-a-number")

	cfg := Load()
	if cfg.Broker.Kind != "redis" {
		t.Errorf("Expected broker to default to redis, got %q", cfg.Broker.Kind)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins: %v", cfg.AllowedOrigins)
	}
	if !cfg.AuthRequired {
		t.Error("Expected AUTH_REQUIRED=true to be honoured")
	}
	if cfg.Presence.TTL != 90*time.Second {
		t.Errorf("Expected presence TTL 90s, got %v", cfg.Presence.TTL)
	}
	if cfg.SendBuffer != 256 {
		t.Errorf("Expected invalid SEND_BUFFER to fall back to 256, got %d", cfg.SendBuffer)
	}
}
