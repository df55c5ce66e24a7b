package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return path
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: test-radar
database:
  postgres:
    host: db.internal
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.App.Name != "test-radar" {
		t.Errorf("App.Name = %q", cfg.App.Name)
	}
	if cfg.Database.Postgres.Host != "db.internal" {
		t.Errorf("Host = %q", cfg.Database.Postgres.Host)
	}
	if cfg.Database.Postgres.Port != 5432 {
		t.Errorf("Port 应保留默认值, got %d", cfg.Database.Postgres.Port)
	}
	if cfg.Redis.TTL != 3*time.Minute {
		t.Errorf("Redis.TTL = %s", cfg.Redis.TTL)
	}
	if cfg.API.AutocompleteLimit != 10 {
		t.Errorf("AutocompleteLimit = %d", cfg.API.AutocompleteLimit)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, "redis:\n  ttl: 1m\n")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("NATS_URL", "nats://bus:4222")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Database.Postgres.Port != 6543 {
		t.Errorf("Port = %d", cfg.Database.Postgres.Port)
	}
	if cfg.Redis.Addr != "cache:6380" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
	if cfg.Redis.TTL != time.Minute {
		t.Errorf("Redis.TTL = %s", cfg.Redis.TTL)
	}
	if !cfg.NATS.Enabled || cfg.NATS.URL != "nats://bus:4222" {
		t.Errorf("NATS = %+v", cfg.NATS)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "redis:\n  ttl: 0s\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("ttl为0应报错")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("文件不存在应报错")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("APP_ENV", "prod")
	if got := GetDefaultConfigPath(); got != "configs/prod/app.yaml" {
		t.Errorf("got %q", got)
	}

	t.Setenv("CONFIG_PATH", "/etc/radar.yaml")
	if got := GetDefaultConfigPath(); got != "/etc/radar.yaml" {
		t.Errorf("got %q", got)
	}
}
