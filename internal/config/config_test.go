package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
payments:
  intent_ttl: 45m
  pix_key: chave@encontro.app
devotional:
  cache_ttl: 12h
remote:
  limits:
    free_likes_per_day: 99
  filters:
    radius_default_km: 80
    feed_page_size: 40
  timezone: UTC
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Remote.Limits.FreeLikesPerDay != 99 {
		t.Fatalf("unexpected free likes/day: %d", cfg.Remote.Limits.FreeLikesPerDay)
	}
	if cfg.Remote.Filters.RadiusDefaultKM != 80 {
		t.Fatalf("unexpected default radius: %d", cfg.Remote.Filters.RadiusDefaultKM)
	}
	if cfg.Remote.Filters.FeedPageSize != 40 {
		t.Fatalf("unexpected feed page size: %d", cfg.Remote.Filters.FeedPageSize)
	}
	if cfg.Remote.Timezone != "UTC" {
		t.Fatalf("unexpected timezone: %s", cfg.Remote.Timezone)
	}
	if cfg.Payments.IntentTTL.String() != "45m0s" {
		t.Fatalf("unexpected intent ttl: %s", cfg.Payments.IntentTTL)
	}
	if cfg.Payments.PixKey != "chave@encontro.app" {
		t.Fatalf("unexpected pix key: %s", cfg.Payments.PixKey)
	}
	if cfg.Devotional.CacheTTL.String() != "12h0m0s" {
		t.Fatalf("unexpected devotional cache ttl: %s", cfg.Devotional.CacheTTL)
	}

	if cfg.Remote.Filters.AgeMin != 18 {
		t.Fatalf("age_min default should stay 18, got %d", cfg.Remote.Filters.AgeMin)
	}
	if len(cfg.Payments.Plans) != 3 {
		t.Fatalf("plan defaults should stay, got %d plans", len(cfg.Payments.Plans))
	}
	if cfg.Payments.Plans[1].PriceCents != 2990 {
		t.Fatalf("silver plan price default should stay 2990, got %d", cfg.Payments.Plans[1].PriceCents)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.Remote.Limits.FreeLikesPerDay != 35 {
		t.Fatalf("unexpected default free likes/day: %d", cfg.Remote.Limits.FreeLikesPerDay)
	}
	if cfg.Remote.Filters.AgeMin != 18 || cfg.Remote.Filters.AgeMax != 65 {
		t.Fatalf("unexpected age defaults: %d-%d", cfg.Remote.Filters.AgeMin, cfg.Remote.Filters.AgeMax)
	}
	if cfg.Remote.Timezone != "America/Sao_Paulo" {
		t.Fatalf("unexpected default timezone: %s", cfg.Remote.Timezone)
	}
	if len(cfg.Remote.Cities) == 0 {
		t.Fatal("expected seeded city list")
	}
	if cfg.Payments.IntentTTL.String() != "30m0s" {
		t.Fatalf("unexpected default intent ttl: %s", cfg.Payments.IntentTTL)
	}
	if cfg.Auth.BcryptCost != 12 {
		t.Fatalf("unexpected default bcrypt cost: %d", cfg.Auth.BcryptCost)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("PAYMENTS_DEV_CONFIRM", "false")
	t.Setenv("JWT_ACCESS_TTL", "30m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9999" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Payments.DevConfirm {
		t.Fatal("dev confirm override should disable it")
	}
	if cfg.Auth.JWTAccessTTL.String() != "30m0s" {
		t.Fatalf("unexpected access ttl: %s", cfg.Auth.JWTAccessTTL)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_USE_SSL",
		"JWT_SECRET",
		"JWT_ACCESS_TTL",
		"REFRESH_TTL",
		"BCRYPT_COST",
		"FCM_CREDENTIALS_FILE",
		"FCM_PROJECT_ID",
		"PAYMENTS_PROVIDER",
		"PIX_KEY",
		"PAYMENTS_WEBHOOK_SECRET",
		"PAYMENTS_INTENT_TTL",
		"PAYMENTS_DEV_CONFIRM",
		"DEVOTIONAL_BASE_URL",
		"DEVOTIONAL_TRANSLATE_URL",
		"JOBS_CLEANUP_INTERVAL",
	} {
		t.Setenv(key, "")
	}
}
