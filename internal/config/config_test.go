package config

import "testing"

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("SKALD_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("SKALD_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("SKALD_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected DB DSN to be set")
	}
	if cfg.JWTSigningKey != "supersecret" {
		t.Fatalf("unexpected jwt signing key: %q", cfg.JWTSigningKey)
	}
	if cfg.SegmentDuration != 10 {
		t.Fatalf("unexpected default segment duration: %d", cfg.SegmentDuration)
	}
}

func TestLoadParsesBitrateLadder(t *testing.T) {
	t.Setenv("SKALD_DB_DSN", "file::memory:")
	t.Setenv("SKALD_DB_BACKEND", "sqlite")
	t.Setenv("SKALD_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("SKALD_BITRATES", "64000, 128000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.Bitrates) != 2 || cfg.Bitrates[0] != 64000 || cfg.Bitrates[1] != 128000 {
		t.Fatalf("unexpected bitrate ladder: %v", cfg.Bitrates)
	}
}

func TestLoadRejectsEmptyBitrateEntry(t *testing.T) {
	t.Setenv("SKALD_DB_DSN", "file::memory:")
	t.Setenv("SKALD_DB_BACKEND", "sqlite")
	t.Setenv("SKALD_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("SKALD_BITRATES", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected zero bitrate to fail validation")
	}
}

func TestLoadS3BackendRequiresBucket(t *testing.T) {
	t.Setenv("SKALD_DB_DSN", "file::memory:")
	t.Setenv("SKALD_DB_BACKEND", "sqlite")
	t.Setenv("SKALD_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("SKALD_STORAGE_BACKEND", "s3")

	if _, err := Load(); err == nil {
		t.Fatal("expected s3 backend without bucket to fail validation")
	}

	t.Setenv("SKALD_S3_BUCKET", "skald-media")
	if _, err := Load(); err != nil {
		t.Fatalf("expected s3 backend with bucket to load: %v", err)
	}
}
