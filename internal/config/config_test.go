package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database_url: postgres://localhost/litassist
jwt_secret: test-secret
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, int64(50<<20))
	}
	if len(cfg.AllowedExtensions) == 0 {
		t.Error("AllowedExtensions is empty, want defaults")
	}
}

func TestLoadParsesTokenTTL(t *testing.T) {
	path := writeConfig(t, `
database_url: postgres://localhost/litassist
jwt_secret: test-secret
token_ttl: 2h30m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := time.Duration(cfg.TokenTTL); got != 2*time.Hour+30*time.Minute {
		t.Errorf("TokenTTL = %v, want 2h30m", got)
	}
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	path := writeConfig(t, `
jwt_secret: test-secret
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want error for missing database_url")
	}
}

func TestLoadMissingJWTSecret(t *testing.T) {
	path := writeConfig(t, `
database_url: postgres://localhost/litassist
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want error for missing jwt_secret")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database_url: postgres://localhost/litassist
jwt_secret: from-file
port: 9000
`)
	t.Setenv("LITASSIST_PORT", "9100")
	t.Setenv("LITASSIST_JWT_SECRET", "from-env")
	t.Setenv("LITASSIST_ALLOWED_EXTENSIONS", "pdf, txt")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Port)
	}
	if cfg.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q, want %q", cfg.JWTSecret, "from-env")
	}
	if len(cfg.AllowedExtensions) != 2 || cfg.AllowedExtensions[0] != "pdf" || cfg.AllowedExtensions[1] != "txt" {
		t.Errorf("AllowedExtensions = %v, want [pdf txt]", cfg.AllowedExtensions)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("LITASSIST_DATABASE_URL", "postgres://localhost/litassist")
	t.Setenv("LITASSIST_JWT_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Errorf("JWTSecret = %q, want %q", cfg.JWTSecret, "env-secret")
	}
}

func TestLoadInvalidPort(t *testing.T) {
	path := writeConfig(t, `
database_url: postgres://localhost/litassist
jwt_secret: test-secret
port: 70000
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() error = nil, want error for invalid port")
	}
}
