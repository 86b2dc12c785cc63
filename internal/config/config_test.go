package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.PoolSize != 40 {
		t.Errorf("expected default pool size 40, got %d", cfg.Database.PoolSize)
	}
	if cfg.Database.StatementTimeout != 30*time.Second {
		t.Errorf("expected default statement timeout 30s, got %v", cfg.Database.StatementTimeout)
	}
	if cfg.Store.Bucket != "bdp-artifacts" {
		t.Errorf("expected default bucket 'bdp-artifacts', got %q", cfg.Store.Bucket)
	}
	if !cfg.Store.UsePathStyle {
		t.Error("expected default store to use path-style addressing")
	}
	if cfg.Cache.MaxAgeDays != 7 {
		t.Errorf("expected default cache max age 7 days, got %d", cfg.Cache.MaxAgeDays)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.Logging.Level)
	}
	if host, ok := cfg.FTP.Hosts["uniprot"]; !ok || host.Host != "ftp.uniprot.org" {
		t.Errorf("expected default uniprot FTP host 'ftp.uniprot.org', got %+v", host)
	}
	if cfg.Concurrent.MaxWorkersPerJob != 16 {
		t.Errorf("expected default max workers per job 16, got %d", cfg.Concurrent.MaxWorkersPerJob)
	}
}

func TestLoadWithNoFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file should not error: %v", err)
	}
	if cfg.Database.URL == "" {
		t.Error("expected default database URL to survive a missing file")
	}
}

func TestLoadWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bdp.yaml")
	contents := []byte(`
database:
  url: "postgres://custom:custom@db:5432/bdp"
  pool_size: 10
store:
  bucket: "custom-bucket"
cache:
  max_age_days: 3
`)
	if err := os.WriteFile(path, contents, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.URL != "postgres://custom:custom@db:5432/bdp" {
		t.Errorf("expected overridden database URL, got %q", cfg.Database.URL)
	}
	if cfg.Database.PoolSize != 10 {
		t.Errorf("expected overridden pool size 10, got %d", cfg.Database.PoolSize)
	}
	if cfg.Store.Bucket != "custom-bucket" {
		t.Errorf("expected overridden bucket, got %q", cfg.Store.Bucket)
	}
	if cfg.Cache.MaxAgeDays != 3 {
		t.Errorf("expected overridden max age 3, got %d", cfg.Cache.MaxAgeDays)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bdp.yaml")
	if err := os.WriteFile(path, []byte(`database:
  url: "postgres://from-file@db:5432/bdp"
`), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://from-env@db:5432/bdp")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.URL != "postgres://from-env@db:5432/bdp" {
		t.Errorf("expected env var to take precedence over file, got %q", cfg.Database.URL)
	}
}

func TestLoadEnvFTPOverride(t *testing.T) {
	t.Setenv("BDP_FTP_UNIPROT_HOST", "mirror.example.org")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.FTP.Hosts["uniprot"].Host != "mirror.example.org" {
		t.Errorf("expected uniprot host override, got %q", cfg.FTP.Hosts["uniprot"].Host)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "bdp.yaml")

	cfg := DefaultConfig()
	cfg.Database.PoolSize = 99

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Database.PoolSize != 99 {
		t.Errorf("expected round-tripped pool size 99, got %d", loaded.Database.PoolSize)
	}
}

func TestExpandPath(t *testing.T) {
	if got := expandPath(""); got != "" {
		t.Errorf("expected empty string to pass through, got %q", got)
	}
	if got := expandPath("/absolute/path"); got != "/absolute/path" {
		t.Errorf("expected absolute path unchanged, got %q", got)
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("BDP_CONFIG", "/custom/bdp.yaml")
	if got := ConfigPath(); got != "/custom/bdp.yaml" {
		t.Errorf("expected BDP_CONFIG override, got %q", got)
	}
}
