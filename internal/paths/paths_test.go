package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	p := Get()

	if p.ConfigDir == "" {
		t.Error("ConfigDir should not be empty")
	}
	if p.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
	if p.CacheDir == "" {
		t.Error("CacheDir should not be empty")
	}
	if p.StateDir == "" {
		t.Error("StateDir should not be empty")
	}

	if !strings.Contains(p.ConfigDir, "bdp") {
		t.Errorf("ConfigDir should contain 'bdp', got %q", p.ConfigDir)
	}
	if !strings.Contains(p.DataDir, "bdp") {
		t.Errorf("DataDir should contain 'bdp', got %q", p.DataDir)
	}
}

func TestGetWithBDPEnv(t *testing.T) {
	t.Setenv("BDP_CONFIG_HOME", "/custom/config")
	t.Setenv("BDP_DATA_HOME", "/custom/data")
	t.Setenv("BDP_CACHE_HOME", "/custom/cache")
	t.Setenv("BDP_STATE_HOME", "/custom/state")

	p := Get()

	if p.ConfigDir != "/custom/config" {
		t.Errorf("expected ConfigDir '/custom/config', got %q", p.ConfigDir)
	}
	if p.DataDir != "/custom/data" {
		t.Errorf("expected DataDir '/custom/data', got %q", p.DataDir)
	}
	if p.CacheDir != "/custom/cache" {
		t.Errorf("expected CacheDir '/custom/cache', got %q", p.CacheDir)
	}
	if p.StateDir != "/custom/state" {
		t.Errorf("expected StateDir '/custom/state', got %q", p.StateDir)
	}
}

func TestGetWithXDGEnv(t *testing.T) {
	t.Setenv("BDP_CONFIG_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")

	p := Get()
	if p.ConfigDir != "/xdg/config/bdp" {
		t.Errorf("expected ConfigDir '/xdg/config/bdp', got %q", p.ConfigDir)
	}
}

func TestFetchCacheDir(t *testing.T) {
	t.Setenv("BDP_CACHE_DIR", "")
	t.Setenv("BDP_CACHE_HOME", "/custom/cache")

	dir := FetchCacheDir()
	if dir != "/custom/cache/releases" {
		t.Errorf("expected '/custom/cache/releases', got %q", dir)
	}
}

func TestFetchCacheDirWithEnv(t *testing.T) {
	t.Setenv("BDP_CACHE_DIR", "/override/cache")
	dir := FetchCacheDir()
	if dir != "/override/cache" {
		t.Errorf("expected '/override/cache', got %q", dir)
	}
}

func TestFamilyCachePath(t *testing.T) {
	t.Setenv("BDP_CACHE_DIR", "/cache")
	path := FamilyCachePath("uniprot", "2024_01")
	expected := filepath.Join("/cache", "uniprot", "2024_01.dat")
	if path != expected {
		t.Errorf("expected %q, got %q", expected, path)
	}
}

func TestFamilyCacheLockPath(t *testing.T) {
	t.Setenv("BDP_CACHE_DIR", "/cache")
	lock := FamilyCacheLockPath("uniprot", "2024_01")
	expected := filepath.Join("/cache", "uniprot", "2024_01.dat") + ".lock"
	if lock != expected {
		t.Errorf("expected %q, got %q", expected, lock)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("BDP_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("BDP_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("BDP_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("BDP_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("BDP_CACHE_DIR", "")

	if err := EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	expectedDirs := []string{
		filepath.Join(dir, "config"),
		filepath.Join(dir, "data"),
		filepath.Join(dir, "cache"),
		filepath.Join(dir, "state"),
		filepath.Join(dir, "cache", "releases"),
	}

	for _, d := range expectedDirs {
		if _, err := os.Stat(d); os.IsNotExist(err) {
			t.Errorf("expected directory %q to be created", d)
		}
	}
}
