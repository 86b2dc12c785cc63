// Package paths resolves the on-disk locations bdp uses for the orchestrator's
// fetch cache and default data directories, honoring XDG conventions with a
// BDP-specific override.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

type Paths struct {
	ConfigDir string
	DataDir   string
	CacheDir  string
	StateDir  string
}

// Get returns all base paths respecting environment variables.
func Get() Paths {
	return Paths{
		ConfigDir: getDir("BDP_CONFIG_HOME", "XDG_CONFIG_HOME", ".config", "bdp"),
		DataDir:   getDir("BDP_DATA_HOME", "XDG_DATA_HOME", ".local/share", "bdp"),
		CacheDir:  getDir("BDP_CACHE_HOME", "XDG_CACHE_HOME", ".cache", "bdp"),
		StateDir:  getDir("BDP_STATE_HOME", "XDG_STATE_HOME", ".local/state", "bdp"),
	}
}

func getDir(bdpEnv, xdgEnv, defaultBase, appName string) string {
	if dir := os.Getenv(bdpEnv); dir != "" {
		return dir
	}
	if xdgBase := os.Getenv(xdgEnv); xdgBase != "" {
		return filepath.Join(xdgBase, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, defaultBase, appName)
}

// FetchCacheDir returns the root of the orchestrator's decompressed-release
// cache, below which each family gets its own subdirectory
// (<cache_dir>/<family>/<version>.dat, per spec.md §4.7).
func FetchCacheDir() string {
	if dir := os.Getenv("BDP_CACHE_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(Get().CacheDir, "releases")
}

// FamilyCachePath returns the cached decompressed file path for one release.
func FamilyCachePath(family, externalVersion string) string {
	return filepath.Join(FetchCacheDir(), family, externalVersion+".dat")
}

// FamilyCacheLockPath returns the sibling lock file path used to guard the
// tmp-file + atomic rename sequence against a concurrent writer.
func FamilyCacheLockPath(family, externalVersion string) string {
	return FamilyCachePath(family, externalVersion) + ".lock"
}

// EnsureDirectories creates all necessary directories.
func EnsureDirectories() error {
	p := Get()
	dirs := []string{p.ConfigDir, p.DataDir, p.CacheDir, p.StateDir, FetchCacheDir()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
