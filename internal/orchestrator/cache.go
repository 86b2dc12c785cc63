// Package orchestrator implements the per-family pipeline (C7): decides
// Latest vs Historical mode, drives C4→C2→C3→C5→C6 in sequence, and owns
// the on-disk download cache. Grounded on the teacher's
// internal/processor.ResumableProcessor, generalized from one resumable
// HTTP download to a family-keyed cache over FTP-fetched releases.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nishad/bdp/internal/apperrors"
)

// Cache is the on-disk download cache at <dir>/<family>/<version>.dat,
// written atomically via tmp-file + fsync + rename under a sibling
// .lock file (spec.md §4.7).
type Cache struct {
	dir        string
	maxAgeDays int
}

// NewCache returns a Cache rooted at dir.
func NewCache(dir string, maxAgeDays int) *Cache {
	return &Cache{dir: dir, maxAgeDays: maxAgeDays}
}

func (c *Cache) path(family, version string) string {
	return filepath.Join(c.dir, family, version+".dat")
}

// Get returns the cached bytes for (family, version), or (nil, false) on
// a cache miss.
func (c *Cache) Get(family, version string) ([]byte, bool) {
	data, err := os.ReadFile(c.path(family, version))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put writes data into the cache atomically: a temp file in the same
// directory, fsynced, then renamed over the final path while a sibling
// .lock file is held, so a concurrent reader never observes a partial
// write.
func (c *Cache) Put(family, version string, data []byte) error {
	const op = apperrors.Op("orchestrator.cache.put")

	final := c.path(family, version)
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.E(op, apperrors.KindCacheCorrupt, err)
	}

	lockPath := final + ".lock"
	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return apperrors.E(op, apperrors.KindCacheCorrupt, fmt.Errorf("cache entry locked by another writer: %w", err))
	}
	defer os.Remove(lockPath)
	defer lock.Close()

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return apperrors.E(op, apperrors.KindCacheCorrupt, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperrors.E(op, apperrors.KindCacheCorrupt, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperrors.E(op, apperrors.KindCacheCorrupt, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperrors.E(op, apperrors.KindCacheCorrupt, err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return apperrors.E(op, apperrors.KindCacheCorrupt, err)
	}
	return nil
}

// Sweep removes cached files older than maxAgeDays. Intended to run
// periodically in the background, not inline with a fetch.
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	const op = apperrors.Op("orchestrator.cache.sweep")
	if c.maxAgeDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -c.maxAgeDays)

	removed := 0
	err := filepath.WalkDir(c.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() || filepath.Ext(path) != ".dat" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return removed, apperrors.E(op, apperrors.KindCacheCorrupt, err)
	}
	return removed, nil
}
