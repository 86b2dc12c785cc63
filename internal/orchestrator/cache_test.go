package orchestrator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCachePutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 7)

	if _, ok := c.Get("uniprot", "2024_01"); ok {
		t.Fatal("expected cache miss before Put")
	}

	want := []byte("uniprot release bytes")
	if err := c.Put("uniprot", "2024_01", want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := c.Get("uniprot", "2024_01")
	if !ok {
		t.Fatal("expected cache hit after Put")
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCachePutNoStaleTempOrLock(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 7)
	if err := c.Put("interpro", "95.0", []byte("x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "interpro"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "95.0.dat" {
		t.Errorf("expected exactly one 95.0.dat file, got %v", entries)
	}
}

func TestCacheSweepRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 7)
	if err := c.Put("uniprot", "2020_01", []byte("old")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	old := time.Now().AddDate(0, 0, -30)
	path := filepath.Join(dir, "uniprot", "2020_01.dat")
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	removed, err := c.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 file removed, got %d", removed)
	}
	if _, ok := c.Get("uniprot", "2020_01"); ok {
		t.Error("expected swept file to be gone")
	}
}

func TestCacheSweepDisabledWhenMaxAgeZero(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 0)
	if err := c.Put("uniprot", "2020_01", []byte("old")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	removed, err := c.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected sweep to be a no-op when maxAgeDays is 0, got %d removed", removed)
	}
}
