package orchestrator

import (
	"testing"

	"github.com/nishad/bdp/internal/ftpclient"
)

func TestParseSemver(t *testing.T) {
	tests := []struct {
		in                  string
		major, minor, patch int
		ok                  bool
	}{
		{"1.2.3", 1, 2, 3, true},
		{"0.1.0", 0, 1, 0, true},
		{"1.2", 0, 0, 0, false},
		{"a.b.c", 0, 0, 0, false},
		{"", 0, 0, 0, false},
	}
	for _, tt := range tests {
		major, minor, patch, ok := parseSemver(tt.in)
		if ok != tt.ok {
			t.Errorf("parseSemver(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && (major != tt.major || minor != tt.minor || patch != tt.patch) {
			t.Errorf("parseSemver(%q) = %d.%d.%d, want %d.%d.%d", tt.in, major, minor, patch, tt.major, tt.minor, tt.patch)
		}
	}
}

func TestTaxonomyCodec(t *testing.T) {
	if got := taxonomyCodec("/pub/taxonomy/taxdump_archive/taxdmp_2024-03-01.zip"); got != ftpclient.CodecZip {
		t.Errorf("expected CodecZip for a .zip archive, got %v", got)
	}
	if got := taxonomyCodec("/pub/taxonomy/taxdump.tar.gz"); got != ftpclient.CodecTarGz {
		t.Errorf("expected CodecTarGz for a .tar.gz archive, got %v", got)
	}
}

func TestWorkerCount(t *testing.T) {
	tests := []struct {
		maxWorkers, total, batchSize int
		want                         int
	}{
		{16, 10000, 500, 16},
		{16, 1000, 500, 3},
		{16, 0, 500, 1},
		{16, 499, 500, 1},
		{1, 100000, 500, 1},
	}
	for _, tt := range tests {
		got := WorkerCount(tt.maxWorkers, tt.total, tt.batchSize)
		if got != tt.want {
			t.Errorf("WorkerCount(%d,%d,%d) = %d, want %d", tt.maxWorkers, tt.total, tt.batchSize, got, tt.want)
		}
	}
}
