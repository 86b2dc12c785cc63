package ftpclient

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"testing"
)

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		hints []string
		want  bool
	}{
		{"no hints matches anything", "foo.dat", nil, true},
		{"exact match", "rankedlineage.dmp", []string{"rankedlineage.dmp", "merged.dmp"}, true},
		{"no match", "delnodes.dmp", []string{"rankedlineage.dmp"}, false},
		{"glob suffix match", "uniprot_sprot.dat", []string{"*.dat"}, true},
		{"nested path basename match", "taxdump/merged.dmp", []string{"merged.dmp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesAny(tt.path, tt.hints); got != tt.want {
				t.Errorf("matchesAny(%q, %v) = %v, want %v", tt.path, tt.hints, got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(errors.New("550 File not found")) {
		t.Error("expected 550 response to be classified as not-found")
	}
	if isNotFound(errors.New("connection reset")) {
		t.Error("did not expect connection reset to be classified as not-found")
	}
	if isNotFound(nil) {
		t.Error("nil error should not be not-found")
	}
}

func TestDecompressGzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte("ID   INS_HUMAN               Reviewed;         110 AA."))
	gw.Close()

	got, err := decompressGzip(buf.Bytes())
	if err != nil {
		t.Fatalf("decompressGzip failed: %v", err)
	}
	if string(got) != "ID   INS_HUMAN               Reviewed;         110 AA." {
		t.Errorf("unexpected decompressed content: %q", got)
	}
}

func TestExtractTarGz(t *testing.T) {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	content := []byte("9606\tHomo sapiens\t...\tspecies\tcellular organisms; Eukaryota")
	hdr := &tar.Header{Name: "rankedlineage.dmp", Size: int64(len(content))}
	tw.WriteHeader(hdr)
	tw.Write(content)
	tw.Close()

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	gw.Write(tarBuf.Bytes())
	gw.Close()

	got, err := extractTarGz(gzBuf.Bytes(), []string{"rankedlineage.dmp"})
	if err != nil {
		t.Fatalf("extractTarGz failed: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("unexpected extracted content: %q", got)
	}
}

func TestExtractTarGzMissingMember(t *testing.T) {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	tw.Close()

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	gw.Write(tarBuf.Bytes())
	gw.Close()

	if _, err := extractTarGz(gzBuf.Bytes(), []string{"merged.dmp"}); err == nil {
		t.Error("expected error when no member matches")
	}
}
