package writer

import (
	"strings"
	"testing"

	"github.com/nishad/bdp/internal/parser/genbank"
	"github.com/nishad/bdp/internal/parser/interpro"
	"github.com/nishad/bdp/internal/parser/uniprot"
)

func TestChunks(t *testing.T) {
	tests := []struct {
		n    int
		want [][2]int
	}{
		{0, nil},
		{10, [][2]int{{0, 10}}},
		{500, [][2]int{{0, 500}}},
		{501, [][2]int{{0, 500}, {500, 501}}},
		{1000, [][2]int{{0, 500}, {500, 1000}}},
	}
	for _, tt := range tests {
		got := Chunks(tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("Chunks(%d) = %v, want %v", tt.n, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Chunks(%d)[%d] = %v, want %v", tt.n, i, got[i], tt.want[i])
			}
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"P01308", "p01308"},
		{" p01308 ", "p01308"},
		{"Q9Y6K9", "q9y6k9"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderFASTA(t *testing.T) {
	e := uniprot.Entry{
		EntryName:   "INS_HUMAN",
		ProteinName: "Insulin",
		Accessions:  []string{"P01308"},
		OrganismName: "Homo sapiens",
		TaxonomyID:  9606,
		Sequence:    strings.Repeat("A", 70),
	}
	out := string(renderFASTA(e))
	if !strings.HasPrefix(out, ">sp|P01308|INS_HUMAN Insulin OS=Homo sapiens OX=9606\n") {
		t.Fatalf("unexpected header: %q", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 sequence lines for a 70-residue sequence, got %d lines", len(lines))
	}
	if len(lines[1]) != 60 || len(lines[2]) != 10 {
		t.Errorf("expected 60+10 residue wrap, got %d+%d", len(lines[1]), len(lines[2]))
	}
}

func TestRenderGenBankFASTA(t *testing.T) {
	r := genbank.Record{
		Accession:  "AB012345",
		Definition: "Some organism gene for protein",
		Organism:   "Homo sapiens",
		Sequence:   strings.Repeat("A", 80),
	}
	out := string(renderGenBankFASTA(r))
	if !strings.HasPrefix(out, ">AB012345 Some organism gene for protein [organism=Homo sapiens]\n") {
		t.Fatalf("unexpected header: %q", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 sequence lines for an 80-residue sequence, got %d lines", len(lines))
	}
	if len(lines[1]) != 70 || len(lines[2]) != 10 {
		t.Errorf("expected 70+10 residue wrap, got %d+%d", len(lines[1]), len(lines[2]))
	}
}

func TestRenderInterProEntry(t *testing.T) {
	e := interpro.Entry{
		ID:          "IPR000001",
		Type:        "Domain",
		ShortName:   "Kringle",
		Name:        "Kringle domain",
		AbstractXML: "A disulphide-rich triple-looped domain.",
	}
	out := string(renderInterProEntry(e))
	if !strings.Contains(out, `id="IPR000001"`) || !strings.Contains(out, `type="Domain"`) {
		t.Fatalf("expected id/type attributes in rendering, got %q", out)
	}
	if !strings.Contains(out, "<name>Kringle domain</name>") {
		t.Errorf("expected name element, got %q", out)
	}
	if !strings.Contains(out, "<abstract>A disulphide-rich triple-looped domain.</abstract>") {
		t.Errorf("expected abstract element, got %q", out)
	}
}

func TestNewUploaderDefaultsFanout(t *testing.T) {
	u := NewUploader(nil, 0)
	if u.fanout != 1 {
		t.Errorf("expected fanout to default to 1, got %d", u.fanout)
	}
}
