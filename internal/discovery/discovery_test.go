package discovery

import (
	"testing"
	"time"
)

func TestFilterNewVersions(t *testing.T) {
	discovered := []DiscoveredVersion{
		{ExternalVersion: "2024_03", OrderingKey: "2024_03"},
		{ExternalVersion: "2024_01", OrderingKey: "2024_01"},
		{ExternalVersion: "2024_02", OrderingKey: "2024_02"},
	}
	ingested := map[string]bool{"2024_01": true}

	got := FilterNewVersions(discovered, ingested)
	if len(got) != 2 {
		t.Fatalf("expected 2 new versions, got %d", len(got))
	}
	if got[0].ExternalVersion != "2024_02" || got[1].ExternalVersion != "2024_03" {
		t.Errorf("expected ascending order, got %+v", got)
	}
}

func TestIsUniProtLabel(t *testing.T) {
	tests := []struct {
		label string
		want  bool
	}{
		{"2024_01", true},
		{"2024_12", true},
		{"current", false},
		{"2024", false},
		{"20a4_01", false},
	}
	for _, tt := range tests {
		if got := isUniProtLabel(tt.label); got != tt.want {
			t.Errorf("isUniProtLabel(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestEstimateGenBankReleaseDate(t *testing.T) {
	d1 := estimateGenBankReleaseDate(1)
	if d1.Year() != 1982 {
		t.Errorf("expected release 1 to land in 1982, got %v", d1)
	}
	d257 := estimateGenBankReleaseDate(257)
	if d257.Year() < 2023 {
		t.Errorf("expected release 257 to land in the 2020s, got %v", d257)
	}
}

func TestEstimateInterProDate(t *testing.T) {
	d0 := estimateInterProDate(0)
	if d0.Year() != 2001 {
		t.Errorf("expected major 0 to land in 2001, got %v", d0)
	}
	d4 := estimateInterProDate(4)
	if d4.Month() != time.January || d4.Year() != 2002 {
		t.Errorf("expected major 4 to land in January 2002 (4*3=12 months), got %v", d4)
	}
}

func TestParseArchiveDate(t *testing.T) {
	date, ok := parseArchiveDate("taxdmp_2024-03-01.zip")
	if !ok {
		t.Fatal("expected parseArchiveDate to succeed")
	}
	if date.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("unexpected date %v", date)
	}

	if _, ok := parseArchiveDate("not-a-date.zip"); ok {
		t.Error("expected parseArchiveDate to fail on malformed input")
	}
}

func TestParseInterProVersion(t *testing.T) {
	major, minor, ok := parseInterProVersion("95.0")
	if !ok || major != 95 || minor != 0 {
		t.Errorf("unexpected parse result: major=%d minor=%d ok=%v", major, minor, ok)
	}
	if _, _, ok := parseInterProVersion("not-a-version"); ok {
		t.Error("expected failure on malformed version")
	}
}

func TestTaxonomyReleasePath(t *testing.T) {
	current := DiscoveredVersion{Extras: map[string]string{"current": "true"}}
	if got := TaxonomyReleasePath(current); got != "/pub/taxonomy/taxdump.tar.gz" {
		t.Errorf("current release path = %q, want /pub/taxonomy/taxdump.tar.gz", got)
	}

	historical := DiscoveredVersion{Extras: map[string]string{"filename": "taxdmp_2024-03-01.zip"}}
	want := "/pub/taxonomy/taxdump_archive/taxdmp_2024-03-01.zip"
	if got := TaxonomyReleasePath(historical); got != want {
		t.Errorf("historical release path = %q, want %q", got, want)
	}
}

func TestGenBankReleasePath(t *testing.T) {
	if got := GenBankReleasePath(257); got != "gbrel257.seq.gz" {
		t.Errorf("GenBankReleasePath(257) = %q, want gbrel257.seq.gz", got)
	}
}

func TestRefSeqReleasePath(t *testing.T) {
	if got := RefSeqReleasePath(220); got != "refseq-release220.genomic.gbff.gz" {
		t.Errorf("RefSeqReleasePath(220) = %q, want refseq-release220.genomic.gbff.gz", got)
	}
}

func TestInterProReleasePath(t *testing.T) {
	want := "/pub/databases/interpro/releases/95.0/interpro.xml.gz"
	if got := InterProReleasePath("95.0"); got != want {
		t.Errorf("InterProReleasePath(95.0) = %q, want %q", got, want)
	}
}
