package taxdump

import "testing"

const rankedLineageSample = `9606	|	Homo sapiens	|	Homo	|	Hominidae	|	Primates	|	Mammalia	|	Chordata	|	species	|	cellular organisms; Eukaryota; Metazoa; Chordata; Mammalia; Primates; Hominidae; Homo	|
10090	|	Mus musculus	|	Mus	|	Muridae	|	Rodentia	|	Mammalia	|	Chordata	|	species	|	cellular organisms; Eukaryota; Metazoa; Chordata; Mammalia; Rodentia; Muridae; Mus	|
`

func TestRankedLineageCount(t *testing.T) {
	p := RankedLineageParser{}
	n, err := p.Count([]byte(rankedLineageSample))
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}

func TestRankedLineageParseAll(t *testing.T) {
	p := RankedLineageParser{}
	taxa, warnings, err := p.ParseAll([]byte(rankedLineageSample))
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(taxa) != 2 {
		t.Fatalf("expected 2 taxa, got %d", len(taxa))
	}
	if taxa[0].TaxID != 9606 || taxa[0].ScientificName != "Homo sapiens" {
		t.Errorf("unexpected first taxon %+v", taxa[0])
	}
	if taxa[0].Rank != "species" {
		t.Errorf("unexpected rank %q", taxa[0].Rank)
	}
}

func TestRankedLineageParseRange(t *testing.T) {
	p := RankedLineageParser{}
	taxa, _, err := p.ParseRange([]byte(rankedLineageSample), 1, 2)
	if err != nil {
		t.Fatalf("ParseRange failed: %v", err)
	}
	if len(taxa) != 1 || taxa[0].TaxID != 10090 {
		t.Errorf("unexpected ParseRange result %+v", taxa)
	}
}

func TestParseMerged(t *testing.T) {
	data := []byte("1234\t|\t5678\t|\n")
	merges, err := ParseMerged(data)
	if err != nil {
		t.Fatalf("ParseMerged failed: %v", err)
	}
	if len(merges) != 1 || merges[0].OldTaxID != 1234 || merges[0].NewTaxID != 5678 {
		t.Errorf("unexpected merges %+v", merges)
	}
}

func TestParseDelnodes(t *testing.T) {
	data := []byte("999999\t|\n")
	deletions, err := ParseDelnodes(data)
	if err != nil {
		t.Fatalf("ParseDelnodes failed: %v", err)
	}
	if len(deletions) != 1 || deletions[0].TaxID != 999999 {
		t.Errorf("unexpected deletions %+v", deletions)
	}
}
