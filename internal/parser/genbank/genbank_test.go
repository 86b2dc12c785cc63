package genbank

import "testing"

const sampleRecord = `LOCUS       NM_000207                465 bp    mRNA    linear   PRI 01-JUL-2024
DEFINITION  Homo sapiens insulin (INS), mRNA.
ACCESSION   NM_000207
VERSION     NM_000207.3
ORGANISM    Homo sapiens
            Eukaryota; Metazoa; Chordata; Craniata; Vertebrata.
FEATURES             Location/Qualifiers
     source          1..465
                     /organism="Homo sapiens"
                     /db_xref="taxon:9606"
     CDS             60..392
                     /gene="INS"
                     /note="proinsulin"
ORIGIN
        1 gggcctttgc agtctatcta gaagtgtcag tgagctagtg tagtgtagtg agtgagatga
       61 gctagtgagt gatatgagtg agctagtaga
//
`

func TestGenBankCount(t *testing.T) {
	p := Parser{}
	n, err := p.Count([]byte(sampleRecord))
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}
}

func TestGenBankParseAll(t *testing.T) {
	p := Parser{}
	records, warnings, err := p.ParseAll([]byte(sampleRecord))
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.Locus != "NM_000207" {
		t.Errorf("unexpected locus %q", r.Locus)
	}
	if r.Division != "PRI" {
		t.Errorf("unexpected division %q", r.Division)
	}
	if r.Accession != "NM_000207" {
		t.Errorf("unexpected accession %q", r.Accession)
	}
	if r.Version != "NM_000207.3" {
		t.Errorf("unexpected version %q", r.Version)
	}
	if r.Organism != "Homo sapiens" {
		t.Errorf("unexpected organism %q", r.Organism)
	}
	if len(r.Features) != 2 {
		t.Fatalf("expected 2 features, got %d: %+v", len(r.Features), r.Features)
	}
	if r.Features[0].Type != "source" || r.Features[0].Qualifiers["organism"] != "Homo sapiens" {
		t.Errorf("unexpected source feature %+v", r.Features[0])
	}
	if r.Features[1].Qualifiers["gene"] != "INS" {
		t.Errorf("unexpected CDS feature %+v", r.Features[1])
	}
	if r.SequenceLength == 0 {
		t.Error("expected non-zero sequence length")
	}
	if r.GCContent() <= 0 || r.GCContent() >= 1 {
		t.Errorf("unexpected GC content %v", r.GCContent())
	}
	if r.SequenceHash() == "" {
		t.Error("expected non-empty sequence hash")
	}
}

func TestGenBankTruncatedRecordIsFatal(t *testing.T) {
	truncated := "DEFINITION  incomplete\n//\n"
	p := Parser{}
	_, warnings, err := p.ParseAll([]byte(truncated))
	if err != nil {
		t.Fatalf("ParseAll should not error at the top level: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning for the truncated record, got %d", len(warnings))
	}
}
