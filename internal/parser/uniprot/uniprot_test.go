package uniprot

import "testing"

const insHumanRecord = `ID   INS_HUMAN               Reviewed;         110 AA.
AC   P01308; Q5EEW1;
DE   RecName: Full=Insulin;
DE   AltName: Full=Proinsulin short name;
GN   Name=INS; Synonyms=IRDN;
OS   Homo sapiens (Human).
OC   Eukaryota; Metazoa; Chordata; Craniata; Vertebrata; Euteleostomi; Mammalia.
OX   NCBI_TaxID=9606;
FT   SIGNAL          1..24
FT   CHAIN           25..110
FT                   /note="Insulin"
DR   PDB; 1MSO; X-ray; A=1-51.
CC   -!- FUNCTION: Insulin decreases blood glucose concentration.
CC       It increases cell permeability to monosaccharides.
PE   1: Evidence at protein level;
KW   Diabetes mellitus; Hormone; Secreted.
SQ   SEQUENCE   110 AA;  11981 MW;  A4EC4DB38CD3DD63 CRC64;
     MALWMRLLPL LALLALWGPD PAAAFVNQHL CGSHLVEALY LVCGERGFFY TPKTRREAED
     LQVGQVELGG GPGAGSLQPL ALEGSLQKRG IVEQCCTSIC SLYQLENYCN
//
`

func TestCount(t *testing.T) {
	p := Parser{}
	n, err := p.Count([]byte(insHumanRecord))
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}
}

func TestParseAllSingleEntry(t *testing.T) {
	p := Parser{}
	entries, warnings, err := p.ParseAll([]byte(insHumanRecord))
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.EntryName != "INS_HUMAN" {
		t.Errorf("unexpected entry name %q", e.EntryName)
	}
	if e.PrimaryAccession() != "P01308" {
		t.Errorf("unexpected primary accession %q", e.PrimaryAccession())
	}
	if !e.Reviewed {
		t.Error("expected entry to be reviewed")
	}
	if e.ProteinName != "Insulin" {
		t.Errorf("unexpected protein name %q", e.ProteinName)
	}
	if len(e.AlternativeNames) != 1 || e.AlternativeNames[0] != "Proinsulin short name" {
		t.Errorf("unexpected alternative names %v", e.AlternativeNames)
	}
	if e.GeneName != "INS" {
		t.Errorf("unexpected gene name %q", e.GeneName)
	}
	if len(e.GeneSynonyms) != 1 || e.GeneSynonyms[0] != "IRDN" {
		t.Errorf("unexpected gene synonyms %v", e.GeneSynonyms)
	}
	if e.TaxonomyID != 9606 {
		t.Errorf("unexpected taxonomy id %d", e.TaxonomyID)
	}
	if e.OrganismName != "Homo sapiens (Human)" {
		t.Errorf("unexpected organism name %q", e.OrganismName)
	}
	if len(e.Lineage) == 0 || e.Lineage[0] != "Eukaryota" {
		t.Errorf("unexpected lineage %v", e.Lineage)
	}
	if len(e.Features) != 2 {
		t.Fatalf("expected 2 features, got %d: %+v", len(e.Features), e.Features)
	}
	if e.Features[0].Type != "SIGNAL" || e.Features[0].Start != 1 || e.Features[0].End != 24 {
		t.Errorf("unexpected signal feature %+v", e.Features[0])
	}
	if e.Features[1].Description != `/note="Insulin"` {
		t.Errorf("unexpected chain feature description %q", e.Features[1].Description)
	}
	if len(e.DatabaseRefs) != 1 || e.DatabaseRefs[0].Database != "PDB" {
		t.Errorf("unexpected database refs %+v", e.DatabaseRefs)
	}
	if len(e.Comments) != 1 || e.Comments[0].Topic != "FUNCTION" {
		t.Errorf("unexpected comments %+v", e.Comments)
	}
	if e.ProteinExistence != 1 {
		t.Errorf("unexpected protein existence %d", e.ProteinExistence)
	}
	if len(e.Keywords) != 3 {
		t.Errorf("unexpected keywords %v", e.Keywords)
	}
	if e.SequenceLength != 110 {
		t.Errorf("unexpected sequence length %d", e.SequenceLength)
	}
	if len(e.Sequence) != 110 {
		t.Errorf("expected 110 residues, got %d: %q", len(e.Sequence), e.Sequence)
	}
	if e.SequenceHash() == "" {
		t.Error("expected non-empty sequence hash")
	}
}

func TestParseRangeSkipsPrecedingRecords(t *testing.T) {
	twoRecords := insHumanRecord + insHumanRecord
	p := Parser{}

	n, err := p.Count([]byte(twoRecords))
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 records, got %d", n)
	}

	entries, _, err := p.ParseRange([]byte(twoRecords), 1, 2)
	if err != nil {
		t.Fatalf("ParseRange failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry in range [1,2), got %d", len(entries))
	}
	if entries[0].EntryName != "INS_HUMAN" {
		t.Errorf("unexpected entry name %q", entries[0].EntryName)
	}
}

func TestMalformedRecordProducesWarningNotError(t *testing.T) {
	malformed := "ID   BAD\nSQ   SEQUENCE   3 AA;\n   XYZ\n//\n"
	p := Parser{}
	_, warnings, err := p.ParseAll([]byte(malformed))
	if err != nil {
		t.Fatalf("expected malformed record to be tolerated, got error: %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning for the malformed record, got %d", len(warnings))
	}
}
