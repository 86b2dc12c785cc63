package resolver

import "testing"

func TestParseSourceSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    SpecKey
		wantErr bool
	}{
		{
			name: "basic",
			spec: "uniprot:sprot-fasta@2024_01",
			want: SpecKey{Org: "uniprot", Name: "sprot", Format: "fasta", Version: "2024_01"},
		},
		{
			name: "hyphenated name before format",
			spec: "ncbi:refseq-genomic-gff@228",
			want: SpecKey{Org: "ncbi", Name: "refseq-genomic", Format: "gff", Version: "228"},
		},
		{name: "missing org prefix", spec: "sprot-fasta@2024_01", wantErr: true},
		{name: "missing version", spec: "uniprot:sprot-fasta", wantErr: true},
		{name: "missing format", spec: "uniprot:sprot@2024_01", wantErr: true},
		{name: "whitespace rejected", spec: "uniprot: sprot-fasta@2024_01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSourceSpec(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseToolSpec(t *testing.T) {
	got, err := ParseToolSpec("bdp-tools:blast@1.2.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := SpecKey{Org: "bdp-tools", Name: "blast", Version: "1.2.0"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if _, err := ParseToolSpec("bdp-tools:blast"); err == nil {
		t.Error("expected error for tool spec missing @version")
	}
}

func TestSpecKeyBaseKey(t *testing.T) {
	k := SpecKey{Org: "uniprot", Name: "sprot", Format: "fasta", Version: "2024_01"}
	if k.BaseKey() != "uniprot:sprot" {
		t.Errorf("got %q, want uniprot:sprot", k.BaseKey())
	}
}

func TestConflictErrorMessage(t *testing.T) {
	err := &ConflictError{BaseKey: "ncbi:taxdump", Versions: []string{"1.0.0", "1.1.0"}}
	want := "dependency conflict on ncbi:taxdump: versions 1.0.0, 1.1.0"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}
