package versioning

import "testing"

func TestFirstVersionIsMinor(t *testing.T) {
	vc := FirstVersion("uniprot", "P01308 insulin")
	if vc.Bump != BumpMinor {
		t.Errorf("expected first version to be MINOR, got %v", vc.Bump)
	}
	if len(vc.Entries) != 1 || vc.Entries[0].Category != CategoryAdded {
		t.Errorf("expected single added entry, got %+v", vc.Entries)
	}
}

func TestDetectDefaultPolicy(t *testing.T) {
	tests := []struct {
		name    string
		entries []ChangelogEntry
		want    Bump
	}{
		{"no breaking", []ChangelogEntry{{Category: CategoryModified, IsBreaking: false}}, BumpMinor},
		{"one breaking", []ChangelogEntry{{Category: CategoryModified, IsBreaking: false}, {Category: CategoryRemoved, IsBreaking: true}}, BumpMajor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect("uniprot", Strategy{}, tt.entries)
			if got.Bump != tt.want {
				t.Errorf("Detect() bump = %v, want %v", got.Bump, tt.want)
			}
		})
	}
}

func TestDetectStrategyOverride(t *testing.T) {
	entries := []ChangelogEntry{{Category: CategoryModified, IsBreaking: false}}
	got := Detect("uniprot", Strategy{TreatModifiedAsBreaking: true}, entries)
	if got.Bump != BumpMajor {
		t.Errorf("expected strategy override to force MAJOR, got %v", got.Bump)
	}
}

func TestNextVersion(t *testing.T) {
	tests := []struct {
		major, minor, patch int
		bump                 Bump
		wantMajor, wantMinor, wantPatch int
	}{
		{1, 2, 3, BumpMinor, 1, 3, 0},
		{1, 2, 3, BumpMajor, 2, 0, 0},
	}
	for _, tt := range tests {
		gotMajor, gotMinor, gotPatch := NextVersion(tt.major, tt.minor, tt.patch, tt.bump)
		if gotMajor != tt.wantMajor || gotMinor != tt.wantMinor || gotPatch != tt.wantPatch {
			t.Errorf("NextVersion(%d,%d,%d,%v) = (%d,%d,%d), want (%d,%d,%d)",
				tt.major, tt.minor, tt.patch, tt.bump, gotMajor, gotMinor, gotPatch, tt.wantMajor, tt.wantMinor, tt.wantPatch)
		}
	}
}

func TestUniProtEntryClassification(t *testing.T) {
	if e := UniProtEntry("P1", true, false); !e.IsBreaking || e.Category != CategoryRemoved {
		t.Errorf("removed protein should be breaking+removed, got %+v", e)
	}
	if e := UniProtEntry("P1", false, true); !e.IsBreaking {
		t.Errorf("sequence-changed protein should be breaking, got %+v", e)
	}
	if e := UniProtEntry("P1", false, false); e.IsBreaking {
		t.Errorf("annotation-only change should not be breaking, got %+v", e)
	}
}

func TestParseStrategyEmpty(t *testing.T) {
	s, err := ParseStrategy(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.TreatModifiedAsBreaking {
		t.Errorf("expected zero-value strategy for nil input")
	}
}

func TestParseStrategyJSON(t *testing.T) {
	s, err := ParseStrategy([]byte(`{"treat_modified_as_breaking": true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.TreatModifiedAsBreaking {
		t.Errorf("expected TreatModifiedAsBreaking to be true")
	}
}
