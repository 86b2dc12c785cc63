package registry

import (
	"testing"

	"github.com/google/uuid"

	"github.com/nishad/bdp/internal/apperrors"
	"github.com/nishad/bdp/internal/models"
)

func TestPaginationValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Pagination
		wantErr bool
		wantPer int
	}{
		{name: "defaults ok", p: Pagination{Page: 1, PerPage: 50}, wantPer: 50},
		{name: "page zero rejected", p: Pagination{Page: 0, PerPage: 50}, wantErr: true},
		{name: "negative page rejected", p: Pagination{Page: -1, PerPage: 50}, wantErr: true},
		{name: "per_page zero rejected", p: Pagination{Page: 1, PerPage: 0}, wantErr: true},
		{name: "per_page clamped to max", p: Pagination{Page: 1, PerPage: 5000}, wantPer: maxPerPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.p
			err := p.validate(apperrors.Op("test"))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.PerPage != tt.wantPer {
				t.Errorf("got per_page %d, want %d", p.PerPage, tt.wantPer)
			}
		})
	}
}

func TestPaginationOffset(t *testing.T) {
	p := Pagination{Page: 3, PerPage: 20}
	if got := p.offset(); got != 40 {
		t.Errorf("offset() = %d, want 40", got)
	}
}

func TestNewPageMeta(t *testing.T) {
	meta := newPageMeta(Pagination{Page: 2, PerPage: 10}, 25)
	if meta.Pages != 3 {
		t.Errorf("Pages = %d, want 3", meta.Pages)
	}
	if !meta.HasNext {
		t.Error("expected HasNext true on page 2 of 3")
	}
	if !meta.HasPrev {
		t.Error("expected HasPrev true on page 2")
	}

	last := newPageMeta(Pagination{Page: 3, PerPage: 10}, 25)
	if last.HasNext {
		t.Error("expected HasNext false on the last page")
	}
}

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		slug    string
		wantErr bool
	}{
		{slug: "uniprot-sprot", wantErr: false},
		{slug: "a1-b2", wantErr: false},
		{slug: "", wantErr: true},
		{slug: "UniProt", wantErr: true},
		{slug: "has_underscore", wantErr: true},
		{slug: "-leading-dash", wantErr: true},
		{slug: "trailing-dash-", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			err := validateSlug(apperrors.Op("test"), "slug", tt.slug)
			if tt.wantErr && err == nil {
				t.Errorf("expected error for slug %q", tt.slug)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for slug %q: %v", tt.slug, err)
			}
		})
	}
}

func TestCreateEntryRequestValidate(t *testing.T) {
	valid := CreateEntryRequest{
		OrganizationID: uuid.New(),
		Slug:           "sprot",
		Name:           "Swiss-Prot",
		EntryType:      models.EntryTypeDataSource,
	}
	if err := valid.validate(apperrors.Op("test")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missingOrg := valid
	missingOrg.OrganizationID = uuid.Nil
	if err := missingOrg.validate(apperrors.Op("test")); err == nil {
		t.Error("expected error for missing organization_id")
	}

	badType := valid
	badType.EntryType = "bogus"
	if err := badType.validate(apperrors.Op("test")); err == nil {
		t.Error("expected error for invalid entry_type")
	}
}

func TestAddVersionFileRequestValidate(t *testing.T) {
	valid := AddVersionFileRequest{
		VersionID: uuid.New(),
		Format:    "fasta",
		S3Key:     "uniprot/sprot/2024_01.fasta",
		Checksum:  "deadbeef",
		SizeBytes: 1024,
	}
	if err := valid.validate(apperrors.Op("test")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zeroSize := valid
	zeroSize.SizeBytes = 0
	if err := zeroSize.validate(apperrors.Op("test")); err == nil {
		t.Error("expected error for zero size_bytes")
	}
}

func TestAddDependencyRequestValidate(t *testing.T) {
	valid := AddDependencyRequest{
		VersionID:        uuid.New(),
		DependsOnEntryID: uuid.New(),
		DependsOnVersion: "1.0.0",
		DependencyType:   models.DependencyRequired,
	}
	if err := valid.validate(apperrors.Op("test")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	badType := valid
	badType.DependencyType = "bogus"
	if err := badType.validate(apperrors.Op("test")); err == nil {
		t.Error("expected error for invalid dependency_type")
	}
}
