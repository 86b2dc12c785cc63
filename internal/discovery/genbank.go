package discovery

import (
	"context"
	"fmt"
	"time"
)

// GenBankSource discovers GenBank releases. Ordering is numeric on the
// release number; dates are estimated from a base epoch because, per
// spec.md §9's open question, only the current release is downloadable
// from the public FTP — historical archives are not retained upstream.
// discover_all_versions therefore returns only the current release; this
// limitation is acknowledged, not silently worked around.
type GenBankSource struct {
	Client interface {
		MDTM(ctx context.Context, path string) (time.Time, error)
	}
	CurrentReleaseNumber int
}

const (
	genbankBaseEpoch        = 1982
	genbankReleasesPerYear  = 6
)

func (GenBankSource) Family() Family { return FamilyGenBank }

func (s GenBankSource) DiscoverAllVersions(ctx context.Context) ([]DiscoveredVersion, error) {
	n := s.CurrentReleaseNumber
	date := estimateGenBankReleaseDate(n)
	// The server's actual mtime on the release file, when reachable, is a
	// better date than the base-epoch estimate; the estimate is only a
	// fallback for when MDTM fails or no client was supplied.
	if s.Client != nil {
		if mt, err := s.Client.MDTM(ctx, GenBankReleasePath(n)); err == nil {
			date = mt
		}
	}
	return []DiscoveredVersion{
		{
			ExternalVersion: fmt.Sprintf("GB_Release_%d.0", n),
			ReleaseDate:     date,
			OrderingKey:     fmt.Sprintf("%010d", n),
			Extras:          map[string]string{"release_number": fmt.Sprintf("%d", n)},
		},
	}, nil
}

// estimateGenBankReleaseDate approximates a release's date: release 1
// shipped in 1982, with roughly genbankReleasesPerYear releases issued
// per year since.
func estimateGenBankReleaseDate(releaseNumber int) time.Time {
	monthsElapsed := (releaseNumber - 1) * 12 / genbankReleasesPerYear
	return time.Date(genbankBaseEpoch, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, monthsElapsed, 0)
}

// GenBankReleasePath returns the source file path for a GenBank release,
// relative to the family's configured FTP base path. No per-division
// file-naming convention (the real NCBI layout splits GenBank into
// gbpri/gbbct/... files) survived retrieval for this family — no ftp
// module was pulled for GenBank, unlike UniProt and taxdump, which do have
// one. This models a single bulk flat-file release instead; see DESIGN.md.
func GenBankReleasePath(releaseNumber int) string {
	return fmt.Sprintf("gbrel%d.seq.gz", releaseNumber)
}
