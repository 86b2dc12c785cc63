package discovery

import (
	"context"
	"fmt"
	"time"
)

// RefSeqSource discovers RefSeq releases: numeric ordering on the release
// number, dates estimated from a 2000 base epoch at the same cadence
// GenBank uses.
type RefSeqSource struct {
	Client interface {
		MDTM(ctx context.Context, path string) (time.Time, error)
	}
	CurrentReleaseNumber int
}

const refseqBaseEpoch = 2000

func (RefSeqSource) Family() Family { return FamilyRefSeq }

func (s RefSeqSource) DiscoverAllVersions(ctx context.Context) ([]DiscoveredVersion, error) {
	n := s.CurrentReleaseNumber
	date := time.Date(refseqBaseEpoch, time.January, 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, (n-1)*12/genbankReleasesPerYear, 0)
	if s.Client != nil {
		if mt, err := s.Client.MDTM(ctx, RefSeqReleasePath(n)); err == nil {
			date = mt
		}
	}
	return []DiscoveredVersion{
		{
			ExternalVersion: fmt.Sprintf("RefSeq-%d", n),
			ReleaseDate:     date,
			OrderingKey:     fmt.Sprintf("%010d", n),
			Extras:          map[string]string{"release_number": fmt.Sprintf("%d", n)},
		},
	}, nil
}

// RefSeqReleasePath returns the source file path for a RefSeq release,
// relative to the family's configured FTP base path. Same caveat as
// GenBankReleasePath: no concrete per-division naming convention survived
// retrieval for this family.
func RefSeqReleasePath(releaseNumber int) string {
	return fmt.Sprintf("refseq-release%d.genomic.gbff.gz", releaseNumber)
}
