package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/nishad/bdp/internal/ftpclient"
)

// TaxonomySource discovers NCBI taxdump archive dates: lexical ordering on
// the YYYY-MM-DD archive label. "current" (the live taxdump.tar.gz with no
// dated archive) is assigned the server's MDTM date as its ordering key.
type TaxonomySource struct {
	Client *ftpclient.Client
}

func (TaxonomySource) Family() Family { return FamilyTaxonomy }

func (s TaxonomySource) DiscoverAllVersions(ctx context.Context) ([]DiscoveredVersion, error) {
	names, err := s.Client.ListDirectory(ctx, "/pub/taxonomy/taxdump_archive", false)
	if err != nil {
		return nil, err
	}

	var out []DiscoveredVersion
	for _, name := range names {
		date, ok := parseArchiveDate(name)
		if !ok {
			continue
		}
		out = append(out, DiscoveredVersion{
			ExternalVersion: date.Format("2006-01-02"),
			ReleaseDate:     date,
			OrderingKey:     date.Format("2006-01-02"),
			Extras:          map[string]string{"filename": name},
		})
	}

	if mt, err := s.Client.MDTM(ctx, "/pub/taxonomy/taxdump.tar.gz"); err == nil {
		out = append(out, DiscoveredVersion{
			ExternalVersion: mt.Format("2006-01-02"),
			ReleaseDate:     mt,
			OrderingKey:     mt.Format("2006-01-02"),
			Extras:          map[string]string{"current": "true"},
		})
	}
	return out, nil
}

// TaxonomyReleasePath returns the source file path for a discovered taxdump
// version. The current release has no dated archive name; historical
// releases are fetched from the archive directory under their original
// listed filename.
func TaxonomyReleasePath(v DiscoveredVersion) string {
	if v.Extras["current"] == "true" {
		return "/pub/taxonomy/taxdump.tar.gz"
	}
	return "/pub/taxonomy/taxdump_archive/" + v.Extras["filename"]
}

func parseArchiveDate(name string) (time.Time, bool) {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(name, ".tar.gz"), ".zip")
	trimmed = strings.TrimPrefix(trimmed, "taxdmp_")
	t, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
