// Package discovery implements per-family version discovery (C4): listing
// upstream releases, ordering them per family-specific rules, and diffing
// against what the registry has already ingested. Modeled after the
// teacher's family-enum dispatch in its downloader package (SourceAuto /
// SourceFTP / SourceAWS), applied here to release families instead of
// download transports.
package discovery

import (
	"context"
	"sort"
	"time"
)

// Family identifies one of the five source families spec.md §4.4 names.
type Family string

const (
	FamilyUniProt  Family = "uniprot"
	FamilyGenBank  Family = "genbank"
	FamilyRefSeq   Family = "refseq"
	FamilyInterPro Family = "interpro"
	FamilyTaxonomy Family = "ncbi_taxonomy"
)

// DiscoveredVersion is one upstream release a family's Source can see.
type DiscoveredVersion struct {
	ExternalVersion string
	ReleaseDate     time.Time
	OrderingKey     string // lexically/numerically comparable per family rules
	Extras          map[string]string
}

// Source is the per-family discovery contract; each family implements its
// own ordering and date-estimation rule (spec.md §4.4).
type Source interface {
	Family() Family
	DiscoverAllVersions(ctx context.Context) ([]DiscoveredVersion, error)
}

// CheckForNewerVersion returns the newest discovered version strictly
// greater than lastExternalVersion, or nil if there is none. The comparison
// uses the ordering key of the discovered release labelled
// lastExternalVersion; when no discovered release carries that label,
// ordering keys are compared with the label itself.
func CheckForNewerVersion(ctx context.Context, src Source, lastExternalVersion string) (*DiscoveredVersion, error) {
	versions, err := src.DiscoverAllVersions(ctx)
	if err != nil {
		return nil, err
	}
	sortAscending(versions)

	floor := lastExternalVersion
	for _, v := range versions {
		if v.ExternalVersion == lastExternalVersion {
			floor = v.OrderingKey
			break
		}
	}

	var newest *DiscoveredVersion
	for i := range versions {
		if versions[i].OrderingKey > floor {
			newest = &versions[i]
		}
	}
	return newest, nil
}

// FilterNewVersions returns discovered \ ingested, preserving ascending order.
func FilterNewVersions(discovered []DiscoveredVersion, ingested map[string]bool) []DiscoveredVersion {
	sorted := make([]DiscoveredVersion, len(discovered))
	copy(sorted, discovered)
	sortAscending(sorted)

	out := make([]DiscoveredVersion, 0, len(sorted))
	for _, v := range sorted {
		if !ingested[v.ExternalVersion] {
			out = append(out, v)
		}
	}
	return out
}

func sortAscending(versions []DiscoveredVersion) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].OrderingKey < versions[j].OrderingKey
	})
}
