// Package versioning implements the version-bump detector (C8): given the
// previous and current state of a registry entry, decides whether the next
// internal version is a MAJOR or MINOR bump and renders a human-readable
// changelog. Supplemented from original_source/crates/bdp-server/src/
// ingest/versioning/detector.rs, expressed in the teacher's plain-struct,
// no-framework style.
package versioning

import (
	"encoding/json"
	"fmt"

	"github.com/nishad/bdp/internal/metrics"
)

// Bump is the semver component a changelog advances.
type Bump string

const (
	BumpMajor Bump = "major"
	BumpMinor Bump = "minor"
)

// Category classifies one changelog entry.
type Category string

const (
	CategoryAdded    Category = "added"
	CategoryRemoved  Category = "removed"
	CategoryModified Category = "modified"
)

// ChangelogEntry is one detected change between two versions of an entry.
type ChangelogEntry struct {
	Category    Category `json:"category"`
	Count       int      `json:"count"`
	Description string   `json:"description"`
	IsBreaking  bool     `json:"is_breaking"`
}

// VersionChangelog is the detector's full output for one entry transition.
type VersionChangelog struct {
	Bump        Bump             `json:"bump"`
	Entries     []ChangelogEntry `json:"entries"`
	Summary     string           `json:"summary"`
	SummaryText string           `json:"summary_text"`
}

// Strategy is the organization-level override of the default bump policy,
// stored as organizations.versioning_strategy (jsonb). An empty Strategy
// falls back to the default policy: MAJOR iff any entry is breaking.
type Strategy struct {
	// TreatModifiedAsBreaking forces any "modified" entry to a MAJOR bump
	// even when no per-family rule marks it breaking.
	TreatModifiedAsBreaking bool `json:"treat_modified_as_breaking"`
}

// ParseStrategy decodes an organization's versioning_strategy jsonb column.
// A nil or empty payload is the zero Strategy (default policy).
func ParseStrategy(raw []byte) (Strategy, error) {
	var s Strategy
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Strategy{}, fmt.Errorf("parse versioning_strategy: %w", err)
	}
	return s, nil
}

// FirstVersion is the changelog for a data source's first-ever version:
// always MINOR with a single added entry (spec.md §4.8).
func FirstVersion(family, description string) VersionChangelog {
	entry := ChangelogEntry{Category: CategoryAdded, Count: 1, Description: description, IsBreaking: false}
	metrics.VersionBumpsTotal.WithLabelValues(family, string(BumpMinor)).Inc()
	return VersionChangelog{
		Bump:        BumpMinor,
		Entries:     []ChangelogEntry{entry},
		Summary:     "initial version",
		SummaryText: "Initial version: " + description,
	}
}

// Detect classifies a set of already-categorized entries into a bump type
// and renders a summary. Per-family rule functions (UniProtEntry,
// TaxonomyEntry, GenBankEntry) produce the entries this consumes. family
// labels the bdp_version_bumps_total counter so each ingestion family's
// bump mix can be observed separately.
func Detect(family string, strategy Strategy, entries []ChangelogEntry) VersionChangelog {
	bump := BumpMinor
	for _, e := range entries {
		breaking := e.IsBreaking
		if strategy.TreatModifiedAsBreaking && e.Category == CategoryModified {
			breaking = true
		}
		if breaking {
			bump = BumpMajor
			break
		}
	}

	added, removed, modified, breakingCount := 0, 0, 0, 0
	for _, e := range entries {
		switch e.Category {
		case CategoryAdded:
			added += e.Count
		case CategoryRemoved:
			removed += e.Count
		case CategoryModified:
			modified += e.Count
		}
		if e.IsBreaking {
			breakingCount++
		}
	}
	summary := fmt.Sprintf("%d added, %d removed, %d modified", added, removed, modified)
	summaryText := summary
	if breakingCount > 0 {
		summaryText = fmt.Sprintf("%s (%d breaking change(s))", summary, breakingCount)
	}

	metrics.VersionBumpsTotal.WithLabelValues(family, string(bump)).Inc()

	return VersionChangelog{Bump: bump, Entries: entries, Summary: summary, SummaryText: summaryText}
}

// NextVersion applies bump to (major, minor, patch), per standard semver
// rules: MAJOR resets minor/patch, MINOR resets patch.
func NextVersion(major, minor, patch int, bump Bump) (int, int, int) {
	switch bump {
	case BumpMajor:
		return major + 1, 0, 0
	default:
		return major, minor + 1, 0
	}
}

// UniProtEntry classifies one protein's change per spec.md §4.8's rules:
// removed or sequence-changed is breaking; everything else is not.
func UniProtEntry(accession string, removed, sequenceChanged bool) ChangelogEntry {
	switch {
	case removed:
		return ChangelogEntry{Category: CategoryRemoved, Count: 1, Description: accession + " removed", IsBreaking: true}
	case sequenceChanged:
		return ChangelogEntry{Category: CategoryModified, Count: 1, Description: accession + " sequence changed", IsBreaking: true}
	default:
		return ChangelogEntry{Category: CategoryModified, Count: 1, Description: accession + " annotations changed", IsBreaking: false}
	}
}

// TaxonomyEntry classifies one taxon's change: removed or a scientific-name
// change is breaking; everything else is not.
func TaxonomyEntry(taxID string, removed, scientificNameChanged bool) ChangelogEntry {
	switch {
	case removed:
		return ChangelogEntry{Category: CategoryRemoved, Count: 1, Description: "taxon " + taxID + " removed", IsBreaking: true}
	case scientificNameChanged:
		return ChangelogEntry{Category: CategoryModified, Count: 1, Description: "taxon " + taxID + " renamed", IsBreaking: true}
	default:
		return ChangelogEntry{Category: CategoryModified, Count: 1, Description: "taxon " + taxID + " metadata changed", IsBreaking: false}
	}
}

// GenBankEntry classifies one nucleotide record's change: sequence removed
// or modified is breaking.
func GenBankEntry(accession string, removed, sequenceChanged bool) ChangelogEntry {
	switch {
	case removed:
		return ChangelogEntry{Category: CategoryRemoved, Count: 1, Description: accession + " removed", IsBreaking: true}
	case sequenceChanged:
		return ChangelogEntry{Category: CategoryModified, Count: 1, Description: accession + " sequence changed", IsBreaking: true}
	default:
		return ChangelogEntry{Category: CategoryModified, Count: 1, Description: accession + " metadata changed", IsBreaking: false}
	}
}
