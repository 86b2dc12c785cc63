package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/nishad/bdp/internal/ftpclient"
)

// UniProtSource discovers Swiss-Prot releases, ordered lexically on their
// YYYY_NN label (this sorts correctly because the label is a fixed-width
// zero-padded string).
type UniProtSource struct {
	Client *ftpclient.Client
}

func (UniProtSource) Family() Family { return FamilyUniProt }

func (s UniProtSource) DiscoverAllVersions(ctx context.Context) ([]DiscoveredVersion, error) {
	names, err := s.Client.ListDirectory(ctx, "/pub/databases/uniprot/previous_releases", true)
	if err != nil {
		return nil, err
	}

	var out []DiscoveredVersion
	for _, name := range names {
		label := strings.TrimPrefix(name, "release-")
		if !isUniProtLabel(label) {
			continue
		}
		out = append(out, DiscoveredVersion{
			ExternalVersion: label,
			OrderingKey:     label,
		})
	}
	return out, nil
}

func isUniProtLabel(label string) bool {
	parts := strings.SplitN(label, "_", 2)
	if len(parts) != 2 {
		return false
	}
	if len(parts[0]) != 4 || len(parts[1]) != 2 {
		return false
	}
	for _, r := range label {
		if r != '_' && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// UniProtReleasePath returns the source file path for a given release label.
func UniProtReleasePath(label string) string {
	return fmt.Sprintf("/pub/databases/uniprot/previous_releases/release-%s/knowledgebase/complete/uniprot_sprot.dat.gz", label)
}
