package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nishad/bdp/internal/ftpclient"
)

// InterProSource discovers InterPro releases: (major, minor) lexicographic
// ordering, dates estimated from a 2001 base epoch at +3 months per major
// version. Per spec.md §9's open question, this estimate is deliberately
// coarse; exact dates require parsing release_notes.txt, which is not
// implemented here.
type InterProSource struct {
	Client *ftpclient.Client
}

const interproBaseEpoch = 2001

func (InterProSource) Family() Family { return FamilyInterPro }

func (s InterProSource) DiscoverAllVersions(ctx context.Context) ([]DiscoveredVersion, error) {
	names, err := s.Client.ListDirectory(ctx, "/pub/databases/interpro/releases", true)
	if err != nil {
		return nil, err
	}

	var out []DiscoveredVersion
	for _, name := range names {
		major, minor, ok := parseInterProVersion(name)
		if !ok {
			continue
		}
		out = append(out, DiscoveredVersion{
			ExternalVersion: name,
			ReleaseDate:     estimateInterProDate(major),
			OrderingKey:     fmt.Sprintf("%010d.%010d", major, minor),
			Extras:          map[string]string{"major": strconv.Itoa(major), "minor": strconv.Itoa(minor)},
		})
	}
	return out, nil
}

func parseInterProVersion(label string) (major, minor int, ok bool) {
	parts := strings.SplitN(label, ".", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return major, minor, true
}

func estimateInterProDate(major int) time.Time {
	monthsElapsed := major * 3
	return time.Date(interproBaseEpoch, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, monthsElapsed, 0)
}

// InterProReleasePath returns the source file path for a release directory
// name like "95.0", as an absolute path on the EBI FTP host.
func InterProReleasePath(label string) string {
	return fmt.Sprintf("/pub/databases/interpro/releases/%s/interpro.xml.gz", label)
}
