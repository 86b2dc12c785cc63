// Package taxdump parses the three pipe-separated NCBI taxdump DMP files
// per spec.md §4.3: rankedlineage.dmp (the primary per-taxon record),
// merged.dmp (tax-id merges), and delnodes.dmp (deletions). Grounded on the
// teacher's DMP-adjacent pipe-delimited parsing idiom in internal/parser.
package taxdump

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/nishad/bdp/internal/parser"
)

// Taxon is one row of rankedlineage.dmp.
type Taxon struct {
	TaxID          int
	ScientificName string
	Rank           string
	Lineage        string
}

// Merge is one row of merged.dmp: an old tax_id redirected to a new one.
type Merge struct {
	OldTaxID int
	NewTaxID int
}

// Deletion is one row of delnodes.dmp.
type Deletion struct {
	TaxID int
}

// splitDMPLine splits a taxdump DMP row on its "|" column separator.
// NCBI's dmp files terminate each row with a trailing "\t|", which produces
// an empty trailing field after the split; that field is dropped here so
// callers can index columns from the end without adjusting for it.
func splitDMPLine(line string) []string {
	fields := strings.Split(line, "|")
	if len(fields) > 0 && strings.TrimSpace(fields[len(fields)-1]) == "" {
		fields = fields[:len(fields)-1]
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// RankedLineageParser implements parser.Capability[Taxon] over rankedlineage.dmp.
type RankedLineageParser struct{}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	count := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		if len(strings.TrimSpace(scanner.Text())) == 0 {
			continue
		}
		count++
	}
	return count
}

// Count returns the number of non-blank rows in data.
func (RankedLineageParser) Count(data []byte) (int, error) {
	return countLines(data), nil
}

// ParseRange parses rows with logical index in [start, end).
func (RankedLineageParser) ParseRange(data []byte, start, end int) ([]Taxon, []parser.Warning, error) {
	var taxa []Taxon
	var warnings []parser.Warning

	idx := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if idx < start {
			idx++
			continue
		}
		if idx >= end {
			break
		}
		fields := splitDMPLine(line)
		// rankedlineage.dmp: tax_id | sci_name | ... | rank | lineage
		if len(fields) < 2 {
			warnings = append(warnings, parser.Warning{RecordIndex: idx, Message: "malformed rankedlineage row"})
			idx++
			continue
		}
		taxID, err := strconv.Atoi(fields[0])
		if err != nil {
			warnings = append(warnings, parser.Warning{RecordIndex: idx, Message: "non-integer tax_id"})
			idx++
			continue
		}
		t := Taxon{TaxID: taxID, ScientificName: fields[1]}
		if len(fields) >= 2 {
			// rank is second-to-last column, lineage is last, per spec.md §4.3.
			if len(fields) >= 2 {
				t.Lineage = fields[len(fields)-1]
			}
			if len(fields) >= 3 {
				t.Rank = fields[len(fields)-2]
			}
		}
		taxa = append(taxa, t)
		idx++
	}
	return taxa, warnings, nil
}

// ParseAll parses every row in data.
func (RankedLineageParser) ParseAll(data []byte) ([]Taxon, []parser.Warning, error) {
	n, _ := RankedLineageParser{}.Count(data)
	return RankedLineageParser{}.ParseRange(data, 0, n)
}

// ParseMerged parses merged.dmp in full; the file is small enough that no
// count/parse_range split is needed.
func ParseMerged(data []byte) ([]Merge, error) {
	var merges []Merge
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		fields := splitDMPLine(line)
		if len(fields) < 2 {
			continue
		}
		oldID, err1 := strconv.Atoi(fields[0])
		newID, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		merges = append(merges, Merge{OldTaxID: oldID, NewTaxID: newID})
	}
	return merges, nil
}

// ParseDelnodes parses delnodes.dmp in full.
func ParseDelnodes(data []byte) ([]Deletion, error) {
	var deletions []Deletion
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		fields := splitDMPLine(line)
		if len(fields) < 1 {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		deletions = append(deletions, Deletion{TaxID: id})
	}
	return deletions, nil
}
