// Package genbank parses the NCBI GenBank flat-file format per spec.md
// §4.3. Grounded on the same line-scanning idiom as the uniprot parser,
// adapted for GenBank's column-keyed sections and FEATURES sub-language.
package genbank

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/nishad/bdp/internal/parser"
)

// Feature is one entry in the FEATURES table.
type Feature struct {
	Type       string
	Location   string
	Qualifiers map[string]string
}

// Record is one parsed GenBank entry.
type Record struct {
	Locus          string
	Division       string
	Definition     string
	Accession      string
	Version        string
	Organism       string
	Features       []Feature
	Sequence       string
	SequenceLength int
}

// GCContent is |{G,C}| / |seq| over the uppercased residue string.
func (r Record) GCContent() float64 {
	if len(r.Sequence) == 0 {
		return 0
	}
	gc := 0
	for _, c := range strings.ToUpper(r.Sequence) {
		if c == 'G' || c == 'C' {
			gc++
		}
	}
	return float64(gc) / float64(len(r.Sequence))
}

// SequenceHash is SHA-256(upper(seq)).
func (r Record) SequenceHash() string {
	sum := sha256.Sum256([]byte(strings.ToUpper(r.Sequence)))
	return hex.EncodeToString(sum[:])
}

// Parser implements parser.Capability[Record].
type Parser struct{}

func recordBounds(data []byte) [][2]int {
	var bounds [][2]int
	start := 0
	offset := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		lineLen := len(line) + 1
		if bytes.Equal(bytes.TrimRight(line, "\r"), []byte("//")) {
			bounds = append(bounds, [2]int{start, offset + lineLen})
			start = offset + lineLen
		}
		offset += lineLen
	}
	return bounds
}

// Count returns the number of logical records in data.
func (Parser) Count(data []byte) (int, error) {
	return len(recordBounds(data)), nil
}

// ParseRange parses records with logical index in [start, end).
func (Parser) ParseRange(data []byte, start, end int) ([]Record, []parser.Warning, error) {
	bounds := recordBounds(data)
	var records []Record
	var warnings []parser.Warning

	for i := start; i < end && i < len(bounds); i++ {
		b := bounds[i]
		rec, err := parseRecord(data[b[0]:b[1]])
		if err != nil {
			warnings = append(warnings, parser.Warning{RecordIndex: i, Message: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records, warnings, nil
}

// ParseAll parses every record in data.
func (Parser) ParseAll(data []byte) ([]Record, []parser.Warning, error) {
	n, _ := Parser{}.Count(data)
	return Parser{}.ParseRange(data, 0, n)
}

const (
	sectionNone = iota
	sectionFeatures
	sectionOrigin
)

func parseRecord(block []byte) (Record, error) {
	var rec Record
	section := sectionNone
	var curFeature *Feature
	var curQualifier string
	var seqBuilder strings.Builder

	scanner := bufio.NewScanner(bytes.NewReader(block))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "//" {
			break
		}
		if line == "" {
			continue
		}

		// Column-0 keyword starts a new top-level section.
		if !strings.HasPrefix(line, " ") {
			keyword := strings.Fields(line)[0]
			rest := strings.TrimSpace(strings.TrimPrefix(line, keyword))
			switch keyword {
			case "LOCUS":
				parseLocusLine(rest, &rec)
				section = sectionNone
			case "DEFINITION":
				rec.Definition = rest
				section = sectionNone
			case "ACCESSION":
				rec.Accession = strings.Fields(rest)[0]
				section = sectionNone
			case "VERSION":
				rec.Version = strings.Fields(rest)[0]
				section = sectionNone
			case "ORGANISM":
				rec.Organism = rest
				section = sectionNone
			case "FEATURES":
				section = sectionFeatures
				curFeature = nil
			case "ORIGIN":
				section = sectionOrigin
			default:
				section = sectionNone
			}
			continue
		}

		switch section {
		case sectionFeatures:
			if strings.HasPrefix(line, "     ") && len(line) > 5 && line[5] != ' ' {
				// column 5: new feature (type + location)
				fields := strings.Fields(line)
				if len(fields) >= 2 {
					rec.Features = append(rec.Features, Feature{
						Type:       fields[0],
						Location:   fields[1],
						Qualifiers: map[string]string{},
					})
					curFeature = &rec.Features[len(rec.Features)-1]
					curQualifier = ""
				}
			} else if curFeature != nil {
				// column 21: qualifier or continuation
				trimmed := strings.TrimSpace(line)
				if strings.HasPrefix(trimmed, "/") {
					kv := strings.SplitN(strings.TrimPrefix(trimmed, "/"), "=", 2)
					key := kv[0]
					val := ""
					if len(kv) == 2 {
						val = strings.Trim(kv[1], `"`)
					}
					curFeature.Qualifiers[key] = val
					curQualifier = key
				} else if curQualifier != "" {
					curFeature.Qualifiers[curQualifier] = strings.TrimSuffix(curFeature.Qualifiers[curQualifier], `"`) + " " + strings.Trim(trimmed, `"`)
				}
			}
		case sectionOrigin:
			fields := strings.Fields(line)
			for i, f := range fields {
				if i == 0 {
					continue // leading position number
				}
				seqBuilder.WriteString(strings.ToUpper(f))
			}
		}
	}

	rec.Sequence = seqBuilder.String()
	rec.SequenceLength = len(rec.Sequence)

	if rec.Locus == "" || rec.Accession == "" {
		return rec, errMissingRequiredSection
	}
	return rec, nil
}

var errMissingRequiredSection = missingSectionError{}

type missingSectionError struct{}

func (missingSectionError) Error() string {
	return "truncated GenBank record: missing required LOCUS or ACCESSION section"
}

func parseLocusLine(rest string, rec *Record) {
	fields := strings.Fields(rest)
	if len(fields) > 0 {
		rec.Locus = fields[0]
	}
	// the division is the second-to-last field on LOCUS lines, a 3-letter
	// code (e.g. "PRI", "ROD", "VRL") immediately preceding the date.
	if len(fields) >= 2 {
		candidate := fields[len(fields)-2]
		if len(candidate) == 3 && strings.ToUpper(candidate) == candidate {
			rec.Division = candidate
		}
	}
}

// ParseInt is a small helper retained for callers that need to interpret
// qualifier values like /codon_start as integers.
func ParseInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil
}
