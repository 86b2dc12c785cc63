// Package uniprot parses the UniProt/Swiss-Prot DAT flat-file format per
// spec.md §4.3. Grounded on the teacher's processTarGzStreamWithResume line
// scanning idiom (internal/processor/resumable_processor.go), adapted from
// XML entity scanning onto a line-prefix flat file.
package uniprot

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/nishad/bdp/internal/parser"
)

// Feature is one FT block: a structured annotation over a sequence range.
type Feature struct {
	Type        string
	Start       int
	End         int
	Description string
}

// DBRef is one DR cross-reference line.
type DBRef struct {
	Database string
	ID       string
	Extra    []string
}

// Comment is one CC topic block, continuation lines folded in.
type Comment struct {
	Topic string
	Text  string
}

// Entry is one parsed UniProt record.
type Entry struct {
	EntryName           string
	Reviewed             bool
	Length              int
	Accessions          []string
	ProteinName         string
	AlternativeNames    []string
	ECNumbers           []string
	GeneName            string
	GeneSynonyms        []string
	OrganismName        string
	TaxonomyID          int
	Lineage             []string
	Organelle           string
	Hosts               []string
	Features            []Feature
	DatabaseRefs        []DBRef
	Comments            []Comment
	ProteinExistence    int
	Keywords            []string
	Sequence            string
	SequenceLength      int
	MolecularWeight     int
	CRC64               string
}

// PrimaryAccession is the first (canonical) accession.
func (e Entry) PrimaryAccession() string {
	if len(e.Accessions) == 0 {
		return ""
	}
	return e.Accessions[0]
}

// SequenceHash is the SHA-256 hex digest of the uppercased residue string,
// the identity sequence dedup (C6) keys on.
func (e Entry) SequenceHash() string {
	sum := sha256.Sum256([]byte(strings.ToUpper(e.Sequence)))
	return hex.EncodeToString(sum[:])
}

// Parser implements parser.Capability[Entry].
type Parser struct{}

// recordBounds splits data into byte ranges, one per "//"-terminated record,
// without interpreting any fields — the cheap skip Count and ParseRange need.
func recordBounds(data []byte) [][2]int {
	var bounds [][2]int
	start := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	offset := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		lineLen := len(line) + 1 // account for the newline the scanner strips
		if bytes.Equal(bytes.TrimRight(line, "\r"), []byte("//")) {
			bounds = append(bounds, [2]int{start, offset + lineLen})
			start = offset + lineLen
		}
		offset += lineLen
	}
	return bounds
}

// Count returns the number of logical records without constructing them.
func (Parser) Count(data []byte) (int, error) {
	return len(recordBounds(data)), nil
}

// ParseRange parses records with logical index in [start, end).
func (Parser) ParseRange(data []byte, start, end int) ([]Entry, []parser.Warning, error) {
	bounds := recordBounds(data)
	var entries []Entry
	var warnings []parser.Warning

	for i := start; i < end && i < len(bounds); i++ {
		b := bounds[i]
		entry, err := parseEntry(data[b[0]:b[1]])
		if err != nil {
			warnings = append(warnings, parser.Warning{RecordIndex: i, Message: err.Error()})
			continue
		}
		entries = append(entries, entry)
	}
	return entries, warnings, nil
}

// ParseAll parses every record in data.
func (Parser) ParseAll(data []byte) ([]Entry, []parser.Warning, error) {
	n, _ := Parser{}.Count(data)
	return Parser{}.ParseRange(data, 0, n)
}

func parseEntry(block []byte) (Entry, error) {
	var e Entry
	var currentComment *Comment
	var inSequence bool
	var seqBuilder strings.Builder

	scanner := bufio.NewScanner(bytes.NewReader(block))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "//" {
			break
		}
		if inSequence {
			if strings.HasPrefix(line, "SQ") {
				continue
			}
			seqBuilder.WriteString(strings.ToUpper(strings.ReplaceAll(line, " ", "")))
			continue
		}
		if len(line) < 2 {
			continue
		}
		prefix := line[:2]
		rest := strings.TrimSpace(line[2:])

		switch prefix {
		case "ID":
			fields := strings.Fields(rest)
			if len(fields) > 0 {
				e.EntryName = fields[0]
			}
			e.Reviewed = strings.Contains(rest, "Reviewed")
			for i, f := range fields {
				if strings.HasPrefix(f, "AA") && i > 0 {
					if n, err := strconv.Atoi(fields[i-1]); err == nil {
						e.Length = n
					}
					break
				}
			}
		case "AC":
			for _, acc := range strings.Split(strings.TrimSuffix(rest, ";"), ";") {
				acc = strings.TrimSpace(acc)
				if acc != "" {
					e.Accessions = append(e.Accessions, acc)
				}
			}
		case "DE":
			parseDELine(rest, &e)
		case "GN":
			parseGNLine(rest, &e)
		case "OS":
			e.OrganismName = strings.TrimSuffix(strings.TrimSpace(rest), ".")
		case "OX":
			if id := extractTaxID(rest); id != 0 {
				e.TaxonomyID = id
			}
		case "OC":
			for _, taxon := range strings.Split(strings.TrimSuffix(rest, "."), ";") {
				taxon = strings.TrimSpace(taxon)
				if taxon != "" {
					e.Lineage = append(e.Lineage, taxon)
				}
			}
		case "OG":
			e.Organelle = strings.TrimSuffix(rest, ".")
		case "OH":
			e.Hosts = append(e.Hosts, rest)
		case "FT":
			parseFTLine(rest, &e)
		case "DR":
			parseDRLine(rest, &e)
		case "CC":
			parseCCLine(rest, &e, &currentComment)
		case "PE":
			if n, err := strconv.Atoi(strings.TrimSpace(strings.SplitN(rest, ":", 2)[0])); err == nil {
				e.ProteinExistence = n
			}
		case "KW":
			for _, kw := range strings.Split(strings.TrimSuffix(rest, "."), ";") {
				kw = strings.TrimSpace(kw)
				if kw != "" {
					e.Keywords = append(e.Keywords, kw)
				}
			}
		case "SQ":
			inSequence = true
			parseSQLine(rest, &e)
		}
	}
	if currentComment != nil {
		e.Comments = append(e.Comments, *currentComment)
	}
	e.Sequence = seqBuilder.String()
	if e.SequenceLength == 0 {
		e.SequenceLength = len(e.Sequence)
	}
	if len(e.Accessions) == 0 {
		return e, errors.New("malformed UniProt record: missing AC line")
	}
	return e, nil
}

func parseDELine(rest string, e *Entry) {
	switch {
	case strings.HasPrefix(rest, "RecName:"):
		if name := extractField(rest, "Full="); name != "" {
			e.ProteinName = name
		}
		if ec := extractField(rest, "EC="); ec != "" {
			e.ECNumbers = append(e.ECNumbers, ec)
		}
	case strings.HasPrefix(rest, "AltName:"):
		if name := extractField(rest, "Full="); name != "" {
			e.AlternativeNames = append(e.AlternativeNames, name)
		}
		if short := extractField(rest, "Short="); short != "" {
			e.AlternativeNames = append(e.AlternativeNames, short)
		}
		if ec := extractField(rest, "EC="); ec != "" {
			e.ECNumbers = append(e.ECNumbers, ec)
		}
	default:
		if ec := extractField(rest, "EC="); ec != "" {
			e.ECNumbers = append(e.ECNumbers, ec)
		}
	}
}

func extractField(s, key string) string {
	idx := strings.Index(s, key)
	if idx < 0 {
		return ""
	}
	rest := s[idx+len(key):]
	end := strings.IndexAny(rest, ";{")
	if end < 0 {
		end = len(rest)
	}
	return strings.TrimSpace(strings.TrimSuffix(rest[:end], "."))
}

func parseGNLine(rest string, e *Entry) {
	for _, part := range strings.Split(rest, ";") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "Name="):
			e.GeneName = strings.TrimSpace(strings.TrimPrefix(part, "Name="))
			if idx := strings.Index(e.GeneName, "{"); idx >= 0 {
				e.GeneName = strings.TrimSpace(e.GeneName[:idx])
			}
		case strings.HasPrefix(part, "Synonyms="):
			syns := strings.TrimPrefix(part, "Synonyms=")
			for _, s := range strings.Split(syns, ",") {
				s = strings.TrimSpace(s)
				if s != "" {
					e.GeneSynonyms = append(e.GeneSynonyms, s)
				}
			}
		}
	}
}

func extractTaxID(rest string) int {
	idx := strings.Index(rest, "NCBI_TaxID=")
	if idx < 0 {
		return 0
	}
	s := rest[idx+len("NCBI_TaxID="):]
	end := strings.IndexAny(s, ";{")
	if end < 0 {
		end = len(s)
	}
	n, _ := strconv.Atoi(strings.TrimSpace(s[:end]))
	return n
}

func parseFTLine(rest string, e *Entry) {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		// continuation line of a previous feature's description
		if len(e.Features) > 0 {
			last := &e.Features[len(e.Features)-1]
			last.Description = strings.TrimSpace(last.Description + " " + rest)
		}
		return
	}
	ftType := fields[0]
	location := fields[1]
	description := strings.TrimSpace(strings.Join(fields[2:], " "))

	start, end := parseFTLocation(location)
	e.Features = append(e.Features, Feature{Type: ftType, Start: start, End: end, Description: description})
}

func parseFTLocation(loc string) (int, int) {
	parts := strings.SplitN(loc, "..", 2)
	start, _ := strconv.Atoi(strings.TrimLeft(parts[0], "<>"))
	end := start
	if len(parts) == 2 {
		end, _ = strconv.Atoi(strings.TrimLeft(parts[1], "<>"))
	}
	return start, end
}

func parseDRLine(rest string, e *Entry) {
	parts := strings.Split(strings.TrimSuffix(rest, "."), ";")
	if len(parts) < 2 {
		return
	}
	ref := DBRef{Database: strings.TrimSpace(parts[0]), ID: strings.TrimSpace(parts[1])}
	for _, p := range parts[2:] {
		p = strings.TrimSpace(p)
		if p != "" {
			ref.Extra = append(ref.Extra, p)
		}
	}
	e.DatabaseRefs = append(e.DatabaseRefs, ref)
}

func parseCCLine(rest string, e *Entry, current **Comment) {
	if strings.HasPrefix(rest, "-!-") {
		if *current != nil {
			e.Comments = append(e.Comments, **current)
		}
		body := strings.TrimSpace(strings.TrimPrefix(rest, "-!-"))
		sep := strings.Index(body, ":")
		if sep < 0 {
			*current = &Comment{Topic: body}
			return
		}
		*current = &Comment{Topic: strings.TrimSpace(body[:sep]), Text: strings.TrimSpace(body[sep+1:])}
		return
	}
	if *current != nil {
		(*current).Text = strings.TrimSpace((*current).Text + " " + rest)
	}
}

func parseSQLine(rest string, e *Entry) {
	fields := strings.Fields(rest)
	for i, f := range fields {
		switch {
		case i == 1:
			if n, err := strconv.Atoi(f); err == nil {
				e.SequenceLength = n
			}
		case i == 2:
			if n, err := strconv.Atoi(f); err == nil {
				e.MolecularWeight = n
			}
		case i == 3:
			e.CRC64 = strings.TrimSuffix(f, ";")
		}
	}
}
