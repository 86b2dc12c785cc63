// Package interpro parses InterPro's release XML via an event-driven
// pull-parse over <interpro> elements, per spec.md §4.3. Unknown elements
// are ignored rather than rejected, matching the spec's tolerance for
// format drift across releases.
package interpro

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/nishad/bdp/internal/parser"
)

// Entry is one <interpro> element.
type Entry struct {
	ID         string `xml:"id,attr"`
	Type       string `xml:"type,attr"`
	ShortName  string `xml:"short_name,attr"`
	Name       string `xml:"name"`
	AbstractXML string `xml:"abstract"`
}

// Parser implements parser.Capability[Entry] over the InterPro release XML.
type Parser struct{}

// decodeEntries runs a streaming token scan, emitting one Entry per
// top-level <interpro> element and skipping everything else (including
// malformed sub-elements, which are tolerated per spec.md §4.3).
func decodeEntries(data []byte, start, end int, unbounded bool) ([]Entry, []parser.Warning, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var entries []Entry
	var warnings []parser.Warning
	idx := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return entries, warnings, err
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "interpro" {
			continue
		}

		if !unbounded && (idx < start || idx >= end) {
			// cheaply skip: consume to the matching end element without
			// unmarshaling fields.
			if err := dec.Skip(); err != nil {
				warnings = append(warnings, parser.Warning{RecordIndex: idx, Message: err.Error()})
			}
			idx++
			continue
		}

		var e Entry
		if err := dec.DecodeElement(&e, &se); err != nil {
			warnings = append(warnings, parser.Warning{RecordIndex: idx, Message: err.Error()})
			idx++
			continue
		}
		entries = append(entries, e)
		idx++
	}
	return entries, warnings, nil
}

func countEntries(data []byte) (int, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	count := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "interpro" {
			if err := dec.Skip(); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// Count returns the number of <interpro> elements without constructing them.
func (Parser) Count(data []byte) (int, error) {
	return countEntries(data)
}

// ParseRange parses entries with logical index in [start, end).
func (Parser) ParseRange(data []byte, start, end int) ([]Entry, []parser.Warning, error) {
	return decodeEntries(data, start, end, false)
}

// ParseAll parses every <interpro> element in data.
func (Parser) ParseAll(data []byte) ([]Entry, []parser.Warning, error) {
	return decodeEntries(data, 0, 0, true)
}
