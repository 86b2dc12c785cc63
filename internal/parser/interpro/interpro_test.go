package interpro

import "testing"

const sampleXML = `<?xml version="1.0"?>
<interpro_database>
<interpro id="IPR000001" type="Domain" short_name="Kringle">
<name>Kringle domain</name>
<abstract>A disulfide-rich domain.</abstract>
</interpro>
<interpro id="IPR000002" type="Family" short_name="Insulin">
<name>Insulin family</name>
<abstract>Insulin-like growth factors.</abstract>
</interpro>
</interpro_database>
`

func TestInterProCount(t *testing.T) {
	p := Parser{}
	n, err := p.Count([]byte(sampleXML))
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
}

func TestInterProParseAll(t *testing.T) {
	p := Parser{}
	entries, warnings, err := p.ParseAll([]byte(sampleXML))
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "IPR000001" || entries[0].Name != "Kringle domain" {
		t.Errorf("unexpected first entry %+v", entries[0])
	}
	if entries[1].ShortName != "Insulin" {
		t.Errorf("unexpected second entry %+v", entries[1])
	}
}

func TestInterProParseRangeSkipsFirst(t *testing.T) {
	p := Parser{}
	entries, _, err := p.ParseRange([]byte(sampleXML), 1, 2)
	if err != nil {
		t.Fatalf("ParseRange failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "IPR000002" {
		t.Errorf("unexpected ParseRange result %+v", entries)
	}
}

func TestInterProIgnoresUnknownElements(t *testing.T) {
	withExtra := `<interpro_database><release><date>2024-01-01</date></release><interpro id="IPR000003" type="Domain"><name>Other</name></interpro></interpro_database>`
	p := Parser{}
	entries, _, err := p.ParseAll([]byte(withExtra))
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "IPR000003" {
		t.Errorf("unexpected entries %+v", entries)
	}
}
