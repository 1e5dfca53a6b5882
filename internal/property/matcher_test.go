package property

import "testing"

func testCatalog() *Catalog {
	return NewCatalog(nil)
}

func TestMatchExact(t *testing.T) {
	m := testCatalog().Match("bedok resale condo")
	if m.Kind != MatchExact {
		t.Fatalf("expected exact match, got %s", m.Kind)
	}
	if m.Confidence != 100 {
		t.Errorf("expected confidence 100, got %d", m.Confidence)
	}
	if m.Listing.Name != "Bedok Resale Condo" {
		t.Errorf("unexpected listing %q", m.Listing.Name)
	}
}

func TestMatchConfidentSubstring(t *testing.T) {
	m := testCatalog().Match("Bedok")
	if m.Kind != MatchConfident {
		t.Fatalf("expected confident match, got %s", m.Kind)
	}
	if m.Confidence != 90 {
		t.Errorf("expected confidence 90, got %d", m.Confidence)
	}
	if m.Listing.Name != "Bedok Resale Condo" {
		t.Errorf("unexpected listing %q", m.Listing.Name)
	}
}

func TestMatchInputContainsName(t *testing.T) {
	m := testCatalog().Match("I want the Pasir Ris Rise unit please")
	if m.Kind != MatchConfident {
		t.Fatalf("expected confident match, got %s", m.Kind)
	}
	if m.Listing.Name != "Pasir Ris Rise" {
		t.Errorf("unexpected listing %q", m.Listing.Name)
	}
}

func TestMatchAmbiguous(t *testing.T) {
	catalog := NewCatalog([]Listing{
		{Name: "Bedok Resale Condo"},
		{Name: "Bedok New Launch"},
		{Name: "Tampines New Launch"},
	})
	m := catalog.Match("bedok")
	if m.Kind != MatchAmbiguous {
		t.Fatalf("expected ambiguous match, got %s", m.Kind)
	}
	if m.Confidence != 50 {
		t.Errorf("expected confidence 50, got %d", m.Confidence)
	}
	if len(m.Candidates) != 2 {
		t.Errorf("expected 2 candidates, got %d", len(m.Candidates))
	}
}

func TestMatchNone(t *testing.T) {
	for _, input := range []string{"Jurong", "", "   "} {
		m := testCatalog().Match(input)
		if m.Kind != MatchNone {
			t.Errorf("Match(%q) = %s; want none", input, m.Kind)
		}
	}
}
