package property

import "strings"

// MatchKind classifies the outcome of matching free text against the catalog.
type MatchKind string

const (
	// MatchExact means the input equaled a listing name.
	MatchExact MatchKind = "exact"
	// MatchConfident means exactly one listing matched by substring.
	MatchConfident MatchKind = "confident"
	// MatchAmbiguous means several listings matched and the caller must
	// present a choice rather than auto-advance.
	MatchAmbiguous MatchKind = "ambiguous"
	// MatchNone means nothing in the catalog matched.
	MatchNone MatchKind = "none"
)

// Match is the result of a catalog lookup.
type Match struct {
	Kind       MatchKind
	Confidence int
	Listing    Listing
	Candidates []Listing
}

// Match fuzzy-matches free text against the catalog. Exact case-insensitive
// equality wins outright; otherwise substring containment in either direction
// is attempted, with a unique hit treated as confident and multiple hits
// returned for disambiguation.
func (c *Catalog) Match(text string) Match {
	input := strings.ToLower(strings.TrimSpace(text))
	if input == "" {
		return Match{Kind: MatchNone}
	}

	for _, l := range c.listings {
		if strings.ToLower(l.Name) == input {
			return Match{Kind: MatchExact, Confidence: 100, Listing: l}
		}
	}

	var hits []Listing
	for _, l := range c.listings {
		name := strings.ToLower(l.Name)
		if strings.Contains(name, input) || strings.Contains(input, name) {
			hits = append(hits, l)
		}
	}

	switch len(hits) {
	case 0:
		return Match{Kind: MatchNone}
	case 1:
		return Match{Kind: MatchConfident, Confidence: 90, Listing: hits[0]}
	default:
		return Match{Kind: MatchAmbiguous, Confidence: 50, Candidates: hits}
	}
}
