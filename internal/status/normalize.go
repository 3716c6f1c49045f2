// Package status maps free-text application status labels from job portals and manual
// entry onto a small canonical vocabulary.
package status

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canonical status labels.
const (
	Applied   = "Applied"
	Interview = "Interview"
	Onsite    = "Onsite"
	Offer     = "Offer"
	Ranked    = "Ranked"
	Rejected  = "Rejected"
)

// Family groups the keywords that all resolve to the same canonical label.
type Family struct {
	Label    string
	Keywords []string
}

// DefaultFamilies returns the keyword families in matching priority order.
// Co-op postings that end up "filled" or "unfilled" never went to the candidate,
// so both sit in the rejected family ahead of everything else.
func DefaultFamilies() []Family {
	return []Family{
		{Label: Rejected, Keywords: []string{
			"unfilled", "filled", "cancelled", "canceled", "closed", "not selected",
			"rejected", "unsuccessful", "declined", "did not proceed",
		}},
		{Label: Offer, Keywords: []string{"offer", "accepted", "accept"}},
		{Label: Onsite, Keywords: []string{"onsite", "final round"}},
		{Label: Interview, Keywords: []string{"interview", "phone screen", "screen", "assessment"}},
		{Label: Ranked, Keywords: []string{"ranked", "alternate", "shortlist", "pool"}},
		{Label: Applied, Keywords: []string{"applied", "submitted", "received", "under review", "in progress"}},
	}
}

// Normalizer resolves raw labels against an ordered list of families.
// The first family with any keyword contained in the lower-cased input wins.
type Normalizer struct {
	families []Family
	empty    string
}

// New creates a Normalizer over the given families. Keywords are lower-cased once here;
// the caller's slice is not retained.
func New(families []Family) *Normalizer {
	owned := make([]Family, 0, len(families))
	for _, f := range families {
		keywords := make([]string, 0, len(f.Keywords))
		for _, k := range f.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				keywords = append(keywords, k)
			}
		}
		owned = append(owned, Family{Label: f.Label, Keywords: keywords})
	}
	return &Normalizer{families: owned, empty: Applied}
}

// Default returns a Normalizer over DefaultFamilies.
func Default() *Normalizer {
	return New(DefaultFamilies())
}

// Normalize returns the canonical label for raw. Input that matches no family is
// returned trimmed and title-cased; empty or whitespace-only input becomes "Applied".
func (n *Normalizer) Normalize(raw string) string {
	text := strings.TrimSpace(raw)
	if label, ok := n.Match(text); ok {
		return label
	}
	if text == "" {
		return n.empty
	}
	// Casers carry state, so one is built per call.
	return cases.Title(language.Und).String(text)
}

// Match reports the label of the first family matching raw, if any.
// Matching is substring based: "screening" matches "screen".
func (n *Normalizer) Match(raw string) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return "", false
	}
	for _, f := range n.families {
		for _, k := range f.Keywords {
			if strings.Contains(lowered, k) {
				return f.Label, true
			}
		}
	}
	return "", false
}

// Families returns a copy of the configured families in priority order.
func (n *Normalizer) Families() []Family {
	out := make([]Family, len(n.families))
	for i, f := range n.families {
		out[i] = Family{Label: f.Label, Keywords: append([]string(nil), f.Keywords...)}
	}
	return out
}

// IsCanonical reports whether label is one of the fixed canonical statuses.
func IsCanonical(label string) bool {
	switch label {
	case Applied, Interview, Onsite, Offer, Ranked, Rejected:
		return true
	}
	return false
}
