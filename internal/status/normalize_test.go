package status

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	n := Default()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Position unfilled", "Position Unfilled", Rejected},
		{"Position filled", "Position Filled", Rejected},
		{"Cancelled posting", "Posting Cancelled", Rejected},
		{"American spelling", "canceled", Rejected},
		{"Not selected", "Not Selected for Interview", Rejected},
		{"Did not proceed", "Employer did not proceed", Rejected},
		{"Phone screen interview", "Interview Scheduled - Phone Screen", Interview},
		{"Offer accepted", "Offer Accepted", Offer},
		{"Accept alone", "Accept", Offer},
		{"Final round", "Final Round Scheduled", Onsite},
		{"Onsite", "ONSITE", Onsite},
		{"Assessment", "Online Assessment sent", Interview},
		{"Shortlisted alternate pool", "Shortlisted / Alternate Pool", Ranked},
		{"Ranked", "Ranked 2", Ranked},
		{"Submitted", "Application Submitted", Applied},
		{"Under review", "under review", Applied},
		{"In progress", "In Progress", Applied},
		{"Surrounding whitespace", "   Offer   ", Offer},
		{"Empty string", "", Applied},
		{"Whitespace only", "   ", Applied},
		{"Tabs and newlines", "\t\n", Applied},
		{"Unknown label title cased", "Some Custom Label", "Some Custom Label"},
		{"Unknown lower case", "waiting on recruiter", "Waiting On Recruiter"},
		{"Unknown upper case", "ON HOLD", "On Hold"},
		{"Unknown trimmed", "  on hold  ", "On Hold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Normalize(tt.input))
		})
	}
}

func TestNormalize_RejectedWinsOverEveryLaterFamily(t *testing.T) {
	n := Default()
	families := DefaultFamilies()
	require.Equal(t, Rejected, families[0].Label)

	for _, rejectedKeyword := range families[0].Keywords {
		for _, later := range families[1:] {
			for _, keyword := range later.Keywords {
				raw := keyword + " / " + rejectedKeyword
				assert.Equal(t, Rejected, n.Normalize(raw), "input %q", raw)
				assert.Equal(t, Rejected, n.Normalize(strings.ToUpper(raw)), "input %q upper", raw)
			}
		}
	}
}

func TestNormalize_SubstringMatch(t *testing.T) {
	n := Default()

	// No word boundaries: embedded keywords still match.
	assert.Equal(t, Interview, n.Normalize("Screening"))
	assert.Equal(t, Ranked, n.Normalize("Carpool"))
	assert.Equal(t, Rejected, n.Normalize("Fulfilled"))
}

func TestNormalize_Idempotent(t *testing.T) {
	n := Default()

	for _, label := range []string{Applied, Interview, Onsite, Offer, Ranked, Rejected} {
		t.Run(label, func(t *testing.T) {
			assert.Equal(t, label, n.Normalize(label))
			assert.Equal(t, label, n.Normalize(n.Normalize(label)))
		})
	}

	for _, raw := range []string{"Some Custom Label", "on hold", "", "Position Unfilled"} {
		once := n.Normalize(raw)
		assert.Equal(t, once, n.Normalize(once), "input %q", raw)
	}
}

func TestNew_CustomFamilies(t *testing.T) {
	n := New([]Family{
		{Label: "Ghosted", Keywords: []string{"  NO RESPONSE ", ""}},
		{Label: Offer, Keywords: []string{"offer"}},
	})

	assert.Equal(t, "Ghosted", n.Normalize("No response after offer call"))
	assert.Equal(t, Offer, n.Normalize("offer"))
	assert.Equal(t, "Rejected", n.Normalize("rejected"), "falls back to title case when no family matches")
	assert.Equal(t, Applied, n.Normalize(""))
}

func TestNew_DoesNotRetainCallerSlice(t *testing.T) {
	families := []Family{{Label: Offer, Keywords: []string{"offer"}}}
	n := New(families)

	families[0].Keywords[0] = "zzz"
	assert.Equal(t, Offer, n.Normalize("Offer extended"))

	got := n.Families()
	got[0].Label = "Changed"
	assert.Equal(t, Offer, n.Families()[0].Label)
}

func TestMatch(t *testing.T) {
	n := Default()

	label, ok := n.Match("Phone Screen")
	assert.True(t, ok)
	assert.Equal(t, Interview, label)

	_, ok = n.Match("Something else")
	assert.False(t, ok)

	_, ok = n.Match("   ")
	assert.False(t, ok)
}

func TestIsCanonical(t *testing.T) {
	assert.True(t, IsCanonical(Applied))
	assert.True(t, IsCanonical(Rejected))
	assert.False(t, IsCanonical("Phone Screen"))
	assert.False(t, IsCanonical("applied"))
}
