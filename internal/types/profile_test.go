package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileRoundTrip(t *testing.T) {
	p := &Profile{
		Name:   "Jane Doe",
		Email:  "jane@example.com",
		Skills: []string{"Go", "SQL"},
		Extra:  map[string]string{"volunteering": "Code club mentor"},
	}

	raw, err := p.Encode()
	require.NoError(t, err)

	got, err := ParseProfile(raw)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestParseProfileRejectsGarbage(t *testing.T) {
	_, err := ParseProfile("{not json")
	require.Error(t, err)
}

func TestFormatForPrompt(t *testing.T) {
	p := &Profile{
		Name:       "Jane Doe",
		Email:      "jane@example.com",
		Summary:    "Engineer.",
		Experience: "Acme Corp, 5 years.",
		Skills:     []string{"Go", "PostgreSQL"},
		Extra:      map[string]string{"volunteering": "Mentor"},
	}

	out := p.FormatForPrompt()
	assert.Contains(t, out, "Name: Jane Doe")
	assert.Contains(t, out, "Email: jane@example.com")
	assert.Contains(t, out, "Professional Summary:\nEngineer.")
	assert.Contains(t, out, "Skills: Go, PostgreSQL")
	assert.Contains(t, out, "Volunteering: Mentor")
	assert.NotContains(t, out, "Phone", "empty fields are omitted")
}

func TestFormatForPromptEmptyProfile(t *testing.T) {
	assert.Empty(t, (&Profile{}).FormatForPrompt())
}

func TestSkillsLine(t *testing.T) {
	assert.Equal(t, "a, b, c", (&Profile{Skills: []string{"a", "b", "c"}}).SkillsLine())
	assert.Empty(t, (&Profile{}).SkillsLine())
}
