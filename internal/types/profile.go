package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Profile holds the structured candidate data a job is generated from.
// Every field is optional; the prompt formatter and the synthetic renderer
// both default missing fields to placeholder text. Extra carries custom
// sections without a dedicated field.
type Profile struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Website  string `json:"website,omitempty"`

	Summary        string   `json:"summary,omitempty"`
	Experience     string   `json:"experience,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	Education      string   `json:"education,omitempty"`
	Projects       string   `json:"projects,omitempty"`
	Certifications string   `json:"certifications,omitempty"`
	Languages      string   `json:"languages,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
}

// ParseProfile decodes the serialized profile stored on a job record.
func ParseProfile(raw string) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile data: %w", err)
	}
	return &p, nil
}

// Encode serializes the profile for storage on a job record.
func (p *Profile) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode profile data: %w", err)
	}
	return string(data), nil
}

// SkillsLine joins the skills list for single-line rendering.
func (p *Profile) SkillsLine() string {
	return strings.Join(p.Skills, ", ")
}

// FormatForPrompt renders the profile as labeled plain-text lines for the
// generation prompt. Empty fields are omitted; Extra sections come last.
func (p *Profile) FormatForPrompt() string {
	var sb strings.Builder

	line := func(label, value string) {
		if value != "" {
			sb.WriteString(fmt.Sprintf("%s: %s\n", label, value))
		}
	}
	section := func(label, value string) {
		if value != "" {
			sb.WriteString(fmt.Sprintf("\n%s:\n%s\n", label, value))
		}
	}

	line("Name", p.Name)
	line("Email", p.Email)
	line("Phone", p.Phone)
	line("Location", p.Location)
	line("LinkedIn", p.LinkedIn)
	line("Website", p.Website)

	section("Professional Summary", p.Summary)
	section("Experience", p.Experience)
	if len(p.Skills) > 0 {
		sb.WriteString(fmt.Sprintf("\nSkills: %s\n", p.SkillsLine()))
	}
	section("Education", p.Education)
	section("Projects", p.Projects)
	section("Certifications", p.Certifications)
	line("\nLanguages", p.Languages)

	for key, value := range p.Extra {
		if value != "" {
			sb.WriteString(fmt.Sprintf("\n%s: %s\n", titleCase(key), value))
		}
	}

	return strings.TrimSpace(sb.String())
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
