package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"github.com/morphcv/cvgen/internal/types"
)

// BuildSyntheticPDF draws a paginated CV directly from fields extracted
// out of the source text, falling back to the profile for anything
// extraction missed. This is Tier 2: it must succeed for any input barring
// I/O failure, so it never depends on the source being well-formed.
func BuildSyntheticPDF(fields ExtractedFields, profile *types.Profile, jobUUID uuid.UUID) ([]byte, error) {
	if profile == nil {
		profile = &types.Profile{}
	}

	name := firstNonEmpty(fields.Name, profile.Name, "Your CV")
	contact := syntheticContactLine(fields, profile)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, tr(name), "", 1, "L", false, 0, "")

	if contact != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(0, 6, tr(contact), "", 1, "L", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	sections := fields.Sections
	if len(sections) == 0 {
		sections = sectionsFromProfile(profile)
	}
	for _, sec := range sections {
		if sec.Heading == "" && sec.Body == "" {
			continue
		}
		if sec.Heading != "" {
			pdf.SetFont("Helvetica", "B", 13)
			pdf.CellFormat(0, 8, tr(sec.Heading), "B", 1, "L", false, 0, "")
			pdf.Ln(1)
		}
		if sec.Body != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(sec.Body), "", "L", false)
		}
		pdf.Ln(3)
	}

	stampWatermark(pdf, jobUUID)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render synthetic pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// stampWatermark writes the attribution line at the bottom of the current
// page.
func stampWatermark(pdf *fpdf.Fpdf, jobUUID uuid.UUID) {
	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.SetTextColor(160, 160, 160)
	mark := fmt.Sprintf("Generated by MorphCV - %s", shortID(jobUUID))
	pdf.CellFormat(0, 5, mark, "", 0, "C", false, 0, "")
}

// shortID is the first UUID group, enough to correlate an artifact with
// its job without exposing the full identifier.
func shortID(jobUUID uuid.UUID) string {
	s := jobUUID.String()
	if idx := strings.IndexByte(s, '-'); idx > 0 {
		return s[:idx]
	}
	return s
}

func syntheticContactLine(fields ExtractedFields, profile *types.Profile) string {
	var parts []string
	for _, v := range []string{
		firstNonEmpty(fields.Email, profile.Email),
		firstNonEmpty(fields.Phone, profile.Phone),
		profile.Location,
	} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "  |  ")
}

// sectionsFromProfile builds section content straight from the profile
// when the source text yielded nothing usable.
func sectionsFromProfile(p *types.Profile) []ExtractedSection {
	var sections []ExtractedSection
	add := func(heading, body string) {
		if strings.TrimSpace(body) != "" {
			sections = append(sections, ExtractedSection{Heading: heading, Body: body})
		}
	}
	add("Summary", p.Summary)
	add("Experience", p.Experience)
	add("Skills", p.SkillsLine())
	add("Education", p.Education)
	add("Projects", p.Projects)
	add("Certifications", p.Certifications)
	add("Languages", p.Languages)
	if len(sections) == 0 {
		sections = append(sections, ExtractedSection{
			Heading: "Summary",
			Body:    "Content is being prepared. Please regenerate this document.",
		})
	}
	return sections
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
