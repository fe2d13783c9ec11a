package llm

import (
	"fmt"
	"strings"

	"github.com/morphcv/cvgen/internal/types"
)

// FallbackSource fills a fixed LaTeX skeleton from whatever profile fields
// are present, defaulting the rest to placeholder text. The output always
// passes source validation, so the render chain is guaranteed an input.
func FallbackSource(profile *types.Profile) string {
	if profile == nil {
		profile = &types.Profile{}
	}

	name := orPlaceholder(profile.Name, "Your Name")
	contact := contactLine(profile)
	summary := orPlaceholder(profile.Summary, "Professional summary not provided.")
	experience := orPlaceholder(profile.Experience, "Experience details not provided.")
	skills := orPlaceholder(profile.SkillsLine(), "Skills not provided.")
	education := orPlaceholder(profile.Education, "Education details not provided.")

	var sb strings.Builder
	sb.WriteString("\\documentclass[11pt,a4paper]{article}\n")
	sb.WriteString("\\usepackage[margin=2cm]{geometry}\n")
	sb.WriteString("\\usepackage{parskip}\n")
	sb.WriteString("\\pagestyle{empty}\n")
	sb.WriteString("\\begin{document}\n")
	sb.WriteString(fmt.Sprintf("{\\Large\\bfseries %s}\\par\n", EscapeLatex(name)))
	if contact != "" {
		sb.WriteString(fmt.Sprintf("%s\\par\n", EscapeLatex(contact)))
	}
	sb.WriteString("\\vspace{1em}\n")
	writeSection(&sb, "Summary", summary)
	writeSection(&sb, "Experience", experience)
	writeSection(&sb, "Skills", skills)
	writeSection(&sb, "Education", education)
	if profile.Projects != "" {
		writeSection(&sb, "Projects", profile.Projects)
	}
	if profile.Certifications != "" {
		writeSection(&sb, "Certifications", profile.Certifications)
	}
	if profile.Languages != "" {
		writeSection(&sb, "Languages", profile.Languages)
	}
	sb.WriteString("\\end{document}\n")
	return sb.String()
}

func writeSection(sb *strings.Builder, heading, body string) {
	sb.WriteString(fmt.Sprintf("\\section*{%s}\n%s\n", heading, EscapeLatex(body)))
}

func contactLine(p *types.Profile) string {
	var parts []string
	for _, v := range []string{p.Email, p.Phone, p.Location, p.LinkedIn, p.Website} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " \u00b7 ")
}

func orPlaceholder(value, placeholder string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// EscapeLatex makes arbitrary user text safe to embed in LaTeX body text.
func EscapeLatex(s string) string {
	return latexEscaper.Replace(s)
}
