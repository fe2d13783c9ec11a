package render

import (
	"regexp"
	"strings"
)

// ExtractedFields is the best-effort structured view of a LaTeX source
// document that the synthetic renderer draws from. Extraction never
// requires the source to be well-formed; missing fields stay empty.
type ExtractedFields struct {
	Name     string
	Email    string
	Phone    string
	Sections []ExtractedSection
}

// ExtractedSection is one section heading with its body text.
type ExtractedSection struct {
	Heading string
	Body    string
}

var (
	emailRe   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe   = regexp.MustCompile(`\+?[0-9][0-9 ()\-]{6,}[0-9]`)
	nameCmdRe = regexp.MustCompile(`\\name\{([^}]*)\}`)
	largeRe   = regexp.MustCompile(`\{\\(?:Huge|huge|LARGE|Large)\\?[a-z]*\s+([^}]+)\}`)
	boldRe    = regexp.MustCompile(`\\textbf\{([^}]+)\}`)
	sectionRe = regexp.MustCompile(`\\(?:sub)?section\*?\{([^}]*)\}`)
	commandRe = regexp.MustCompile(`\\[A-Za-z]+\*?(\[[^\]]*\])?`)
)

// ExtractFields pulls name, contact details, and section bodies out of
// possibly-malformed LaTeX source using pattern matching.
func ExtractFields(source string) ExtractedFields {
	var f ExtractedFields

	if m := nameCmdRe.FindStringSubmatch(source); m != nil {
		f.Name = cleanText(m[1])
	} else if m := largeRe.FindStringSubmatch(source); m != nil {
		f.Name = cleanText(m[1])
	} else if m := boldRe.FindStringSubmatch(source); m != nil {
		f.Name = cleanText(m[1])
	}

	if m := emailRe.FindString(source); m != "" {
		f.Email = m
	}
	if m := phoneRe.FindString(source); m != "" {
		f.Phone = strings.TrimSpace(m)
	}

	f.Sections = extractSections(source)
	return f
}

// extractSections splits the source on \section commands, pairing each
// heading with the text up to the next heading or \end{document}.
func extractSections(source string) []ExtractedSection {
	matches := sectionRe.FindAllStringSubmatchIndex(source, -1)
	var sections []ExtractedSection
	for i, m := range matches {
		heading := cleanText(source[m[2]:m[3]])
		bodyStart := m[1]
		bodyEnd := len(source)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		} else if idx := strings.Index(source[bodyStart:], `\end{document}`); idx >= 0 {
			bodyEnd = bodyStart + idx
		}
		body := cleanText(source[bodyStart:bodyEnd])
		if heading == "" && body == "" {
			continue
		}
		sections = append(sections, ExtractedSection{Heading: heading, Body: body})
	}
	return sections
}

// cleanText strips LaTeX commands and markup from a snippet, leaving plain
// text suitable for drawing.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, `\\`, "\n")
	s = strings.ReplaceAll(s, `\&`, "&")
	s = strings.ReplaceAll(s, `\%`, "%")
	s = strings.ReplaceAll(s, `\_`, "_")
	s = strings.ReplaceAll(s, `\$`, "$")
	s = strings.ReplaceAll(s, `\#`, "#")
	s = commandRe.ReplaceAllString(s, " ")
	s = strings.NewReplacer("{", "", "}", "", "~", " ", "$", "").Replace(s)

	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" && !strings.HasPrefix(line, "%") {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
