// Package latex validates generated LaTeX source before it enters the
// rendering pipeline.
package latex

import (
	"fmt"
	"strings"
)

// MinSourceLength is the smallest LaTeX document we accept as plausibly
// complete. Anything shorter is treated as a truncated generation.
const MinSourceLength = 100

// dangerousCommands can read or write arbitrary files, or shell out, when
// pdflatex runs without restricted mode. Generated source must never
// contain them.
var dangerousCommands = []string{
	`\write18`,
	`\input`,
	`\include`,
	`\openin`,
	`\openout`,
}

// ValidationError describes why a LaTeX source document was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid latex source: %s", e.Reason)
}

// Validate checks that source is a structurally plausible, self-contained
// LaTeX document. It does not attempt compilation; Tier 1 does that.
func Validate(source string) error {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return &ValidationError{Reason: "source is empty"}
	}
	if len(trimmed) < MinSourceLength {
		return &ValidationError{Reason: fmt.Sprintf("source too short (%d chars, need %d)", len(trimmed), MinSourceLength)}
	}
	if !strings.HasPrefix(trimmed, `\documentclass`) {
		return &ValidationError{Reason: `source does not start with \documentclass`}
	}
	if !strings.Contains(trimmed, `\begin{document}`) {
		return &ValidationError{Reason: `missing \begin{document}`}
	}
	if !strings.Contains(trimmed, `\end{document}`) {
		return &ValidationError{Reason: `missing \end{document}`}
	}
	// Escaped braces are literal text, not grouping.
	braces := strings.NewReplacer(`\\`, "", `\{`, "", `\}`, "").Replace(trimmed)
	if open, close := strings.Count(braces, "{"), strings.Count(braces, "}"); open != close {
		return &ValidationError{Reason: fmt.Sprintf("unbalanced braces (%d open, %d close)", open, close)}
	}
	for _, cmd := range dangerousCommands {
		if containsCommand(trimmed, cmd) {
			return &ValidationError{Reason: fmt.Sprintf("forbidden command %s", cmd)}
		}
	}
	return nil
}

// containsCommand reports whether source uses cmd as a command, not merely
// as a prefix of a longer command name (\include must not match
// \includegraphics).
func containsCommand(source, cmd string) bool {
	for idx := strings.Index(source, cmd); idx >= 0; {
		rest := source[idx+len(cmd):]
		if rest == "" || !isCommandLetter(rest[0]) {
			return true
		}
		next := strings.Index(rest, cmd)
		if next < 0 {
			return false
		}
		idx = idx + len(cmd) + next
	}
	return false
}

func isCommandLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
