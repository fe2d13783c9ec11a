package latex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDoc() string {
	return `\documentclass{article}
\begin{document}
\section*{Summary}
Seasoned engineer with a decade of experience building distributed systems.
\end{document}`
}

func TestValidateAcceptsWellFormedDocument(t *testing.T) {
	require.NoError(t, Validate(validDoc()))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		source string
		reason string
	}{
		{"empty", "", "empty"},
		{"whitespace only", "   \n\t  ", "empty"},
		{"too short", `\documentclass{article}`, "too short"},
		{
			"missing documentclass",
			strings.Replace(validDoc(), `\documentclass{article}`, `% a comment line instead`, 1),
			`\documentclass`,
		},
		{
			"missing begin document",
			strings.Replace(validDoc(), `\begin{document}`, "", 1),
			`\begin{document}`,
		},
		{
			"missing end document",
			strings.Replace(validDoc(), `\end{document}`, "", 1),
			`\end{document}`,
		},
		{
			"unbalanced braces",
			strings.Replace(validDoc(), `\section*{Summary}`, `\section*{Summary`, 1),
			"unbalanced braces",
		},
		{
			"shell escape",
			strings.Replace(validDoc(), `\section*{Summary}`, `\write18{rm -rf /}\section*{Summary}`, 1),
			`\write18`,
		},
		{
			"file input",
			strings.Replace(validDoc(), `\section*{Summary}`, `\input{other}\section*{Summary}`, 1),
			`\input`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.source)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestValidateAllowsCommandPrefixes(t *testing.T) {
	// \includegraphics must not trip the \include check.
	source := strings.Replace(validDoc(),
		`\section*{Summary}`,
		`\includegraphics{photo}\section*{Summary}`, 1)
	require.NoError(t, Validate(source))
}
