package llm

import (
	"fmt"
	"strings"

	"github.com/morphcv/cvgen/internal/types"
)

const generatePromptTemplate = `You are an expert CV writer and LaTeX typesetter.

Write a complete, compilable LaTeX CV tailored to the job description below.
Use the "%s" layout style. Emphasize the candidate's experience and skills
that match the job description. Do not invent facts not present in the
candidate data.

Candidate data:
%s

Job description:
%s

Requirements:
- The document must start with \documentclass and be fully self-contained.
- Use only packages available in a standard TeX Live installation.
- Do not use \input, \include, or \write18.
- Keep the CV to at most two pages.

Respond with a JSON object of the form {"latex_code": "<the full LaTeX source>"}.`

const editPromptTemplate = `You are an expert CV writer and LaTeX typesetter.

Below is an existing LaTeX CV. Apply the requested changes while keeping the
document compilable and self-contained. Preserve the overall layout unless
the instructions say otherwise.

Current LaTeX source:
%s

Requested changes:
%s

Candidate data (for reference):
%s

Respond with a JSON object of the form {"latex_code": "<the full updated LaTeX source>"}.`

func buildGeneratePrompt(profile *types.Profile, jobDescription, templateName string) string {
	if templateName == "" {
		templateName = "modern"
	}
	return fmt.Sprintf(generatePromptTemplate,
		templateName, profile.FormatForPrompt(), strings.TrimSpace(jobDescription))
}

func buildEditPrompt(priorSource, instructions string, profile *types.Profile) string {
	return fmt.Sprintf(editPromptTemplate,
		priorSource, strings.TrimSpace(instructions), profile.FormatForPrompt())
}
