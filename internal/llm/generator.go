package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/morphcv/cvgen/internal/latex"
	"github.com/morphcv/cvgen/internal/types"
)

// DefaultGenerationTimeout bounds one model round trip. The model call is
// the only external dependency without its own deadline; a stalled
// transport must degrade to the fallback instead of pinning a worker.
const DefaultGenerationTimeout = 60 * time.Second

// responseSchema constrains the model's JSON payload before the LaTeX
// inside is trusted.
const responseSchema = `{
	"type": "object",
	"required": ["latex_code"],
	"properties": {
		"latex_code": {"type": "string", "minLength": 1}
	}
}`

type latexPayload struct {
	LatexCode string `json:"latex_code"`
}

// Result is the outcome of a generation or edit call. Source is never
// empty: when the model call or its output fails, Degraded is set and
// Source carries the best available substitute.
type Result struct {
	Source   string
	Degraded bool
	Warning  string
}

// Generator wraps a model client with output validation and the static
// fallback. It never returns an error for model or validation failures;
// only programming errors (nil profile) surface.
type Generator struct {
	client  Client
	timeout time.Duration
	log     zerolog.Logger
}

// NewGenerator builds a Generator around the given client. A non-positive
// timeout falls back to DefaultGenerationTimeout.
func NewGenerator(client Client, timeout time.Duration, log zerolog.Logger) *Generator {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &Generator{
		client:  client,
		timeout: timeout,
		log:     log.With().Str("component", "llm").Logger(),
	}
}

// Generate produces tailored LaTeX source for the profile and job
// description. On any failure it falls back to the static template filled
// from the profile, marked Degraded.
func (g *Generator) Generate(ctx context.Context, profile *types.Profile, jobDescription, templateName string) Result {
	prompt := buildGeneratePrompt(profile, jobDescription, templateName)

	source, err := g.callModel(ctx, prompt)
	if err != nil {
		g.log.Warn().Err(err).Msg("generation failed, using fallback template")
		return Result{Source: FallbackSource(profile), Degraded: true, Warning: err.Error()}
	}
	if err := latex.Validate(source); err != nil {
		g.log.Warn().Err(err).Msg("generated source rejected, using fallback template")
		return Result{Source: FallbackSource(profile), Degraded: true, Warning: err.Error()}
	}
	return Result{Source: source}
}

// Edit applies instructions to an existing source document. On any failure
// the prior source is returned unchanged, marked Degraded, so an edit can
// never destroy a working document.
func (g *Generator) Edit(ctx context.Context, priorSource, instructions string, profile *types.Profile) Result {
	prompt := buildEditPrompt(priorSource, instructions, profile)

	source, err := g.callModel(ctx, prompt)
	if err != nil {
		g.log.Warn().Err(err).Msg("edit failed, keeping prior source")
		return Result{Source: priorSource, Degraded: true, Warning: err.Error()}
	}
	if err := latex.Validate(source); err != nil {
		g.log.Warn().Err(err).Msg("edited source rejected, keeping prior source")
		return Result{Source: priorSource, Degraded: true, Warning: err.Error()}
	}
	return Result{Source: source}
}

// callModel runs one deadline-bounded model round trip and unwraps the
// JSON payload.
func (g *Generator) callModel(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.client.GenerateJSON(ctx, prompt)
	if err != nil {
		return "", err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(responseSchema),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return "", fmt.Errorf("response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		return "", fmt.Errorf("response payload rejected: %s", result.Errors()[0].String())
	}

	var payload latexPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("failed to decode response payload: %w", err)
	}
	return payload.LatexCode, nil
}
