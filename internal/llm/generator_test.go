package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morphcv/cvgen/internal/latex"
	"github.com/morphcv/cvgen/internal/types"
)

const goodSource = `\documentclass{article}
\begin{document}
\section*{Summary}
Backend engineer focused on distributed systems and developer tooling.
\end{document}`

// fakeClient returns canned responses without any network traffic.
type fakeClient struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeClient) GenerateJSON(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeClient) Close() error { return nil }

func testProfile() *types.Profile {
	return &types.Profile{
		Name:       "A",
		Email:      "a@x.com",
		Experience: "Built things at scale.",
		Skills:     []string{"x", "y"},
	}
}

func newTestGenerator(client Client) *Generator {
	return NewGenerator(client, 0, zerolog.Nop())
}

func TestGenerateReturnsModelOutput(t *testing.T) {
	client := &fakeClient{response: `{"latex_code": ` + quoted(goodSource) + `}`}
	gen := newTestGenerator(client)

	res := gen.Generate(context.Background(), testProfile(), "Senior Engineer role", "modern")
	assert.False(t, res.Degraded)
	assert.Equal(t, goodSource, res.Source)
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "Name: A")
	assert.Contains(t, client.prompts[0], "Senior Engineer role")
}

func TestGenerateFallsBackOnModelError(t *testing.T) {
	gen := newTestGenerator(&fakeClient{err: errors.New("model unavailable")})

	res := gen.Generate(context.Background(), testProfile(), "desc", "modern")
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Warning, "model unavailable")
	// The substitute must itself be a valid document.
	require.NoError(t, latex.Validate(res.Source))
	assert.Contains(t, res.Source, "A")
}

func TestGenerateFallsBackOnMalformedPayload(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "this is not json"},
		{"missing key", `{"code": "x"}`},
		{"empty latex", `{"latex_code": ""}`},
		{"invalid latex", `{"latex_code": "hello world"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newTestGenerator(&fakeClient{response: tt.response})
			res := gen.Generate(context.Background(), testProfile(), "desc", "modern")
			assert.True(t, res.Degraded)
			require.NoError(t, latex.Validate(res.Source))
		})
	}
}

// stalledClient never responds on its own; it only returns once the call
// context is cancelled.
type stalledClient struct{}

func (stalledClient) GenerateJSON(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (stalledClient) Close() error { return nil }

func TestGenerateTimesOutStalledModelCall(t *testing.T) {
	gen := NewGenerator(stalledClient{}, 20*time.Millisecond, zerolog.Nop())

	start := time.Now()
	res := gen.Generate(context.Background(), testProfile(), "desc", "modern")
	assert.Less(t, time.Since(start), 5*time.Second, "the call must unblock on its own deadline")
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Warning, context.DeadlineExceeded.Error())
	require.NoError(t, latex.Validate(res.Source))
}

func TestEditTimesOutStalledModelCall(t *testing.T) {
	gen := NewGenerator(stalledClient{}, 20*time.Millisecond, zerolog.Nop())

	res := gen.Edit(context.Background(), goodSource, "shorten it", testProfile())
	assert.True(t, res.Degraded)
	assert.Equal(t, goodSource, res.Source)
}

func TestEditReturnsUpdatedSource(t *testing.T) {
	updated := goodSource + "\n% revised"
	client := &fakeClient{response: `{"latex_code": ` + quoted(updated) + `}`}
	gen := newTestGenerator(client)

	res := gen.Edit(context.Background(), goodSource, "add a projects section", testProfile())
	assert.False(t, res.Degraded)
	assert.Equal(t, updated, res.Source)
	assert.Contains(t, client.prompts[0], "add a projects section")
}

func TestEditKeepsPriorSourceOnFailure(t *testing.T) {
	gen := newTestGenerator(&fakeClient{err: errors.New("timeout")})

	res := gen.Edit(context.Background(), goodSource, "shorten it", testProfile())
	assert.True(t, res.Degraded)
	assert.Equal(t, goodSource, res.Source, "a failed edit must never lose the working document")
}

// quoted JSON-encodes a string for embedding in a response literal.
func quoted(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
