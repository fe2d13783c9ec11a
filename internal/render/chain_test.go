package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morphcv/cvgen/internal/store"
	"github.com/morphcv/cvgen/internal/types"
)

func newTestRenderer(t *testing.T) (*Renderer, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	// A nonexistent binary forces Tier 1 failure deterministically.
	r := NewRenderer(st, NewCompiler("definitely-not-a-latex-binary"), zerolog.Nop())
	return r, st
}

func TestRenderFallsBackToSyntheticWhenCompilerMissing(t *testing.T) {
	r, st := newTestRenderer(t)
	id := uuid.New()

	res, err := r.Render(context.Background(), id, sampleSource, &types.Profile{}, false)
	require.NoError(t, err)

	assert.Equal(t, TierSynthetic, res.Tier)
	assert.Empty(t, res.PreviewPath)

	size, err := st.SizeOf(res.PDFPath)
	require.NoError(t, err)
	assert.Greater(t, size, int64(0), "synthetic artifact must exist with size > 0")
	assert.Equal(t, size, res.PDFSize)
}

func TestRenderFallsBackToPlaceholderWhenSyntheticFails(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.buildSynthetic = func(ExtractedFields, *types.Profile, uuid.UUID) ([]byte, error) {
		return nil, errors.New("drawing failed")
	}
	id := uuid.New()

	res, err := r.Render(context.Background(), id, sampleSource, &types.Profile{}, false)
	require.NoError(t, err)

	assert.Equal(t, TierPlaceholder, res.Tier)
	data, readErr := os.ReadFile(res.PDFPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "Your CV is being generated")
}

func TestRenderFailsWhenPlaceholderUnwritable(t *testing.T) {
	r, st := newTestRenderer(t)
	id := uuid.New()

	// Directories where the artifact files should go make every write
	// fail, exhausting all three tiers.
	dir, err := st.AllocateDir(id)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cv.tex"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "cv.pdf"), 0o755))

	_, err = r.Render(context.Background(), id, sampleSource, &types.Profile{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placeholder tier failed")
}

func TestRenderProducesPreviewForFreeTier(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.buildPreview = func(string) ([]byte, error) {
		return []byte("fake-jpeg"), nil
	}

	res, err := r.Render(context.Background(), uuid.New(), sampleSource, &types.Profile{}, true)
	require.NoError(t, err)
	require.NotEmpty(t, res.PreviewPath)

	data, err := os.ReadFile(res.PreviewPath)
	require.NoError(t, err)
	assert.Equal(t, "fake-jpeg", string(data))
}

func TestRenderPreviewFailureIsNonFatal(t *testing.T) {
	r, _ := newTestRenderer(t)
	r.buildPreview = func(string) ([]byte, error) {
		return nil, errors.New("rasterizer exploded")
	}

	res, err := r.Render(context.Background(), uuid.New(), sampleSource, &types.Profile{}, true)
	require.NoError(t, err, "preview failure must not fail the job")
	assert.Empty(t, res.PreviewPath)
	assert.NotEmpty(t, res.PDFPath)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "compiled", TierCompiled.String())
	assert.Equal(t, "synthetic", TierSynthetic.String())
	assert.Equal(t, "placeholder", TierPlaceholder.String())
}
