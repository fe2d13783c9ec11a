package render

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morphcv/cvgen/internal/types"
)

func TestBuildSyntheticPDF(t *testing.T) {
	fields := ExtractFields(sampleSource)
	data, err := BuildSyntheticPDF(fields, &types.Profile{}, uuid.New())
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestBuildSyntheticPDFFromProfileOnly(t *testing.T) {
	// No usable sections in the source: content comes from the profile.
	profile := &types.Profile{
		Name:       "A",
		Email:      "a@x.com",
		Experience: "Shipped the thing.",
		Skills:     []string{"x", "y"},
	}
	data, err := BuildSyntheticPDF(ExtractFields("garbage input"), profile, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestBuildSyntheticPDFEmptyEverything(t *testing.T) {
	data, err := BuildSyntheticPDF(ExtractFields(""), nil, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestShortID(t *testing.T) {
	id := uuid.MustParse("12345678-0000-0000-0000-000000000000")
	assert.Equal(t, "12345678", shortID(id))
}
