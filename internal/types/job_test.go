package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestUserTierWantsPreview(t *testing.T) {
	assert.True(t, TierFree.WantsPreview())
	assert.False(t, TierPro.WantsPreview())
	assert.False(t, TierEnterprise.WantsPreview())
}

func TestArtifactKind(t *testing.T) {
	assert.Equal(t, "application/pdf", ArtifactPDF.MIMEType())
	assert.Equal(t, "image/jpeg", ArtifactPreview.MIMEType())
	assert.True(t, ArtifactPDF.Valid())
	assert.True(t, ArtifactPreview.Valid())
	assert.False(t, ArtifactKind("gif").Valid())
}
