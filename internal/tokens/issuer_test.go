package tokens

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morphcv/cvgen/internal/types"
)

type fakeStore struct {
	tokens     map[uuid.UUID]*types.DownloadToken
	jobs       map[int64]*types.Job
	nextID     int64
	downloaded []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tokens: make(map[uuid.UUID]*types.DownloadToken),
		jobs:   make(map[int64]*types.Job),
	}
}

func (f *fakeStore) InsertToken(_ context.Context, jobID, userID int64, kind types.ArtifactKind, expiresAt time.Time) (*types.DownloadToken, error) {
	f.nextID++
	t := &types.DownloadToken{
		ID: f.nextID, Token: uuid.New(), JobID: jobID, UserID: userID,
		Kind: kind, ExpiresAt: expiresAt, CreatedAt: time.Now(),
	}
	f.tokens[t.Token] = t
	return t, nil
}

func (f *fakeStore) GetToken(_ context.Context, token uuid.UUID) (*types.DownloadToken, error) {
	return f.tokens[token], nil
}

func (f *fakeStore) MarkTokenUsed(_ context.Context, token uuid.UUID) error {
	if t, ok := f.tokens[token]; ok {
		t.Used = true
	}
	return nil
}

func (f *fakeStore) DeleteExpiredTokens(_ context.Context) (int64, error) {
	var n int64
	for k, t := range f.tokens {
		if time.Now().After(t.ExpiresAt) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) GetJob(_ context.Context, id int64) (*types.Job, error) {
	return f.jobs[id], nil
}

func (f *fakeStore) MarkDownloaded(_ context.Context, id int64) error {
	f.downloaded = append(f.downloaded, id)
	return nil
}

func successfulJob(id int64) *types.Job {
	return &types.Job{
		ID: id, UUID: uuid.New(), UserID: 1,
		Status:      types.StatusSuccess,
		PDFPath:     "/data/cv_x/cv.pdf",
		PreviewPath: "/data/cv_x/preview.jpg",
	}
}

func newTestIssuer(store *fakeStore) *Issuer {
	return New(store, zerolog.Nop())
}

func TestIssueAndRedeem(t *testing.T) {
	store := newFakeStore()
	job := successfulJob(1)
	store.jobs[1] = job
	issuer := newTestIssuer(store)
	ctx := context.Background()

	token, err := issuer.Issue(ctx, job, 1, types.ArtifactPDF, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, token.Valid(time.Now()))

	art, err := issuer.Redeem(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, "/data/cv_x/cv.pdf", art.Path)
	assert.Equal(t, "application/pdf", art.MIMEType)
	assert.Equal(t, job.UUID, art.JobUUID)
	assert.Equal(t, []int64{1}, store.downloaded)

	// Redeem does not consume the token by itself.
	_, err = issuer.Redeem(ctx, token.Token)
	require.NoError(t, err)
}

func TestIssueYieldsDistinctTokens(t *testing.T) {
	store := newFakeStore()
	job := successfulJob(1)
	store.jobs[1] = job
	issuer := newTestIssuer(store)
	ctx := context.Background()

	t1, err := issuer.Issue(ctx, job, 1, types.ArtifactPDF, time.Minute)
	require.NoError(t, err)
	t2, err := issuer.Issue(ctx, job, 1, types.ArtifactPDF, time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, t1.Token, t2.Token)
}

func TestIssuePreviewToken(t *testing.T) {
	store := newFakeStore()
	job := successfulJob(1)
	store.jobs[1] = job
	issuer := newTestIssuer(store)

	token, err := issuer.Issue(context.Background(), job, 1, types.ArtifactPreview, time.Minute)
	require.NoError(t, err)

	art, err := issuer.Redeem(context.Background(), token.Token)
	require.NoError(t, err)
	assert.Equal(t, "/data/cv_x/preview.jpg", art.Path)
	assert.Equal(t, "image/jpeg", art.MIMEType)
}

func TestIssueRejections(t *testing.T) {
	store := newFakeStore()
	issuer := newTestIssuer(store)
	ctx := context.Background()

	pending := successfulJob(1)
	pending.Status = types.StatusProcessing
	_, err := issuer.Issue(ctx, pending, 1, types.ArtifactPDF, time.Minute)
	assert.ErrorIs(t, err, ErrJobNotReady)

	noPreview := successfulJob(2)
	noPreview.PreviewPath = ""
	_, err = issuer.Issue(ctx, noPreview, 1, types.ArtifactPreview, time.Minute)
	assert.ErrorIs(t, err, ErrArtifactMissing)

	_, err = issuer.Issue(ctx, successfulJob(3), 1, types.ArtifactKind("gif"), time.Minute)
	assert.Error(t, err)
}

func TestRedeemExpiredToken(t *testing.T) {
	store := newFakeStore()
	job := successfulJob(1)
	store.jobs[1] = job
	issuer := newTestIssuer(store)
	ctx := context.Background()

	token, err := issuer.Issue(ctx, job, 1, types.ArtifactPDF, time.Minute)
	require.NoError(t, err)

	// Move the clock past expiry.
	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err = issuer.Redeem(ctx, token.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRedeemUsedToken(t *testing.T) {
	store := newFakeStore()
	job := successfulJob(1)
	store.jobs[1] = job
	issuer := newTestIssuer(store)
	ctx := context.Background()

	token, err := issuer.Issue(ctx, job, 1, types.ArtifactPDF, time.Minute)
	require.NoError(t, err)
	require.NoError(t, issuer.MarkUsed(ctx, token.Token))

	_, err = issuer.Redeem(ctx, token.Token)
	assert.ErrorIs(t, err, ErrTokenUsed)
}

func TestRedeemUnknownToken(t *testing.T) {
	issuer := newTestIssuer(newFakeStore())
	_, err := issuer.Redeem(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestPurgeExpired(t *testing.T) {
	store := newFakeStore()
	job := successfulJob(1)
	store.jobs[1] = job
	issuer := newTestIssuer(store)
	ctx := context.Background()

	_, err := issuer.Issue(ctx, job, 1, types.ArtifactPDF, -time.Minute)
	require.NoError(t, err)
	_, err = issuer.Issue(ctx, job, 1, types.ArtifactPDF, time.Hour)
	require.NoError(t, err)

	purged, err := issuer.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestTokenValidityInvariant(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		token types.DownloadToken
		valid bool
	}{
		{"fresh", types.DownloadToken{ExpiresAt: now.Add(time.Minute)}, true},
		{"expired", types.DownloadToken{ExpiresAt: now.Add(-time.Minute)}, false},
		{"used", types.DownloadToken{ExpiresAt: now.Add(time.Minute), Used: true}, false},
		{"used and expired", types.DownloadToken{ExpiresAt: now.Add(-time.Minute), Used: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.token.Valid(now))
		})
	}
}
