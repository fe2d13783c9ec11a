// Package tokens issues and redeems short-lived download tokens tied to a
// job's generated artifacts.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/morphcv/cvgen/internal/metrics"
	"github.com/morphcv/cvgen/internal/types"
)

var (
	ErrTokenNotFound   = errors.New("download token not found")
	ErrTokenExpired    = errors.New("download token has expired")
	ErrTokenUsed       = errors.New("download token has already been used")
	ErrArtifactMissing = errors.New("requested artifact does not exist for this job")
	ErrJobNotReady     = errors.New("job has not produced a downloadable artifact")
)

// Store is the slice of the record store the issuer needs.
type Store interface {
	InsertToken(ctx context.Context, jobID, userID int64, kind types.ArtifactKind, expiresAt time.Time) (*types.DownloadToken, error)
	GetToken(ctx context.Context, token uuid.UUID) (*types.DownloadToken, error)
	MarkTokenUsed(ctx context.Context, token uuid.UUID) error
	DeleteExpiredTokens(ctx context.Context) (int64, error)
	GetJob(ctx context.Context, id int64) (*types.Job, error)
	MarkDownloaded(ctx context.Context, id int64) error
}

// Artifact is what a successful redemption grants access to.
type Artifact struct {
	Path     string
	MIMEType string
	JobUUID  uuid.UUID
}

// Issuer creates and redeems download tokens. The clock is injectable for
// expiry tests.
type Issuer struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

// New builds an Issuer.
func New(store Store, log zerolog.Logger) *Issuer {
	return &Issuer{
		store: store,
		log:   log.With().Str("component", "tokens").Logger(),
		now:   time.Now,
	}
}

// Issue creates a token granting access to one artifact of a successful
// job for ttl from now. Each call yields a distinct token.
func (i *Issuer) Issue(ctx context.Context, job *types.Job, userID int64, kind types.ArtifactKind, ttl time.Duration) (*types.DownloadToken, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
	if job.Status != types.StatusSuccess {
		return nil, ErrJobNotReady
	}
	if artifactPath(job, kind) == "" {
		return nil, ErrArtifactMissing
	}

	token, err := i.store.InsertToken(ctx, job.ID, userID, kind, i.now().Add(ttl))
	if err != nil {
		return nil, err
	}
	metrics.TokenIssued()
	i.log.Debug().Str("job_uuid", job.UUID.String()).Str("kind", string(kind)).Msg("download token issued")
	return token, nil
}

// Redeem validates a token and returns the artifact it grants. It bumps
// the job's last-downloaded timestamp but does not consume the token;
// callers that want one-time use call MarkUsed afterwards.
func (i *Issuer) Redeem(ctx context.Context, token uuid.UUID) (*Artifact, error) {
	rec, err := i.store.GetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrTokenNotFound
	}
	if rec.Used {
		return nil, ErrTokenUsed
	}
	if !i.now().Before(rec.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	job, err := i.store.GetJob(ctx, rec.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrTokenNotFound
	}
	path := artifactPath(job, rec.Kind)
	if path == "" {
		return nil, ErrArtifactMissing
	}

	if err := i.store.MarkDownloaded(ctx, job.ID); err != nil {
		// Download accounting must not block the download itself.
		i.log.Warn().Err(err).Int64("job_id", job.ID).Msg("failed to record download timestamp")
	}

	return &Artifact{Path: path, MIMEType: rec.Kind.MIMEType(), JobUUID: job.UUID}, nil
}

// MarkUsed consumes a token so it cannot be redeemed again.
func (i *Issuer) MarkUsed(ctx context.Context, token uuid.UUID) error {
	return i.store.MarkTokenUsed(ctx, token)
}

// PurgeExpired deletes tokens past their expiry. Maintenance only; expired
// tokens are already unredeemable.
func (i *Issuer) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := i.store.DeleteExpiredTokens(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		i.log.Info().Int64("purged", n).Msg("expired download tokens removed")
	}
	return n, nil
}

func artifactPath(job *types.Job, kind types.ArtifactKind) string {
	if kind == types.ArtifactPreview {
		return job.PreviewPath
	}
	return job.PDFPath
}
