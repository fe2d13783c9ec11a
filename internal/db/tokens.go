package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/morphcv/cvgen/internal/types"
)

// InsertToken creates a download token row and returns it.
func (db *DB) InsertToken(ctx context.Context, jobID, userID int64, kind types.ArtifactKind, expiresAt time.Time) (*types.DownloadToken, error) {
	var t types.DownloadToken
	err := db.pool.QueryRow(ctx,
		`INSERT INTO download_tokens (job_id, user_id, file_type, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, token, job_id, user_id, file_type, expires_at, used, created_at`,
		jobID, userID, kind, expiresAt,
	).Scan(&t.ID, &t.Token, &t.JobID, &t.UserID, &t.Kind, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert download token: %w", err)
	}
	return &t, nil
}

// GetToken retrieves a download token by its opaque value. Returns nil when
// not found.
func (db *DB) GetToken(ctx context.Context, token uuid.UUID) (*types.DownloadToken, error) {
	var t types.DownloadToken
	err := db.pool.QueryRow(ctx,
		`SELECT id, token, job_id, user_id, file_type, expires_at, used, created_at
		 FROM download_tokens WHERE token = $1`,
		token,
	).Scan(&t.ID, &t.Token, &t.JobID, &t.UserID, &t.Kind, &t.ExpiresAt, &t.Used, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get download token: %w", err)
	}
	return &t, nil
}

// MarkTokenUsed sets the used flag on a token.
func (db *DB) MarkTokenUsed(ctx context.Context, token uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE download_tokens SET used = TRUE WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to mark token used: %w", err)
	}
	return nil
}

// DeleteExpiredTokens removes tokens whose expiry has passed and returns the
// number deleted.
func (db *DB) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM download_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
