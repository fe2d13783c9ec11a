// Package types defines the core data model shared across the generation
// pipeline: job records, profiles, artifact kinds, and the polling response
// shape exposed to callers.
package types

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus enumerates the lifecycle states of a generation job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusSuccess    JobStatus = "success"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// UserTier enumerates subscription tiers. Free-tier jobs get a JPG preview
// alongside the PDF; paid tiers receive the PDF only.
type UserTier string

const (
	TierFree       UserTier = "free"
	TierPro        UserTier = "pro"
	TierEnterprise UserTier = "enterprise"
)

// WantsPreview reports whether jobs for this tier produce a preview image.
func (t UserTier) WantsPreview() bool {
	return t == TierFree
}

// Job is the durable record of one generation or edit request. It is the
// single source of truth for status; every mutation is a single atomic
// record update.
type Job struct {
	ID     int64     `json:"id"`
	UUID   uuid.UUID `json:"uuid"`
	UserID int64     `json:"user_id"`

	Title        string   `json:"title"`
	TemplateName string   `json:"template_name"`
	UserTier     UserTier `json:"user_tier"`

	// Immutable inputs once processing starts, except during an edit cycle.
	ProfileJSON    string `json:"profile_json"`
	JobDescription string `json:"job_description"`

	// Mutable processing fields.
	Status       JobStatus `json:"status"`
	Mode         string    `json:"mode"`
	TaskID       string    `json:"task_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	LatexSource  string    `json:"latex_source,omitempty"`
	PDFPath      string    `json:"pdf_path,omitempty"`
	PreviewPath  string    `json:"preview_path,omitempty"`
	PDFSize      int64     `json:"pdf_size,omitempty"`
	ElapsedSecs  float64   `json:"elapsed_seconds,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastDownloaded *time.Time `json:"last_downloaded,omitempty"`
}

// ArtifactKind identifies which generated file a caller wants.
type ArtifactKind string

const (
	ArtifactPDF     ArtifactKind = "pdf"
	ArtifactPreview ArtifactKind = "jpg"
)

// MIMEType returns the content type served for this artifact kind.
func (k ArtifactKind) MIMEType() string {
	if k == ArtifactPreview {
		return "image/jpeg"
	}
	return "application/pdf"
}

// Valid reports whether the kind is one of the known artifact kinds.
func (k ArtifactKind) Valid() bool {
	return k == ArtifactPDF || k == ArtifactPreview
}

// DownloadToken grants time-limited access to one artifact of one job.
type DownloadToken struct {
	ID        int64        `json:"id"`
	Token     uuid.UUID    `json:"token"`
	JobID     int64        `json:"job_id"`
	UserID    int64        `json:"user_id"`
	Kind      ArtifactKind `json:"file_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	Used      bool         `json:"used"`
	CreatedAt time.Time    `json:"created_at"`
}

// Valid reports whether the token may still be redeemed at the given time.
func (t *DownloadToken) Valid(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}

// StatusResponse is the caller-facing polling payload for a job. It is
// format-agnostic; the HTTP layer (external to this module) decides how it
// goes on the wire.
type StatusResponse struct {
	JobUUID      uuid.UUID `json:"job_uuid"`
	Status       JobStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ElapsedSecs  *float64  `json:"elapsed_seconds,omitempty"`
	TaskStatus   string    `json:"task_status,omitempty"`
	HasPDF       bool      `json:"has_pdf"`
	HasPreview   bool      `json:"has_preview"`
}
