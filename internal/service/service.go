// Package service is the submission facade: quota-checked job creation,
// enqueueing, status polling, and deletion. The HTTP layer that fronts it
// lives outside this module.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/morphcv/cvgen/internal/executor"
	"github.com/morphcv/cvgen/internal/queue"
	"github.com/morphcv/cvgen/internal/store"
	"github.com/morphcv/cvgen/internal/types"
)

var (
	ErrQuotaExceeded = errors.New("generation quota exceeded")
	ErrJobNotFound   = errors.New("job not found")
)

// QuotaService resolves whether a user may submit another job. Implemented
// by the billing system outside this module.
type QuotaService interface {
	CanSubmit(ctx context.Context, userID int64) (bool, error)
	ConsumeQuota(ctx context.Context, userID int64) error
}

// Store is the slice of the record store the facade needs.
type Store interface {
	CreateJob(ctx context.Context, userID int64, title, templateName string, tier types.UserTier, profileJSON, jobDescription string) (*types.Job, error)
	GetJobByUUID(ctx context.Context, jobUUID uuid.UUID, userID int64) (*types.Job, error)
	SetTaskID(ctx context.Context, id int64, taskID string) error
	ResetForEdit(ctx context.Context, id int64, instructions string) error
	DeleteJob(ctx context.Context, id int64) error
	ListUserJobs(ctx context.Context, userID int64, limit int) ([]types.Job, error)
}

// Dispatcher is the async execution boundary. Implemented by
// queue.Dispatcher.
type Dispatcher interface {
	Submit(jobID int64, mode executor.Mode) (uuid.UUID, error)
	StatusOf(handle uuid.UUID) queue.TaskStatus
}

// TokenIssuer mints download tokens for finished jobs. Implemented by
// tokens.Issuer.
type TokenIssuer interface {
	Issue(ctx context.Context, job *types.Job, userID int64, kind types.ArtifactKind, ttl time.Duration) (*types.DownloadToken, error)
}

// GenerateRequest carries the inputs of a new generation job.
type GenerateRequest struct {
	UserID         int64
	Title          string
	TemplateName   string
	Tier           types.UserTier
	Profile        *types.Profile
	JobDescription string
}

// CVService coordinates the record store, the quota service, and the
// dispatcher for the submission path.
type CVService struct {
	store      Store
	quota      QuotaService
	dispatcher Dispatcher
	files      *store.Store
	issuer     TokenIssuer
	tokenTTL   time.Duration
	log        zerolog.Logger
}

// New builds a CVService. issuer may be nil when the deployment exposes no
// download surface; tokenTTL is how long issued tokens stay redeemable.
func New(st Store, quota QuotaService, dispatcher Dispatcher, files *store.Store, issuer TokenIssuer, tokenTTL time.Duration, log zerolog.Logger) *CVService {
	return &CVService{
		store:      st,
		quota:      quota,
		dispatcher: dispatcher,
		files:      files,
		issuer:     issuer,
		tokenTTL:   tokenTTL,
		log:        log.With().Str("component", "service").Logger(),
	}
}

// SubmitGenerate creates a job record in Pending, enqueues it, and returns
// the record with its task handle. It never blocks on job execution.
func (s *CVService) SubmitGenerate(ctx context.Context, req GenerateRequest) (*types.Job, uuid.UUID, error) {
	if err := s.checkQuota(ctx, req.UserID); err != nil {
		return nil, uuid.Nil, err
	}

	profile := req.Profile
	if profile == nil {
		profile = &types.Profile{}
	}
	profileJSON, err := profile.Encode()
	if err != nil {
		return nil, uuid.Nil, err
	}

	title := req.Title
	if title == "" {
		title = "Untitled CV"
	}
	tier := req.Tier
	if tier == "" {
		tier = types.TierFree
	}

	job, err := s.store.CreateJob(ctx, req.UserID, title, req.TemplateName, tier, profileJSON, req.JobDescription)
	if err != nil {
		return nil, uuid.Nil, err
	}

	handle, err := s.enqueue(ctx, job.ID, executor.ModeGenerate)
	if err != nil {
		return nil, uuid.Nil, err
	}

	s.consumeQuota(ctx, req.UserID)
	s.log.Info().Str("job_uuid", job.UUID.String()).Str("task_id", handle.String()).Msg("generation job submitted")
	return job, handle, nil
}

// BatchResult pairs one batch item with its submission outcome.
type BatchResult struct {
	Job    *types.Job
	Handle uuid.UUID
	Err    error
}

// SubmitBatch submits each request independently and returns results in
// request order. One rejected item does not stop the rest.
func (s *CVService) SubmitBatch(ctx context.Context, reqs []GenerateRequest) []BatchResult {
	out := make([]BatchResult, len(reqs))
	for i, req := range reqs {
		job, handle, err := s.SubmitGenerate(ctx, req)
		out[i] = BatchResult{Job: job, Handle: handle, Err: err}
	}
	return out
}

// SubmitEdit starts a new processing cycle on an existing record with the
// given instructions. The record keeps its UUID; fields are overwritten by
// the run.
func (s *CVService) SubmitEdit(ctx context.Context, jobUUID uuid.UUID, userID int64, instructions string) (*types.Job, uuid.UUID, error) {
	job, err := s.store.GetJobByUUID(ctx, jobUUID, userID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if job == nil {
		return nil, uuid.Nil, ErrJobNotFound
	}
	if err := s.checkQuota(ctx, userID); err != nil {
		return nil, uuid.Nil, err
	}

	if err := s.store.ResetForEdit(ctx, job.ID, instructions); err != nil {
		return nil, uuid.Nil, err
	}

	handle, err := s.enqueue(ctx, job.ID, executor.ModeEdit)
	if err != nil {
		return nil, uuid.Nil, err
	}

	s.consumeQuota(ctx, userID)
	s.log.Info().Str("job_uuid", job.UUID.String()).Str("task_id", handle.String()).Msg("edit job submitted")
	return job, handle, nil
}

// Status returns the polling payload for a job. Once a job is accepted
// this always succeeds for its owner; it never surfaces internal errors as
// malformed payloads.
func (s *CVService) Status(ctx context.Context, jobUUID uuid.UUID, userID int64) (*types.StatusResponse, error) {
	job, err := s.store.GetJobByUUID(ctx, jobUUID, userID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	resp := &types.StatusResponse{
		JobUUID:      job.UUID,
		Status:       job.Status,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
		HasPDF:       job.PDFPath != "",
		HasPreview:   job.PreviewPath != "",
	}
	if job.Status.Terminal() {
		elapsed := job.ElapsedSecs
		resp.ElapsedSecs = &elapsed
	}
	if handle, err := uuid.Parse(job.TaskID); err == nil {
		resp.TaskStatus = s.dispatcher.StatusOf(handle).String()
	}
	return resp, nil
}

// Delete removes the job record and then its files. File cleanup is
// best-effort and cannot fail the call.
func (s *CVService) Delete(ctx context.Context, jobUUID uuid.UUID, userID int64) error {
	job, err := s.store.GetJobByUUID(ctx, jobUUID, userID)
	if err != nil {
		return err
	}
	if job == nil {
		return ErrJobNotFound
	}
	if err := s.store.DeleteJob(ctx, job.ID); err != nil {
		return err
	}
	if s.files != nil {
		s.files.DeleteAll(job.UUID)
	}
	s.log.Info().Str("job_uuid", job.UUID.String()).Msg("job deleted")
	return nil
}

// RequestDownload issues a token granting time-limited access to one
// artifact of the user's job.
func (s *CVService) RequestDownload(ctx context.Context, jobUUID uuid.UUID, userID int64, kind types.ArtifactKind) (*types.DownloadToken, error) {
	if s.issuer == nil {
		return nil, errors.New("downloads are not enabled")
	}
	job, err := s.store.GetJobByUUID(ctx, jobUUID, userID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return s.issuer.Issue(ctx, job, userID, kind, s.tokenTTL)
}

// List returns the user's jobs, newest first.
func (s *CVService) List(ctx context.Context, userID int64, limit int) ([]types.Job, error) {
	return s.store.ListUserJobs(ctx, userID, limit)
}

func (s *CVService) checkQuota(ctx context.Context, userID int64) error {
	if s.quota == nil {
		return nil
	}
	ok, err := s.quota.CanSubmit(ctx, userID)
	if err != nil {
		return fmt.Errorf("quota check failed: %w", err)
	}
	if !ok {
		return ErrQuotaExceeded
	}
	return nil
}

func (s *CVService) consumeQuota(ctx context.Context, userID int64) {
	if s.quota == nil {
		return
	}
	if err := s.quota.ConsumeQuota(ctx, userID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to consume quota")
	}
}

// enqueue submits to the dispatcher and stamps the handle on the record.
func (s *CVService) enqueue(ctx context.Context, jobID int64, mode executor.Mode) (uuid.UUID, error) {
	handle, err := s.dispatcher.Submit(jobID, mode)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue job: %w", err)
	}
	if err := s.store.SetTaskID(ctx, jobID, handle.String()); err != nil {
		s.log.Warn().Err(err).Int64("job_id", jobID).Msg("failed to stamp task id")
	}
	return handle, nil
}
