// Package executor runs one job end to end: content generation, the
// rendering fallback chain, and finalization of the job record. Whatever
// happens inside a run, the record always ends in a terminal status.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/morphcv/cvgen/internal/db"
	"github.com/morphcv/cvgen/internal/llm"
	"github.com/morphcv/cvgen/internal/metrics"
	"github.com/morphcv/cvgen/internal/render"
	"github.com/morphcv/cvgen/internal/types"
)

// Mode selects between a fresh generation and an edit of existing source.
type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeEdit     Mode = "edit"
)

// ErrNoPriorSource is returned for an edit request against a job that has
// never produced generated source.
var ErrNoPriorSource = errors.New("no generated source exists to edit")

// finalizeTimeout bounds the terminal status write. It runs on a fresh
// context so a canceled job context cannot leave the record in Processing.
const finalizeTimeout = 10 * time.Second

// JobStore is the slice of the record store the executor needs.
type JobStore interface {
	GetJob(ctx context.Context, id int64) (*types.Job, error)
	UpdateJobStatus(ctx context.Context, id int64, upd db.JobUpdate) error
}

// Generator produces LaTeX source. Implemented by llm.Generator.
type Generator interface {
	Generate(ctx context.Context, profile *types.Profile, jobDescription, templateName string) llm.Result
	Edit(ctx context.Context, priorSource, instructions string, profile *types.Profile) llm.Result
}

// Renderer produces the PDF artifact. Implemented by render.Renderer.
type Renderer interface {
	Render(ctx context.Context, jobUUID uuid.UUID, source string, profile *types.Profile, wantPreview bool) (*render.Result, error)
}

// Reporter receives best-effort progress updates. Losing one does not
// affect correctness.
type Reporter func(progress int, message string)

// Executor orchestrates one job run.
type Executor struct {
	jobs     JobStore
	gen      Generator
	renderer Renderer
	log      zerolog.Logger
}

// New builds an Executor.
func New(jobs JobStore, gen Generator, renderer Renderer, log zerolog.Logger) *Executor {
	return &Executor{
		jobs:     jobs,
		gen:      gen,
		renderer: renderer,
		log:      log.With().Str("component", "executor").Logger(),
	}
}

// Execute runs the job to a terminal state. The returned error, if any, is
// also recorded on the job record as its failure message; the dispatcher
// surfaces it through status lookups.
func (e *Executor) Execute(ctx context.Context, jobID int64, mode Mode, report Reporter) error {
	if report == nil {
		report = func(int, string) {}
	}
	start := time.Now()

	job, err := e.jobs.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %d: %w", jobID, err)
	}
	if job == nil {
		// Integrity error: nothing to mark Failed, so the failure lives
		// only on the dispatch side.
		return fmt.Errorf("job not found: %d", jobID)
	}

	log := e.log.With().Int64("job_id", job.ID).Str("job_uuid", job.UUID.String()).Str("mode", string(mode)).Logger()
	log.Info().Msg("job started")

	runErr := e.run(ctx, job, mode, start, report, log)
	elapsed := time.Since(start).Seconds()

	if runErr != nil {
		e.fail(job.ID, runErr, elapsed, log)
		metrics.JobFinished(string(types.StatusFailed), elapsed)
		return runErr
	}
	metrics.JobFinished(string(types.StatusSuccess), elapsed)
	log.Info().Float64("elapsed", elapsed).Msg("job succeeded")
	return nil
}

func (e *Executor) run(ctx context.Context, job *types.Job, mode Mode, start time.Time, report Reporter, log zerolog.Logger) error {
	profile, err := types.ParseProfile(job.ProfileJSON)
	if err != nil {
		// Malformed stored profile degrades generation, it does not fail
		// the job.
		log.Warn().Err(err).Msg("stored profile unreadable, generating from empty profile")
		profile = &types.Profile{}
	}

	report(20, "generating content")
	var genRes llm.Result
	switch mode {
	case ModeEdit:
		if job.LatexSource == "" {
			return ErrNoPriorSource
		}
		genRes = e.gen.Edit(ctx, job.LatexSource, job.JobDescription, profile)
	default:
		genRes = e.gen.Generate(ctx, profile, job.JobDescription, job.TemplateName)
	}
	if genRes.Degraded {
		metrics.GenerationDegraded()
		log.Warn().Str("warning", genRes.Warning).Msg("content generation degraded")
	}

	report(60, "compiling document")
	rendered, err := e.renderer.Render(ctx, job.UUID, genRes.Source, profile, job.UserTier.WantsPreview())
	if err != nil {
		return err
	}

	report(90, "finalizing")
	secs := time.Since(start).Seconds()
	upd := db.JobUpdate{
		Status:      types.StatusSuccess,
		LatexSource: &genRes.Source,
		PDFPath:     &rendered.PDFPath,
		PDFSize:     &rendered.PDFSize,
		ElapsedSecs: &secs,
	}
	if rendered.PreviewPath != "" {
		upd.PreviewPath = &rendered.PreviewPath
	}

	fctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()
	if err := e.jobs.UpdateJobStatus(fctx, job.ID, upd); err != nil {
		return fmt.Errorf("failed to finalize job: %w", err)
	}
	return nil
}

// fail records the terminal Failed status. It runs on a fresh context so
// the record cannot be stranded in Processing by a canceled job context.
func (e *Executor) fail(jobID int64, cause error, elapsed float64, log zerolog.Logger) {
	msg := cause.Error()
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	err := e.jobs.UpdateJobStatus(ctx, jobID, db.JobUpdate{
		Status:       types.StatusFailed,
		ErrorMessage: &msg,
		ElapsedSecs:  &elapsed,
	})
	if err != nil {
		log.Error().Err(err).Str("cause", msg).Msg("failed to record job failure")
		return
	}
	log.Warn().Str("cause", msg).Float64("elapsed", elapsed).Msg("job failed")
}
