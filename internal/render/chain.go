package render

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/morphcv/cvgen/internal/metrics"
	"github.com/morphcv/cvgen/internal/store"
	"github.com/morphcv/cvgen/internal/types"
)

// Tier identifies which stage of the fallback chain produced the artifact.
type Tier int

const (
	TierCompiled Tier = iota + 1
	TierSynthetic
	TierPlaceholder
)

func (t Tier) String() string {
	switch t {
	case TierCompiled:
		return "compiled"
	case TierSynthetic:
		return "synthetic"
	case TierPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Result describes the artifact the chain produced and which tier made it.
type Result struct {
	PDFPath     string
	PreviewPath string
	PDFSize     int64
	Tier        Tier
	CompileLog  string
}

// Renderer runs the fallback chain over the artifact store. The tier
// builders are replaceable so tests can force individual tiers to fail
// without touching the filesystem semantics.
type Renderer struct {
	store    *store.Store
	compiler *Compiler
	log      zerolog.Logger

	buildSynthetic func(ExtractedFields, *types.Profile, uuid.UUID) ([]byte, error)
	buildPreview   func(pdfPath string) ([]byte, error)
}

// NewRenderer builds a Renderer over the given store and compiler.
func NewRenderer(st *store.Store, compiler *Compiler, log zerolog.Logger) *Renderer {
	return &Renderer{
		store:          st,
		compiler:       compiler,
		log:            log.With().Str("component", "render").Logger(),
		buildSynthetic: BuildSyntheticPDF,
		buildPreview:   GeneratePreview,
	}
}

// Render turns LaTeX source into a PDF for the job, degrading through the
// tiers. It returns an error only when Tier 3 itself cannot write its
// artifact, which is the one job-fatal outcome of the chain. Preview
// failures are logged and leave PreviewPath empty.
func (r *Renderer) Render(ctx context.Context, jobUUID uuid.UUID, source string, profile *types.Profile, wantPreview bool) (*Result, error) {
	log := r.log.With().Str("job_uuid", jobUUID.String()).Logger()
	res := &Result{}

	dir, err := r.store.AllocateDir(jobUUID)
	if err != nil {
		return nil, err
	}

	// Tier 1: real compilation. Any failure falls through.
	texPath, err := r.store.WriteFile(jobUUID, "cv.tex", []byte(source))
	if err != nil {
		log.Warn().Err(err).Msg("cannot stage latex source, skipping compilation")
	} else {
		compiled := r.compiler.Compile(ctx, texPath, dir)
		res.CompileLog = compiled.Log
		if compiled.Status == CompileOK {
			res.PDFPath = compiled.PDFPath
			res.Tier = TierCompiled
		} else {
			log.Info().Str("status", compiled.Status.String()).Msg("compilation failed, falling back to synthetic renderer")
		}
	}

	// Tier 2: synthetic renderer from extracted fields.
	if res.PDFPath == "" {
		data, buildErr := r.buildSynthetic(ExtractFields(source), profile, jobUUID)
		if buildErr == nil {
			path, writeErr := r.store.WriteFile(jobUUID, "cv.pdf", data)
			if writeErr == nil {
				res.PDFPath = path
				res.Tier = TierSynthetic
			} else {
				buildErr = writeErr
			}
		}
		if buildErr != nil {
			log.Warn().Err(buildErr).Msg("synthetic renderer failed, falling back to placeholder")
		}
	}

	// Tier 3: placeholder. A failure here fails the job.
	if res.PDFPath == "" {
		path, err := r.store.WriteFile(jobUUID, "cv.pdf", PlaceholderPDF(jobUUID))
		if err != nil {
			return nil, fmt.Errorf("placeholder tier failed: %w", err)
		}
		res.PDFPath = path
		res.Tier = TierPlaceholder
	}

	metrics.RenderTier(res.Tier.String())

	size, err := r.store.SizeOf(res.PDFPath)
	if err != nil {
		return nil, err
	}
	res.PDFSize = size

	if wantPreview {
		data, err := r.buildPreview(res.PDFPath)
		if err == nil {
			if path, writeErr := r.store.WriteFile(jobUUID, "preview.jpg", data); writeErr == nil {
				res.PreviewPath = path
			} else {
				err = writeErr
			}
		}
		if err != nil {
			log.Warn().Err(err).Msg("preview generation failed, continuing without preview")
		}
	}

	log.Info().Str("tier", res.Tier.String()).Int64("size", res.PDFSize).Msg("artifact rendered")
	return res, nil
}
