// Package render turns LaTeX source into a PDF artifact through a
// three-tier fallback chain: pdflatex compilation, a synthetic renderer
// drawn from extracted fields, and a last-resort placeholder. Tiers are
// ordered by fidelity; each has strictly weaker preconditions than the one
// before it.
package render

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultProbeTimeout bounds the check that the compiler binary exists
	// and runs.
	DefaultProbeTimeout = 10 * time.Second
	// DefaultCompileTimeout bounds one compilation attempt.
	DefaultCompileTimeout = 30 * time.Second
)

// CompileStatus tags the outcome of a Tier 1 compilation attempt. The chain
// switches on it; no outcome is an error in the Go sense.
type CompileStatus int

const (
	CompileOK CompileStatus = iota
	CompileBinaryMissing
	CompileTimedOut
	CompileExitError
	CompileNoOutput
)

func (s CompileStatus) String() string {
	switch s {
	case CompileOK:
		return "ok"
	case CompileBinaryMissing:
		return "binary_missing"
	case CompileTimedOut:
		return "timeout"
	case CompileExitError:
		return "exit_error"
	case CompileNoOutput:
		return "no_output"
	default:
		return "unknown"
	}
}

// CompileResult is the tagged outcome of one compilation attempt.
type CompileResult struct {
	Status  CompileStatus
	PDFPath string
	Log     string
}

// Compiler invokes pdflatex as a bounded subprocess. The binary name is
// configurable so tests can point it at a nonexistent command.
type Compiler struct {
	Binary         string
	ProbeTimeout   time.Duration
	CompileTimeout time.Duration
}

// NewCompiler builds a Compiler with default timeouts.
func NewCompiler(binary string) *Compiler {
	if binary == "" {
		binary = "pdflatex"
	}
	return &Compiler{
		Binary:         binary,
		ProbeTimeout:   DefaultProbeTimeout,
		CompileTimeout: DefaultCompileTimeout,
	}
}

// Probe reports whether the compiler binary exists and responds. A binary
// that hangs on --version counts as missing.
func (c *Compiler) Probe(ctx context.Context) bool {
	if _, err := exec.LookPath(c.Binary); err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, c.ProbeTimeout)
	defer cancel()
	return exec.CommandContext(ctx, c.Binary, "--version").Run() == nil
}

// Compile runs one pdflatex pass over texPath with output into workDir and
// returns a tagged result. Success requires exit code 0 and the output PDF
// existing on disk. Auxiliary files are cleaned up on every path.
func (c *Compiler) Compile(ctx context.Context, texPath, workDir string) CompileResult {
	if !c.Probe(ctx) {
		return CompileResult{Status: CompileBinaryMissing}
	}

	ctx, cancel := context.WithTimeout(ctx, c.CompileTimeout)
	defer cancel()

	// -interaction=nonstopmode prevents interactive prompts;
	// -no-shell-escape blocks \write18 even if validation missed it.
	cmd := exec.CommandContext(ctx, c.Binary,
		"-interaction=nonstopmode", "-no-shell-escape",
		"-output-directory", workDir, texPath)

	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()
	baseName := strings.TrimSuffix(filepath.Base(texPath), ".tex")
	defer cleanupAuxFiles(workDir, baseName)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return CompileResult{Status: CompileTimedOut, Log: output.String()}
	}
	if runErr != nil {
		return CompileResult{Status: CompileExitError, Log: output.String()}
	}

	pdfPath := filepath.Join(workDir, baseName+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return CompileResult{Status: CompileNoOutput, Log: output.String()}
	}
	return CompileResult{Status: CompileOK, PDFPath: pdfPath, Log: output.String()}
}

// cleanupAuxFiles removes the auxiliary files pdflatex leaves next to its
// output. Missing files are fine.
func cleanupAuxFiles(workDir, baseName string) {
	for _, ext := range []string{".aux", ".log", ".out", ".toc", ".lof", ".lot"} {
		_ = os.Remove(filepath.Join(workDir, baseName+ext))
	}
}
