package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Defaults for the renderer invocation.
const (
	// DefaultBinary is the renderer executable resolved via PATH.
	DefaultBinary = "chordpro"

	// DefaultTimeout is the hard wall-clock budget for one renderer run.
	DefaultTimeout = 30 * time.Second

	// versionProbeTimeout bounds the lightweight --version check used by the
	// health endpoint and the documentation page.
	versionProbeTimeout = 2 * time.Second

	// killGracePeriod is how long Wait allows the child to exit after its
	// context expires before escalating to SIGKILL.
	killGracePeriod = 5 * time.Second
)

// Config holds processor construction options. Zero fields fall back to
// defaults.
type Config struct {
	Binary  string
	TempDir string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Processor runs conversion sessions. Each session owns its own temporary
// files, so a single Processor serves concurrent requests without locking.
type Processor struct {
	binary  string
	tempDir string
	timeout time.Duration
	logger  *slog.Logger
}

// NewProcessor creates a Processor from the configuration.
func NewProcessor(cfg Config) *Processor {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Processor{
		binary:  cfg.Binary,
		tempDir: cfg.TempDir,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// Artifact references a rendered output file. The caller owns it: Cleanup
// must run after the artifact has been streamed, on every exit path.
type Artifact struct {
	Path        string
	ContentType string
	Size        int64

	logger *slog.Logger
}

// Cleanup removes the artifact file. Best effort: failures are logged, never
// escalated, so cleanup cannot mask the request's primary outcome.
func (a *Artifact) Cleanup() {
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		a.logger.Warn("failed to clean up output artifact", "error", err)
	}
}

// Process runs one conversion session: write the content to a unique temp
// file, invoke the renderer under the configured timeout, and return the
// output artifact. The input file is deleted on every exit path. Failures
// are classified as renderer failure, timeout, or local I/O failure, and
// renderer diagnostics are scrubbed of internal paths before they surface.
func (p *Processor) Process(ctx context.Context, content string, format Format, opts Options) (*Artifact, error) {
	flags, err := BuildArgs(format, opts)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	inputPath := filepath.Join(p.tempDir, "input_"+id+".cho")
	outputPath := filepath.Join(p.tempDir, "output_"+id+"."+format.Extension())

	if err := os.WriteFile(inputPath, []byte(content), 0o600); err != nil {
		return nil, &IOError{Op: "writing renderer input", Err: err}
	}
	defer func() {
		if err := os.Remove(inputPath); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("failed to clean up input file", "error", err)
		}
	}()

	args := append([]string{inputPath, "-o", outputPath}, flags...)

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.logger.Info("processing conversion",
		"format", string(format),
		"options", opts.String(),
		"content_bytes", len(content),
	)
	p.logger.Debug("renderer command", "binary", p.binary, "args", args)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, p.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = killGracePeriod

	runErr := cmd.Run()

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		p.removeStale(outputPath)
		p.logger.Error("renderer timed out", "timeout", p.timeout)
		return nil, fmt.Errorf("%w after %s", ErrRendererTimeout, p.timeout)

	case runCtx.Err() != nil:
		// Caller went away; the artifact has no consumer.
		p.removeStale(outputPath)
		return nil, runCtx.Err()

	case runErr != nil:
		p.removeStale(outputPath)
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		diagnostic := sanitizeDiagnostic(stderr.String(), inputPath, outputPath)
		p.logger.Error("renderer failed", "exit_code", exitCode, "diagnostic", diagnostic)
		return nil, &RendererError{ExitCode: exitCode, Diagnostic: diagnostic}
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		p.logger.Error("renderer exited cleanly but output file is missing")
		return nil, &RendererError{
			ExitCode:   0,
			Diagnostic: "renderer reported success but produced no output artifact",
		}
	}

	p.logger.Info("conversion completed", "format", string(format), "output_bytes", info.Size())

	return &Artifact{
		Path:        outputPath,
		ContentType: format.ContentType(),
		Size:        info.Size(),
		logger:      p.logger,
	}, nil
}

// Version probes the renderer with --version under a short timeout. Used by
// the health endpoint and the documentation page; an error means the
// renderer is unavailable, not that the service is broken.
func (p *Processor) Version(ctx context.Context) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	var stdout bytes.Buffer
	cmd := exec.CommandContext(probeCtx, p.binary, "--version")
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("probing renderer version: %w", err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Timeout returns the configured per-session time budget.
func (p *Processor) Timeout() time.Duration {
	return p.timeout
}

// removeStale deletes a partial output file left behind by a failed run.
func (p *Processor) removeStale(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("failed to clean up partial output file", "error", err)
	}
}

// sanitizeDiagnostic trims renderer stderr and redacts the session's temp
// paths so callers never see server-side filesystem layout.
func sanitizeDiagnostic(stderr, inputPath, outputPath string) string {
	diagnostic := strings.TrimSpace(stderr)
	if diagnostic == "" {
		return "unknown chordpro error"
	}
	diagnostic = strings.ReplaceAll(diagnostic, inputPath, "<input>")
	diagnostic = strings.ReplaceAll(diagnostic, outputPath, "<output>")
	return diagnostic
}
