package converter

import (
	"errors"
	"fmt"
)

// Sentinel errors for conversion failures.
var (
	// ErrUnsupportedFormat indicates an output format outside the supported set.
	ErrUnsupportedFormat = errors.New("unsupported output format")

	// ErrValidation indicates a request option that fails its declared type.
	ErrValidation = errors.New("invalid option")

	// ErrRendererFailed indicates the renderer exited non-zero or produced no
	// output artifact despite a clean exit.
	ErrRendererFailed = errors.New("renderer failed")

	// ErrRendererTimeout indicates the renderer exceeded its time budget.
	ErrRendererTimeout = errors.New("renderer timed out")

	// ErrArtifactIO indicates a local temp-file read or write failure.
	ErrArtifactIO = errors.New("artifact I/O failure")
)

// ValidationError reports a request option that fails its declared type.
// Field names the offending option and is safe to expose to callers.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("'%s' option %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RendererError reports a failed renderer invocation. Diagnostic holds
// sanitized stderr text: internal filesystem paths have already been
// redacted, so the message is safe to surface.
type RendererError struct {
	ExitCode   int
	Diagnostic string
}

func (e *RendererError) Error() string {
	return fmt.Sprintf("chordpro processing failed: %s", e.Diagnostic)
}

func (e *RendererError) Is(target error) bool {
	return target == ErrRendererFailed
}

// IOError reports a temp-file operation failure local to this host.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Is(target error) bool {
	return target == ErrArtifactIO
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsValidation checks if the error is a request validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsRendererFailure checks if the error came from the renderer itself.
func IsRendererFailure(err error) bool {
	return errors.Is(err, ErrRendererFailed)
}

// IsTimeout checks if the error is a renderer timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrRendererTimeout)
}
