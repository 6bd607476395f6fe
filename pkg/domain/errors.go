package domain

// Stable machine-readable error codes returned by the API.
const (
	CodeAuthenticationFailed = "AUTHN_FAILED"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeRendererFailed       = "RENDERER_FAILED"
	CodeRendererTimeout      = "RENDERER_TIMEOUT"
	CodeInternal             = "INTERNAL"
)

// ErrorResponse defines the standard JSON error model returned by the API.
// It intentionally avoids exposing sensitive details (key material, internal
// filesystem paths, raw subprocess command lines) while providing a stable
// machine-readable code.
type ErrorResponse struct {
	Code      string `json:"code"`                 // Machine-readable error code (e.g., AUTHN_FAILED)
	Message   string `json:"message"`              // Human-readable message (safe for callers)
	Field     string `json:"field,omitempty"`      // Offending request field for validation errors
	RequestID string `json:"request_id,omitempty"` // Correlation ID for diagnostics
}
