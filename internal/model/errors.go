package model

import "fmt"

// Error codes surfaced to clients and written into error artifacts.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeSecurity     = "SECURITY_ERROR"
	CodeProcessing   = "PROCESSING_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
	CodeNetwork      = "NETWORK_ERROR"
	CodeTimeout      = "TIMEOUT"
	CodeUnknown      = "UNKNOWN_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeFeatureOff   = "FEATURE_DISABLED"
)

// ValidationError rejects a malformed request before any persistence.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// SecurityError rejects a malformed or path-traversing identifier before
// any filesystem access.
type SecurityError struct {
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security: %s", e.Reason)
}

// CanRetry reports whether a client-facing error code is worth retrying.
// Validation failures require input correction instead.
func CanRetry(code string) bool {
	switch code {
	case CodeNetwork, CodeRateLimited, CodeTimeout, CodeUnknown, CodeProcessing:
		return true
	}
	return false
}
