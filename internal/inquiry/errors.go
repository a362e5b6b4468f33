package inquiry

import "fmt"

// SchemaError reports an upstream ParsedEvent that fails basic shape checks.
// The whole event is rejected rather than guessed at; callers are expected
// to record the failure and continue with the next email.
type SchemaError struct {
	EmailID string
	Err     error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.EmailID == "" {
		return fmt.Sprintf("inquiry: event failed schema check: %v", e.Err)
	}
	return fmt.Sprintf("inquiry: event %s failed schema check: %v", e.EmailID, e.Err)
}

// Unwrap exposes the underlying validation error.
func (e *SchemaError) Unwrap() error {
	return e.Err
}
