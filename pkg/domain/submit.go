package domain

import "context"

// Helpers is handed to a submit handler so it can attach errors discovered
// during submission (e.g. "email already exists") to a specific field.
type Helpers struct {
	SetFieldError func(name, message string)
}

// SubmitFunc receives the validated values. A returned error is logged and
// reported to the OnSubmit hook; it does not reach the caller of Submit.
type SubmitFunc func(ctx context.Context, values Values, helpers Helpers) error

// SubmitOutcome classifies how a submission attempt ended.
type SubmitOutcome string

const (
	SubmitBlocked   SubmitOutcome = "blocked"   // Validation failed, handler not called
	SubmitSucceeded SubmitOutcome = "submitted" // Handler returned nil
	SubmitFailed    SubmitOutcome = "failed"    // Handler returned an error or panicked
)

// SubmitResult is returned to Go callers of Submit. It deliberately omits the
// handler's error.
type SubmitResult struct {
	Outcome SubmitOutcome     `json:"outcome"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Submitted reports whether the handler was invoked.
func (r SubmitResult) Submitted() bool { return r.Outcome != SubmitBlocked }
