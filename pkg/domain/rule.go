package domain

import (
	"context"
	"fmt"
)

// DefaultRuleFailure is the message used when a failing rule carries no text.
const DefaultRuleFailure = "Validation failed"

// Result is the outcome of a single rule: Ok, or a failure with a message.
type Result struct {
	failed  bool
	message string
}

// Ok reports a passing rule.
func Ok() Result { return Result{} }

// Fail reports a failing rule. An empty message is replaced by DefaultRuleFailure.
func Fail(message string) Result {
	if message == "" {
		message = DefaultRuleFailure
	}
	return Result{failed: true, message: message}
}

// Failf is Fail with fmt.Sprintf formatting.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Sprintf(format, args...))
}

// FromError converts an error into a Result. A nil error is Ok.
func FromError(err error) Result {
	if err == nil {
		return Ok()
	}
	return Fail(err.Error())
}

// IsOk reports whether the rule passed.
func (r Result) IsOk() bool { return !r.failed }

// Message returns the failure message, or "" for Ok.
func (r Result) Message() string { return r.message }

func (r Result) String() string {
	if r.IsOk() {
		return "ok"
	}
	return "fail: " + r.message
}

// Rule checks one field's value. Implementations may block (e.g. a remote
// uniqueness lookup) and must honour ctx cancellation when they do.
type Rule interface {
	Check(ctx context.Context, value any, all Values) Result
}

// RuleFunc adapts an ordinary function to the Rule interface.
type RuleFunc func(ctx context.Context, value any, all Values) Result

// Check implements Rule.
func (f RuleFunc) Check(ctx context.Context, value any, all Values) Result {
	return f(ctx, value, all)
}
