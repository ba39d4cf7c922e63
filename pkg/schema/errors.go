package schema

import (
	"fmt"
	"strings"
)

// DefinitionError reports a problem with a single rule entry of a definition.
type DefinitionError struct {
	Field string // Field name
	Index int    // Position in the rule chain, -1 when not rule-specific
	Type  string // Rule type, if known
	Err   error
}

func (e *DefinitionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("field %q rule %d (%s): %v", e.Field, e.Index, e.Type, e.Err)
}

func (e *DefinitionError) Unwrap() error { return e.Err }

// AggregateError groups multiple definition problems.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d definition errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// DefinitionErrors returns all errors if err is an AggregateError.
// Otherwise returns nil.
func DefinitionErrors(err error) []error {
	if aggr, ok := err.(*AggregateError); ok {
		return aggr.Errors
	}
	return nil
}
