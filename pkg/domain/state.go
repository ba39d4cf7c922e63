package domain

import "context"

// State is an immutable snapshot of a form.
type State struct {
	Values       Values            `json:"values"`
	Errors       map[string]string `json:"errors"`
	Touched      map[string]bool   `json:"touched"`
	IsValidating bool              `json:"is_validating"`
	IsSubmitting bool              `json:"is_submitting"`
}

// IsValid reports whether no field carries an error.
func (s State) IsValid() bool { return len(s.Errors) == 0 }

// HasErrors reports whether at least one field carries an error.
func (s State) HasErrors() bool { return len(s.Errors) > 0 }

// VisibleErrors returns only the errors of touched fields.
func (s State) VisibleErrors() map[string]string {
	out := make(map[string]string)
	for name, msg := range s.Errors {
		if s.Touched[name] {
			out[name] = msg
		}
	}
	return out
}

// FieldAccessor binds a single field to a UI input. It is computed on demand
// and never stored.
type FieldAccessor struct {
	Name     string
	Value    any
	Error    string // Empty unless the field is touched.
	HasError bool
	OnChange func(Event)
	OnBlur   func(context.Context, Event)
}
