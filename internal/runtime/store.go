package runtime

import (
	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/schema"
)

// FieldStore holds the values, errors and touched flags of one form.
// It performs no I/O and no locking; Engine serialises access.
type FieldStore struct {
	schema  schema.Schema
	initial domain.Values
	values  domain.Values
	errors  map[string]string
	touched map[string]bool
}

// NewFieldStore creates a store seeded with a copy of initial.
func NewFieldStore(initial domain.Values, s schema.Schema) *FieldStore {
	st := &FieldStore{schema: s, initial: initial.Clone()}
	st.ResetAll(nil)
	return st
}

// Value returns a field's value, "" if absent.
func (s *FieldStore) Value(name string) any {
	return s.values.Get(name)
}

// SetValue updates a value and clears any error on the field right away,
// before revalidation has had a chance to run.
func (s *FieldStore) SetValue(name string, value any) {
	s.values[name] = value
	delete(s.errors, name)
}

// SetError records a field error; an empty message clears it. Fields outside
// the schema never carry errors, and SetError reports false for them.
func (s *FieldStore) SetError(name, message string) bool {
	if !s.schema.Has(name) {
		return false
	}
	if message == "" {
		delete(s.errors, name)
		return true
	}
	s.errors[name] = message
	return true
}

// SetTouched sets a field's touched flag.
func (s *FieldStore) SetTouched(name string, touched bool) {
	if touched {
		s.touched[name] = true
		return
	}
	delete(s.touched, name)
}

// TouchAll marks every schema field as touched.
func (s *FieldStore) TouchAll() {
	for name := range s.schema {
		s.touched[name] = true
	}
}

// ResetAll replaces the values with newValues (nil restores the initial
// values) and clears errors and touched flags.
func (s *FieldStore) ResetAll(newValues domain.Values) {
	if newValues == nil {
		newValues = s.initial
	}
	s.values = newValues.Clone()
	s.errors = make(map[string]string)
	s.touched = make(map[string]bool)
}

// Reinitialize swaps the initial values and resets to them.
func (s *FieldStore) Reinitialize(initial domain.Values) {
	s.initial = initial.Clone()
	s.ResetAll(nil)
}

// Initial returns a copy of the initial values.
func (s *FieldStore) Initial() domain.Values {
	return s.initial.Clone()
}

// Values returns a copy of the current values.
func (s *FieldStore) Values() domain.Values {
	return s.values.Clone()
}

// Errors returns a copy of the current errors.
func (s *FieldStore) Errors() map[string]string {
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// Touched returns a copy of the touched flags.
func (s *FieldStore) Touched() map[string]bool {
	out := make(map[string]bool, len(s.touched))
	for k, v := range s.touched {
		out[k] = v
	}
	return out
}

// IsTouched reports a single field's touched flag.
func (s *FieldStore) IsTouched(name string) bool {
	return s.touched[name]
}

// Error returns a single field's error, "" if none.
func (s *FieldStore) Error(name string) string {
	return s.errors[name]
}

// ErrorCount returns the number of fields with an error.
func (s *FieldStore) ErrorCount() int {
	return len(s.errors)
}
