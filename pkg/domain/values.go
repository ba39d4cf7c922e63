package domain

import "context"

// Values holds the current value of every field, keyed by field name.
type Values map[string]any

// Get returns the value of a field, or the empty string if the field is absent.
func (v Values) Get(name string) any {
	if val, ok := v[name]; ok {
		return val
	}
	return ""
}

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// InputCheckbox is the Event.Type whose value is carried by Event.Checked.
const InputCheckbox = "checkbox"

// Event is the subset of a UI input event the engine reads.
type Event struct {
	Name    string `json:"name"`
	Value   any    `json:"value,omitempty"`
	Type    string `json:"type,omitempty"`
	Checked bool   `json:"checked,omitempty"`

	// PreventDefault, when set, is invoked by submit handlers before validation.
	PreventDefault func() `json:"-"`
}

// FieldValue extracts the value carried by the event.
func (e Event) FieldValue() any {
	if e.Type == InputCheckbox {
		return e.Checked
	}
	return e.Value
}

// EventHandler is returned by Form.HandleSubmit and bound to a UI submit action.
type EventHandler func(ctx context.Context, ev Event) (SubmitResult, error)
