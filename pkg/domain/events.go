package domain

import (
	"context"
	"time"
)

// ValidationTrigger names what started a validation.
type ValidationTrigger string

const (
	TriggerChange ValidationTrigger = "change"
	TriggerBlur   ValidationTrigger = "blur"
	TriggerForm   ValidationTrigger = "form"
)

// ValidationEvent describes one completed field validation.
type ValidationEvent struct {
	Form     string            `json:"form,omitempty"`
	Field    string            `json:"field"`
	Trigger  ValidationTrigger `json:"trigger"`
	Error    string            `json:"error,omitempty"`
	Stale    bool              `json:"stale,omitempty"` // Superseded; result was dropped
	Duration time.Duration     `json:"duration"`
}

// SubmitEvent describes one submission attempt.
type SubmitEvent struct {
	Form     string        `json:"form,omitempty"`
	Outcome  SubmitOutcome `json:"outcome"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnFieldValidated func(context.Context, *ValidationEvent)
	OnSubmit         func(context.Context, *SubmitEvent)
}
