package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/formwork/pkg/domain"
)

// Submit marks every schema field touched, validates the whole form and,
// only if no field fails, calls onSubmit with the values captured at the
// start of the attempt.
//
// The handler's error (or panic) is logged and passed to the OnSubmit hook;
// it is not returned. Handlers that need a user-visible failure call
// helpers.SetFieldError before returning. The returned error is non-nil only
// when ctx ends during validation, in which case onSubmit is not called.
func (e *Engine) Submit(ctx context.Context, onSubmit domain.SubmitFunc) (domain.SubmitResult, error) {
	start := time.Now()

	var values domain.Values
	e.mutate(func() {
		e.store.TouchAll()
		values = e.store.Values()
	})

	errs, err := e.validateAll(ctx, values)
	if err != nil {
		return domain.SubmitResult{Outcome: domain.SubmitBlocked}, fmt.Errorf("validation interrupted: %w", err)
	}

	if len(errs) > 0 {
		e.logger.Debug("Submission blocked", "errors", len(errs))
		e.reportSubmit(ctx, domain.SubmitBlocked, nil, start)
		return domain.SubmitResult{Outcome: domain.SubmitBlocked, Errors: errs}, nil
	}

	outcome := domain.SubmitSucceeded
	herr := e.runHandler(ctx, onSubmit, values)
	if herr != nil {
		outcome = domain.SubmitFailed
		e.logger.Error("Submit handler failed", "err", herr)
	}
	e.reportSubmit(ctx, outcome, herr, start)

	return domain.SubmitResult{Outcome: outcome}, nil
}

// runHandler keeps IsSubmitting true exactly while onSubmit runs.
func (e *Engine) runHandler(ctx context.Context, onSubmit domain.SubmitFunc, values domain.Values) (err error) {
	e.mutate(func() { e.submitting++ })
	defer e.mutate(func() { e.submitting-- })

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("submit handler panicked: %v", p)
		}
	}()

	if onSubmit == nil {
		return nil
	}
	return onSubmit(ctx, values, domain.Helpers{SetFieldError: e.SetFieldError})
}

func (e *Engine) reportSubmit(ctx context.Context, outcome domain.SubmitOutcome, err error, start time.Time) {
	if e.hooks.OnSubmit == nil {
		return
	}
	e.hooks.OnSubmit(ctx, &domain.SubmitEvent{
		Form:     e.name,
		Outcome:  outcome,
		Err:      err,
		Duration: time.Since(start),
	})
}

// HandleSubmit returns an event handler that prevents the event's default
// behaviour and submits.
func (e *Engine) HandleSubmit(onSubmit domain.SubmitFunc) domain.EventHandler {
	return func(ctx context.Context, ev domain.Event) (domain.SubmitResult, error) {
		if ev.PreventDefault != nil {
			ev.PreventDefault()
		}
		return e.Submit(ctx, onSubmit)
	}
}
