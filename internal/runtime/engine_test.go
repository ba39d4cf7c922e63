package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmailForm(opts Options) *Engine {
	return NewEngine(domain.Values{"email": ""}, emailSchema(), WithOptions(opts))
}

func noChangeValidation() Options {
	o := DefaultOptions()
	o.ValidateOnChange = false
	return o
}

func TestEngine_Defaults(t *testing.T) {
	o := DefaultOptions()
	assert.True(t, o.ValidateOnChange)
	assert.True(t, o.ValidateOnBlur)
	assert.Equal(t, 300*time.Millisecond, o.Debounce)
	assert.False(t, o.Reinitialize)
}

func TestEngine_ChangeDoesNotTouch(t *testing.T) {
	e := newEmailForm(noChangeValidation())

	e.HandleChange(domain.Event{Name: "email", Value: "x"})
	assert.Equal(t, "x", e.Values()["email"])
	assert.Empty(t, e.Touched())
}

func TestEngine_ChangeClearsErrorOptimistically(t *testing.T) {
	opts := DefaultOptions()
	opts.Debounce = time.Hour
	e := newEmailForm(opts)

	e.SetFieldError("email", "required")
	assert.True(t, e.HasErrors())

	e.HandleChange(domain.Event{Name: "email", Value: "still-bad"})
	assert.Equal(t, "", e.Errors()["email"])
	assert.Equal(t, 1, e.PendingValidations())
	e.Close()
}

func TestEngine_DebouncedChangeValidation(t *testing.T) {
	opts := DefaultOptions()
	opts.Debounce = 20 * time.Millisecond
	e := newEmailForm(opts)
	defer e.Close()

	e.HandleChange(domain.Event{Name: "email", Value: "n"})
	e.HandleChange(domain.Event{Name: "email", Value: "not-an-email"})

	assert.Eventually(t, func() bool {
		return e.Errors()["email"] == "invalid format"
	}, time.Second, 5*time.Millisecond)

	e.HandleChange(domain.Event{Name: "email", Value: "a@b.com"})
	assert.Eventually(t, func() bool {
		return e.PendingValidations() == 0 && e.IsValid()
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_ChangeOnFieldOutsideSchema(t *testing.T) {
	opts := DefaultOptions()
	opts.Debounce = 0
	e := newEmailForm(opts)

	e.HandleChange(domain.Event{Name: "nickname", Value: ""})
	assert.Equal(t, 0, e.PendingValidations())
	assert.Empty(t, e.Errors())
}

func TestEngine_CheckboxUsesChecked(t *testing.T) {
	e := NewEngine(nil, schema.Schema{"terms": nil}, WithOptions(noChangeValidation()))

	e.HandleChange(domain.Event{Name: "terms", Type: domain.InputCheckbox, Value: "on", Checked: true})
	assert.Equal(t, true, e.Values()["terms"])
}

func TestEngine_BlurTouchesAndValidates(t *testing.T) {
	e := newEmailForm(noChangeValidation())

	props := e.FieldProps("email")
	assert.False(t, props.HasError)

	e.HandleBlur(context.Background(), domain.Event{Name: "email"})
	assert.True(t, e.Touched()["email"])
	assert.Equal(t, "required", e.Errors()["email"])

	props = e.FieldProps("email")
	assert.Equal(t, "email", props.Name)
	assert.Equal(t, "", props.Value)
	assert.Equal(t, "required", props.Error)
	assert.True(t, props.HasError)
}

func TestEngine_BlurWithoutValidation(t *testing.T) {
	opts := noChangeValidation()
	opts.ValidateOnBlur = false
	e := newEmailForm(opts)

	e.HandleBlur(context.Background(), domain.Event{Name: "email"})
	assert.True(t, e.Touched()["email"])
	assert.True(t, e.IsValid())
}

func TestEngine_FieldPropsHidesUntouchedErrors(t *testing.T) {
	e := newEmailForm(noChangeValidation())
	e.SetFieldError("email", "required")

	props := e.FieldProps("email")
	assert.Equal(t, "", props.Error)
	assert.False(t, props.HasError)
	assert.True(t, e.HasErrors())
}

func TestEngine_FieldPropsHandlersAreBound(t *testing.T) {
	e := newEmailForm(noChangeValidation())
	props := e.FieldProps("email")

	props.OnChange(domain.Event{Name: "email", Value: "a@b.com"})
	props.OnBlur(context.Background(), domain.Event{Name: "email"})

	props = e.FieldProps("email")
	assert.Equal(t, "a@b.com", props.Value)
	assert.False(t, props.HasError)
}

func TestEngine_SubmitValid(t *testing.T) {
	e := newEmailForm(noChangeValidation())
	e.HandleChange(domain.Event{Name: "email", Value: "a@b.com"})

	var calls []domain.Values
	res, err := e.Submit(context.Background(), func(_ context.Context, v domain.Values, _ domain.Helpers) error {
		calls = append(calls, v)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SubmitSucceeded, res.Outcome)
	assert.True(t, res.Submitted())
	require.Len(t, calls, 1)
	assert.Equal(t, domain.Values{"email": "a@b.com"}, calls[0])
	assert.True(t, e.Touched()["email"])
	assert.False(t, e.IsSubmitting())
}

func TestEngine_SubmitBlockedOnError(t *testing.T) {
	e := newEmailForm(noChangeValidation())

	called := false
	res, err := e.Submit(context.Background(), func(context.Context, domain.Values, domain.Helpers) error {
		called = true
		return nil
	})
	require.NoError(t, err)

	assert.False(t, called)
	assert.Equal(t, domain.SubmitBlocked, res.Outcome)
	assert.Equal(t, map[string]string{"email": "required"}, res.Errors)
	assert.True(t, e.Touched()["email"])
	assert.Equal(t, "required", e.Errors()["email"])
	assert.False(t, e.IsValidating())
}

func TestEngine_SubmitMarksAllSchemaFieldsTouched(t *testing.T) {
	s := schema.Schema{"email": {requiredRule}, "notes": nil, "name": nil}
	e := NewEngine(domain.Values{"email": "a@b.com"}, s, WithOptions(noChangeValidation()))

	_, err := e.Submit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"email": true, "notes": true, "name": true}, e.Touched())
}

func TestEngine_SubmittingFlagLifecycle(t *testing.T) {
	e := newEmailForm(noChangeValidation())
	e.SetFieldValue("email", "a@b.com")

	var during bool
	_, err := e.Submit(context.Background(), func(context.Context, domain.Values, domain.Helpers) error {
		during = e.IsSubmitting()
		return errors.New("server down")
	})
	require.NoError(t, err, "handler errors are not surfaced")

	assert.True(t, during)
	assert.False(t, e.IsSubmitting())
}

func TestEngine_SubmitHandlerPanicResetsFlag(t *testing.T) {
	e := newEmailForm(noChangeValidation())
	e.SetFieldValue("email", "a@b.com")

	var got *domain.SubmitEvent
	e.hooks.OnSubmit = func(_ context.Context, ev *domain.SubmitEvent) { got = ev }

	res, err := e.Submit(context.Background(), func(context.Context, domain.Values, domain.Helpers) error {
		panic("handler bug")
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitFailed, res.Outcome)
	assert.False(t, e.IsSubmitting())
	require.NotNil(t, got)
	assert.ErrorContains(t, got.Err, "handler bug")
}

func TestEngine_SubmitHandlerSetsFieldError(t *testing.T) {
	e := newEmailForm(noChangeValidation())
	e.SetFieldValue("email", "taken@b.com")

	_, err := e.Submit(context.Background(), func(_ context.Context, _ domain.Values, h domain.Helpers) error {
		h.SetFieldError("email", "email already exists")
		return errors.New("conflict")
	})
	require.NoError(t, err)

	props := e.FieldProps("email")
	assert.Equal(t, "email already exists", props.Error)
}

func TestEngine_SubmitInterruptedByContext(t *testing.T) {
	e := newEmailForm(noChangeValidation())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	res, err := e.Submit(ctx, func(context.Context, domain.Values, domain.Helpers) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Equal(t, domain.SubmitBlocked, res.Outcome)
}

func TestEngine_HandleSubmitPreventsDefault(t *testing.T) {
	e := newEmailForm(noChangeValidation())
	e.SetFieldValue("email", "a@b.com")

	prevented := false
	handler := e.HandleSubmit(func(context.Context, domain.Values, domain.Helpers) error { return nil })

	res, err := handler(context.Background(), domain.Event{PreventDefault: func() { prevented = true }})
	require.NoError(t, err)
	assert.True(t, prevented)
	assert.Equal(t, domain.SubmitSucceeded, res.Outcome)
}

func TestEngine_IsValidatingDuringFormPass(t *testing.T) {
	var e *Engine
	var during bool
	probe := domain.RuleFunc(func(context.Context, any, domain.Values) domain.Result {
		during = e.IsValidating()
		return domain.Ok()
	})
	e = NewEngine(nil, schema.Schema{"f": {probe}}, WithOptions(noChangeValidation()))

	_, err := e.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, during)
	assert.False(t, e.IsValidating())

	// A blur validates a single field and does not set the flag.
	during = true
	e.HandleBlur(context.Background(), domain.Event{Name: "f"})
	assert.False(t, during)
}

func TestEngine_ResetRestoresDefaults(t *testing.T) {
	e := NewEngine(domain.Values{"email": "a@b.com"}, emailSchema(), WithOptions(noChangeValidation()))

	e.HandleChange(domain.Event{Name: "email", Value: ""})
	e.HandleBlur(context.Background(), domain.Event{Name: "email"})
	require.True(t, e.HasErrors())

	e.ResetForm(nil)
	assert.Equal(t, domain.Values{"email": "a@b.com"}, e.Values())
	assert.Empty(t, e.Errors())
	assert.Empty(t, e.Touched())

	e.ResetForm(domain.Values{"email": "z@b.com"})
	assert.Equal(t, "z@b.com", e.Values()["email"])
}

func TestEngine_ResetDropsPendingValidation(t *testing.T) {
	opts := DefaultOptions()
	opts.Debounce = 10 * time.Millisecond
	e := NewEngine(domain.Values{"email": "a@b.com"}, emailSchema(), WithOptions(opts))
	defer e.Close()

	e.HandleChange(domain.Event{Name: "email", Value: ""})
	e.ResetForm(nil)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, e.Errors())
}

func TestEngine_Reinitialize(t *testing.T) {
	opts := noChangeValidation()
	opts.Reinitialize = true
	e := NewEngine(domain.Values{"email": "a@b.com"}, emailSchema(), WithOptions(opts))

	e.HandleChange(domain.Event{Name: "email", Value: "edited@b.com"})
	e.HandleBlur(context.Background(), domain.Event{Name: "email"})

	assert.False(t, e.Reinitialize(domain.Values{"email": "a@b.com"}), "same values are not a change")
	assert.Equal(t, "edited@b.com", e.Values()["email"])

	assert.True(t, e.Reinitialize(domain.Values{"email": "new@b.com"}))
	assert.Equal(t, domain.Values{"email": "new@b.com"}, e.Values())
	assert.Empty(t, e.Touched())
	assert.Empty(t, e.Errors())

	e.ResetForm(nil)
	assert.Equal(t, "new@b.com", e.Values()["email"])
}

func TestEngine_ReinitializeDisabled(t *testing.T) {
	e := NewEngine(domain.Values{"email": "a@b.com"}, emailSchema(), WithOptions(noChangeValidation()))
	e.HandleChange(domain.Event{Name: "email", Value: "edited@b.com"})

	assert.False(t, e.Reinitialize(domain.Values{"email": "new@b.com"}))
	assert.Equal(t, "edited@b.com", e.Values()["email"])
}

func TestEngine_SetFieldErrorOutsideSchemaIgnored(t *testing.T) {
	e := newEmailForm(noChangeValidation())
	e.SetFieldError("nickname", "nope")
	assert.True(t, e.IsValid())
}

func TestEngine_SubscribeReceivesSnapshotsInOrder(t *testing.T) {
	e := NewEngine(nil, schema.Schema{"name": nil}, WithOptions(noChangeValidation()))

	var (
		mu   sync.Mutex
		seen []any
	)
	unsubscribe := e.Subscribe(func(s domain.State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s.Values["name"])
	})

	e.HandleChange(domain.Event{Name: "name", Value: "A"})
	e.HandleChange(domain.Event{Name: "name", Value: "Ad"})
	unsubscribe()
	unsubscribe()
	e.HandleChange(domain.Event{Name: "name", Value: "Ada"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []any{"A", "Ad"}, seen)
}

func TestEngine_SubscriberMayMutate(t *testing.T) {
	e := NewEngine(nil, schema.Schema{"name": nil, "slug": nil}, WithOptions(noChangeValidation()))

	var seen []domain.Values
	e.Subscribe(func(s domain.State) {
		seen = append(seen, s.Values)
		if s.Values["name"] == "Ada" && s.Values["slug"] == nil {
			e.SetFieldValue("slug", "ada")
		}
	})

	e.HandleChange(domain.Event{Name: "name", Value: "Ada"})

	require.Len(t, seen, 2)
	assert.Equal(t, "ada", seen[1]["slug"])
	assert.Equal(t, "ada", e.Values()["slug"])
}

func TestEngine_HooksReportValidations(t *testing.T) {
	var events []*domain.ValidationEvent
	hooks := domain.LifecycleHooks{
		OnFieldValidated: func(_ context.Context, ev *domain.ValidationEvent) { events = append(events, ev) },
	}
	e := NewEngine(nil, emailSchema(), WithOptions(noChangeValidation()), WithLifecycleHooks(hooks), WithName("client"))

	e.HandleBlur(context.Background(), domain.Event{Name: "email"})
	_, err := e.Validate(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, domain.TriggerBlur, events[0].Trigger)
	assert.Equal(t, "client", events[0].Form)
	assert.Equal(t, "required", events[0].Error)
	assert.Equal(t, domain.TriggerForm, events[1].Trigger)
	assert.False(t, events[1].Stale)
}

func TestEngine_CloseCancelsPending(t *testing.T) {
	opts := DefaultOptions()
	opts.Debounce = 10 * time.Millisecond
	e := newEmailForm(opts)

	e.HandleChange(domain.Event{Name: "email", Value: "bad"})
	e.Close()
	e.Close()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, e.Errors())
	assert.Equal(t, 0, e.PendingValidations())
}
