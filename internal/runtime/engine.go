package runtime

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/aretw0/formwork/internal/logging"
	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/schema"
)

// Options are the behavioural switches of a form.
type Options struct {
	ValidateOnChange bool          // Debounced validation on every change
	ValidateOnBlur   bool          // Immediate validation on blur
	Debounce         time.Duration // Delay for change-triggered validation
	Reinitialize     bool          // Replace state when initial values change
}

// DefaultDebounce is the change validation delay used unless configured.
const DefaultDebounce = 300 * time.Millisecond

// DefaultOptions returns the defaults: validate on change and blur, 300ms
// debounce, no reinitialization.
func DefaultOptions() Options {
	return Options{
		ValidateOnChange: true,
		ValidateOnBlur:   true,
		Debounce:         DefaultDebounce,
	}
}

// Engine composes the FieldStore and the Scheduler behind the form contract.
// It is safe for concurrent use, but events of one form are expected to
// arrive in order from a single UI session.
type Engine struct {
	name   string
	schema schema.Schema
	opts   Options
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	mu         sync.Mutex
	store      *FieldStore
	validating int
	submitting int
	closed     bool

	scheduler *Scheduler
	notify    *broadcaster
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithOptions sets the behavioural options.
func WithOptions(opts Options) EngineOption {
	return func(e *Engine) {
		e.opts = opts
	}
}

// WithLogger sets the logger. Nil keeps the no-op default.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithName labels the form in logs and hook events.
func WithName(name string) EngineOption {
	return func(e *Engine) {
		e.name = name
	}
}

// NewEngine creates an engine over a copy of initial.
func NewEngine(initial domain.Values, s schema.Schema, opts ...EngineOption) *Engine {
	if s == nil {
		s = schema.Schema{}
	}
	e := &Engine{
		schema: s,
		opts:   DefaultOptions(),
		logger: logging.NewNop(),
		notify: &broadcaster{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.name != "" {
		e.logger = e.logger.With("form", e.name)
	}
	e.store = NewFieldStore(initial, s)
	e.scheduler = NewScheduler(s, e.logger, e)
	return e
}

// --- sink ---

func (e *Engine) commitErrors(results map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, msg := range results {
		e.store.SetError(name, msg)
	}
	e.publishLocked()
}

func (e *Engine) validated(ctx context.Context, ev *domain.ValidationEvent) {
	e.notify.drain()
	ev.Form = e.name
	if e.hooks.OnFieldValidated != nil {
		e.hooks.OnFieldValidated(ctx, ev)
	}
}

// publishLocked queues a snapshot for subscribers. Caller holds e.mu and
// must call e.notify.drain() after unlocking.
func (e *Engine) publishLocked() {
	if !e.notify.active() {
		return
	}
	e.notify.enqueue(e.stateLocked())
}

func (e *Engine) stateLocked() domain.State {
	return domain.State{
		Values:       e.store.Values(),
		Errors:       e.store.Errors(),
		Touched:      e.store.Touched(),
		IsValidating: e.validating > 0,
		IsSubmitting: e.submitting > 0,
	}
}

// mutate runs fn under the lock, publishes, and delivers outside the lock.
func (e *Engine) mutate(fn func()) {
	e.mu.Lock()
	fn()
	e.publishLocked()
	e.mu.Unlock()
	e.notify.drain()
}

// --- events ---

// HandleChange stores the event's value (Checked for checkboxes), clears the
// field's error and, if enabled, schedules a debounced validation. It never
// marks the field touched.
func (e *Engine) HandleChange(ev domain.Event) {
	value := ev.FieldValue()

	var all domain.Values
	e.mutate(func() {
		e.store.SetValue(ev.Name, value)
		all = e.store.Values()
	})

	if e.opts.ValidateOnChange && e.schema.Has(ev.Name) {
		e.scheduler.Schedule(ev.Name, value, all, e.opts.Debounce)
	}
}

// HandleBlur marks the field touched and, if enabled, validates it
// immediately. It blocks until the field's rule chain has completed.
func (e *Engine) HandleBlur(ctx context.Context, ev domain.Event) {
	var (
		value any
		all   domain.Values
	)
	e.mutate(func() {
		e.store.SetTouched(ev.Name, true)
		value = e.store.Value(ev.Name)
		all = e.store.Values()
	})

	if e.opts.ValidateOnBlur && e.schema.Has(ev.Name) {
		e.scheduler.Run(ctx, ev.Name, value, all, domain.TriggerBlur)
	}
}

// Validate runs a full-form pass over the current values and writes the
// results. IsValidating is true for its duration.
func (e *Engine) Validate(ctx context.Context) (map[string]string, error) {
	var all domain.Values
	e.mu.Lock()
	all = e.store.Values()
	e.mu.Unlock()
	return e.validateAll(ctx, all)
}

func (e *Engine) validateAll(ctx context.Context, all domain.Values) (map[string]string, error) {
	fields := e.schema.Fields()
	tokens := e.scheduler.Begin(fields)

	e.mutate(func() { e.validating++ })
	defer e.mutate(func() { e.validating-- })

	start := time.Now()
	results, err := e.scheduler.ValidateForm(ctx, all)
	if err != nil {
		return nil, err
	}
	written := e.scheduler.CommitAll(tokens, results)
	e.notify.drain()

	if e.hooks.OnFieldValidated != nil {
		elapsed := time.Since(start)
		for _, name := range fields {
			e.hooks.OnFieldValidated(ctx, &domain.ValidationEvent{
				Form:     e.name,
				Field:    name,
				Trigger:  domain.TriggerForm,
				Error:    results[name],
				Stale:    !written[name],
				Duration: elapsed,
			})
		}
	}
	return results, nil
}

// --- imperative access ---

// SetFieldValue sets a value without validating it. Like a change, it clears
// the field's error.
func (e *Engine) SetFieldValue(name string, value any) {
	e.mutate(func() { e.store.SetValue(name, value) })
}

// SetFieldError attaches (or, with "", clears) an error. Fields outside the
// schema are ignored.
func (e *Engine) SetFieldError(name, message string) {
	var ok bool
	e.mutate(func() { ok = e.store.SetError(name, message) })
	if !ok {
		e.logger.Warn("Ignoring error for field outside schema", "field", name)
	}
}

// ResetForm replaces the values (nil restores the initial values) and clears
// errors and touched flags. Pending validations are dropped.
func (e *Engine) ResetForm(values domain.Values) {
	e.scheduler.Invalidate(e.schema.Fields()...)
	e.mutate(func() { e.store.ResetAll(values) })
}

// Reinitialize replaces the initial values and the whole form state when
// reinitialization is enabled and initial differs from the current initial
// values. Unsaved edits are discarded. It reports whether state was replaced.
func (e *Engine) Reinitialize(initial domain.Values) bool {
	if !e.opts.Reinitialize {
		return false
	}

	e.mu.Lock()
	same := reflect.DeepEqual(e.store.Initial(), initial.Clone())
	e.mu.Unlock()
	if same {
		return false
	}

	e.scheduler.Invalidate(e.schema.Fields()...)
	e.mutate(func() { e.store.Reinitialize(initial) })
	e.logger.Debug("Form reinitialized")
	return true
}

// FieldProps binds a field for a UI input. Error is only set once the field
// has been touched.
func (e *Engine) FieldProps(name string) domain.FieldAccessor {
	e.mu.Lock()
	defer e.mu.Unlock()

	acc := domain.FieldAccessor{
		Name:     name,
		Value:    e.store.Value(name),
		OnChange: e.HandleChange,
		OnBlur:   e.HandleBlur,
	}
	if e.store.IsTouched(name) {
		acc.Error = e.store.Error(name)
		acc.HasError = acc.Error != ""
	}
	return acc
}

// --- read side ---

// State returns a snapshot of the whole form.
func (e *Engine) State() domain.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Values returns a copy of the current values.
func (e *Engine) Values() domain.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Values()
}

// Errors returns a copy of the current errors.
func (e *Engine) Errors() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Errors()
}

// Touched returns a copy of the touched flags.
func (e *Engine) Touched() map[string]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Touched()
}

// IsValidating reports whether a full-form pass is in flight.
func (e *Engine) IsValidating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validating > 0
}

// IsSubmitting reports whether a submit handler is running.
func (e *Engine) IsSubmitting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitting > 0
}

// IsValid reports whether no field has an error.
func (e *Engine) IsValid() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ErrorCount() == 0
}

// HasErrors reports whether at least one field has an error.
func (e *Engine) HasErrors() bool {
	return !e.IsValid()
}

// Name returns the form label.
func (e *Engine) Name() string { return e.name }

// Schema returns the schema the form validates against.
func (e *Engine) Schema() schema.Schema { return e.schema }

// Subscribe registers fn to receive a snapshot after every mutation, in
// mutation order. The returned function unsubscribes.
func (e *Engine) Subscribe(fn func(domain.State)) func() {
	return e.notify.subscribe(fn)
}

// PendingValidations returns the number of debounced validations that have
// not committed yet.
func (e *Engine) PendingValidations() int {
	return e.scheduler.Pending()
}

// Close cancels pending debounced validations. The form stays readable.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.scheduler.Stop()
}
