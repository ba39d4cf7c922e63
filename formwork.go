package formwork

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/formwork/internal/runtime"
	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/schema"
)

// Form is the public entry point: one instance per open form. It wraps the
// internal runtime and must be closed when the form is discarded so pending
// validations are canceled.
type Form struct {
	runtime *runtime.Engine
	opts    runtime.Options
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	Name    string
}

// Option configures a Form.
type Option func(*Form)

// WithValidateOnChange toggles debounced validation on change (default true).
func WithValidateOnChange(enabled bool) Option {
	return func(f *Form) {
		f.opts.ValidateOnChange = enabled
	}
}

// WithValidateOnBlur toggles immediate validation on blur (default true).
func WithValidateOnBlur(enabled bool) Option {
	return func(f *Form) {
		f.opts.ValidateOnBlur = enabled
	}
}

// WithDebounce sets the delay of change-triggered validation (default 300ms).
func WithDebounce(d time.Duration) Option {
	return func(f *Form) {
		if d >= 0 {
			f.opts.Debounce = d
		}
	}
}

// WithReinitialize lets Reinitialize replace the whole form state when the
// initial values change (default false).
func WithReinitialize(enabled bool) Option {
	return func(f *Form) {
		f.opts.Reinitialize = enabled
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(f *Form) {
		f.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Form) {
		f.logger = logger
	}
}

// WithName labels the form in logs and hook events.
func WithName(name string) Option {
	return func(f *Form) {
		f.Name = name
	}
}

// WithDefinitionOptions applies the options declared in a definition over
// the defaults. Later options still override it.
func WithDefinitionOptions(def schema.OptionsDefinition) Option {
	return func(f *Form) {
		if def.Debounce != nil {
			f.opts.Debounce = *def.Debounce
		}
		if def.ValidateOnChange != nil {
			f.opts.ValidateOnChange = *def.ValidateOnChange
		}
		if def.ValidateOnBlur != nil {
			f.opts.ValidateOnBlur = *def.ValidateOnBlur
		}
		if def.Reinitialize != nil {
			f.opts.Reinitialize = *def.Reinitialize
		}
	}
}

// New creates a form seeded with a copy of initial.
func New(initial domain.Values, s schema.Schema, opts ...Option) *Form {
	f := &Form{opts: runtime.DefaultOptions()}
	for _, opt := range opts {
		opt(f)
	}

	// Never hand a nil logger to the runtime, which would keep its default.
	if f.logger == nil {
		f.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	f.runtime = runtime.NewEngine(initial, s,
		runtime.WithOptions(f.opts),
		runtime.WithLogger(f.logger),
		runtime.WithLifecycleHooks(f.hooks),
		runtime.WithName(f.Name),
	)
	return f
}

// NewFromDefinition builds the schema through reg and creates a form with
// the definition's initial values and options. Extra opts apply last.
func NewFromDefinition(def *schema.Definition, reg *schema.Registry, opts ...Option) (*Form, error) {
	s, err := def.Schema(reg)
	if err != nil {
		return nil, err
	}
	base := []Option{WithName(def.Name), WithDefinitionOptions(def.Options)}
	return New(def.InitialValues(), s, append(base, opts...)...), nil
}

// Options returns the effective options.
func (f *Form) Options() runtime.Options { return f.opts }

// HandleChange stores an input's value and schedules its validation.
func (f *Form) HandleChange(ev domain.Event) { f.runtime.HandleChange(ev) }

// HandleBlur marks an input touched and validates it.
func (f *Form) HandleBlur(ctx context.Context, ev domain.Event) { f.runtime.HandleBlur(ctx, ev) }

// HandleSubmit returns a submit event handler bound to onSubmit.
func (f *Form) HandleSubmit(onSubmit domain.SubmitFunc) domain.EventHandler {
	return f.runtime.HandleSubmit(onSubmit)
}

// Submit touches every field, validates, and calls onSubmit only if valid.
func (f *Form) Submit(ctx context.Context, onSubmit domain.SubmitFunc) (domain.SubmitResult, error) {
	return f.runtime.Submit(ctx, onSubmit)
}

// Validate runs a full-form pass and writes its results.
func (f *Form) Validate(ctx context.Context) (map[string]string, error) {
	return f.runtime.Validate(ctx)
}

// ResetForm restores the initial values (or values, when non-nil).
func (f *Form) ResetForm(values domain.Values) { f.runtime.ResetForm(values) }

// Reinitialize replaces the form state if initial differs and the option is on.
func (f *Form) Reinitialize(initial domain.Values) bool { return f.runtime.Reinitialize(initial) }

// SetFieldValue sets a value programmatically.
func (f *Form) SetFieldValue(name string, value any) { f.runtime.SetFieldValue(name, value) }

// SetFieldError sets (or clears, with "") a field's error programmatically.
func (f *Form) SetFieldError(name, message string) { f.runtime.SetFieldError(name, message) }

// FieldProps binds one field for a UI input.
func (f *Form) FieldProps(name string) domain.FieldAccessor { return f.runtime.FieldProps(name) }

// State returns a snapshot of the whole form.
func (f *Form) State() domain.State { return f.runtime.State() }

// Values returns a copy of the current values.
func (f *Form) Values() domain.Values { return f.runtime.Values() }

// Errors returns a copy of the current errors.
func (f *Form) Errors() map[string]string { return f.runtime.Errors() }

// Touched returns a copy of the touched flags.
func (f *Form) Touched() map[string]bool { return f.runtime.Touched() }

// IsValidating reports whether a full-form pass is running.
func (f *Form) IsValidating() bool { return f.runtime.IsValidating() }

// IsSubmitting reports whether the submit handler is running.
func (f *Form) IsSubmitting() bool { return f.runtime.IsSubmitting() }

// IsValid reports whether no field has an error.
func (f *Form) IsValid() bool { return f.runtime.IsValid() }

// HasErrors reports whether any field has an error.
func (f *Form) HasErrors() bool { return f.runtime.HasErrors() }

// Schema returns the form's schema.
func (f *Form) Schema() schema.Schema { return f.runtime.Schema() }

// Subscribe registers a state listener; the returned func unsubscribes.
func (f *Form) Subscribe(fn func(domain.State)) func() { return f.runtime.Subscribe(fn) }

// Close cancels pending validations.
func (f *Form) Close() { f.runtime.Close() }
