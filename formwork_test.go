package formwork_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/formwork"
	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/rules"
	"github.com/aretw0/formwork/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emailForm(opts ...formwork.Option) *formwork.Form {
	return formwork.New(
		domain.Values{"email": ""},
		schema.Schema{"email": {rules.Required("required"), rules.Email("invalid format")}},
		opts...,
	)
}

func TestNew_Defaults(t *testing.T) {
	f := emailForm()
	defer f.Close()

	o := f.Options()
	assert.True(t, o.ValidateOnChange)
	assert.True(t, o.ValidateOnBlur)
	assert.Equal(t, 300*time.Millisecond, o.Debounce)
	assert.False(t, o.Reinitialize)
}

func TestForm_SubmitScenario(t *testing.T) {
	ctx := context.Background()
	f := emailForm(formwork.WithValidateOnChange(false))
	defer f.Close()

	var calls []domain.Values
	onSubmit := func(_ context.Context, v domain.Values, _ domain.Helpers) error {
		calls = append(calls, v)
		return nil
	}

	res, err := f.Submit(ctx, onSubmit)
	require.NoError(t, err)
	assert.False(t, res.Submitted())
	assert.Empty(t, calls)
	assert.True(t, f.Touched()["email"])
	assert.Equal(t, "required", f.Errors()["email"])

	f.HandleChange(domain.Event{Name: "email", Value: "a@b.com"})
	res, err = f.Submit(ctx, onSubmit)
	require.NoError(t, err)
	assert.True(t, res.Submitted())
	require.Len(t, calls, 1)
	assert.Equal(t, domain.Values{"email": "a@b.com"}, calls[0])
}

func TestForm_DebouncedBlurAndProps(t *testing.T) {
	f := emailForm(formwork.WithDebounce(10 * time.Millisecond))
	defer f.Close()

	f.HandleChange(domain.Event{Name: "email", Value: "not-an-email"})
	assert.Eventually(t, func() bool { return f.HasErrors() }, time.Second, 5*time.Millisecond)

	assert.False(t, f.FieldProps("email").HasError, "untouched errors stay hidden")

	f.HandleBlur(context.Background(), domain.Event{Name: "email"})
	assert.Equal(t, "invalid format", f.FieldProps("email").Error)
}

func TestNewFromDefinition(t *testing.T) {
	def, err := schema.ParseDefinition([]byte(`
name: signup
options:
  debounce: 50ms
  validate_on_change: false
  reinitialize: true
fields:
  password:
    rules:
      - type: min_length
        min: 8
  confirm:
    rules:
      - type: matches
        field: password
        message: passwords differ
`))
	require.NoError(t, err)

	f, err := formwork.NewFromDefinition(def, rules.NewRegistry(), formwork.WithDebounce(time.Second))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "signup", f.Name)
	assert.Equal(t, time.Second, f.Options().Debounce)
	assert.False(t, f.Options().ValidateOnChange)
	assert.True(t, f.Options().Reinitialize)

	f.SetFieldValue("password", "correct horse")
	f.SetFieldValue("confirm", "battery staple")
	errs, err := f.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"confirm": "passwords differ"}, errs)
}

func TestWithDefinitionOptions_AbsentKeysKeepEarlierOptions(t *testing.T) {
	f := formwork.New(nil, schema.Schema{},
		formwork.WithReinitialize(true),
		formwork.WithValidateOnBlur(false),
		formwork.WithDefinitionOptions(schema.OptionsDefinition{}),
	)
	defer f.Close()

	assert.True(t, f.Options().Reinitialize)
	assert.False(t, f.Options().ValidateOnBlur)

	off := false
	f = formwork.New(nil, schema.Schema{},
		formwork.WithReinitialize(true),
		formwork.WithDefinitionOptions(schema.OptionsDefinition{Reinitialize: &off}),
	)
	defer f.Close()
	assert.False(t, f.Options().Reinitialize)
}

func TestNewFromDefinition_BadRule(t *testing.T) {
	def, err := schema.ParseDefinition([]byte("fields:\n  a:\n    rules:\n      - type: nope\n"))
	require.NoError(t, err)

	_, err = formwork.NewFromDefinition(def, rules.NewRegistry())
	assert.ErrorIs(t, err, domain.ErrUnknownRule)
}
