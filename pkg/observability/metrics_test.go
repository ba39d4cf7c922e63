package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/formwork"
	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/observability"
	"github.com/aretw0/formwork/pkg/rules"
	"github.com/aretw0/formwork/pkg/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsValidations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnFieldValidated(ctx, &domain.ValidationEvent{Form: "client", Field: "email", Trigger: domain.TriggerBlur, Error: "required", Duration: time.Millisecond})
	hooks.OnFieldValidated(ctx, &domain.ValidationEvent{Form: "client", Field: "email", Trigger: domain.TriggerBlur})
	hooks.OnFieldValidated(ctx, &domain.ValidationEvent{Form: "client", Field: "email", Trigger: domain.TriggerChange, Error: "old", Stale: true})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues("client", "email", "blur", observability.ResultInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues("client", "email", "blur", observability.ResultValid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues("client", "email", "change", observability.ResultStale)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ValidationDuration))
}

func TestMetrics_RecordsSubmissions(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())

	s := schema.Schema{"email": {rules.Required("required")}}
	form := formwork.New(domain.Values{"email": ""}, s,
		formwork.WithName("client"),
		formwork.WithValidateOnChange(false),
		formwork.WithLifecycleHooks(m.Hooks()),
	)
	defer form.Close()
	ctx := context.Background()

	res, err := form.Submit(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitBlocked, res.Outcome)

	form.SetFieldValue("email", "a@b.com")
	res, err = form.Submit(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitSucceeded, res.Outcome)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("client", "blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("client", "submitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues("client", "email", "form", observability.ResultInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Validations.WithLabelValues("client", "email", "form", observability.ResultValid)))
}

func TestChain(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnSubmit: func(context.Context, *domain.SubmitEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{
		OnSubmit:         func(context.Context, *domain.SubmitEvent) { calls = append(calls, "b") },
		OnFieldValidated: func(context.Context, *domain.ValidationEvent) { calls = append(calls, "b-field") },
	}

	h := observability.Chain(a, domain.LifecycleHooks{}, b)
	h.OnSubmit(context.Background(), &domain.SubmitEvent{})
	h.OnFieldValidated(context.Background(), &domain.ValidationEvent{})

	assert.Equal(t, []string{"a", "b", "b-field"}, calls)
}
