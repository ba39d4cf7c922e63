package observability

import (
	"context"

	"github.com/aretw0/formwork/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Validation results as reported in the "result" label.
const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
	ResultStale   = "stale"
)

// Metrics holds the collectors fed by form lifecycle hooks.
type Metrics struct {
	Validations        *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec
	Submissions        *prometheus.CounterVec
	SubmitDuration     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formwork_field_validations_total",
				Help: "Total number of field validations by result",
			},
			[]string{"form", "field", "trigger", "result"},
		),
		ValidationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "formwork_validation_duration_seconds",
				Help:    "Duration of field rule chains",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"form", "trigger"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formwork_submissions_total",
				Help: "Total number of submission attempts by outcome",
			},
			[]string{"form", "outcome"},
		),
		SubmitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "formwork_submit_duration_seconds",
				Help: "Duration of submission attempts, validation included",
			},
			[]string{"form"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Validations, m.ValidationDuration, m.Submissions, m.SubmitDuration)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFieldValidated: m.observeValidation,
		OnSubmit:         m.observeSubmit,
	}
}

func (m *Metrics) observeValidation(_ context.Context, ev *domain.ValidationEvent) {
	result := ResultValid
	switch {
	case ev.Stale:
		result = ResultStale
	case ev.Error != "":
		result = ResultInvalid
	}
	trigger := string(ev.Trigger)
	m.Validations.WithLabelValues(ev.Form, ev.Field, trigger, result).Inc()
	m.ValidationDuration.WithLabelValues(ev.Form, trigger).Observe(ev.Duration.Seconds())
}

func (m *Metrics) observeSubmit(_ context.Context, ev *domain.SubmitEvent) {
	m.Submissions.WithLabelValues(ev.Form, string(ev.Outcome)).Inc()
	m.SubmitDuration.WithLabelValues(ev.Form).Observe(ev.Duration.Seconds())
}

// Chain merges hooks so each event reaches every non-nil hook in order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		h := h
		if h.OnFieldValidated != nil {
			prev := out.OnFieldValidated
			out.OnFieldValidated = func(ctx context.Context, ev *domain.ValidationEvent) {
				if prev != nil {
					prev(ctx, ev)
				}
				h.OnFieldValidated(ctx, ev)
			}
		}
		if h.OnSubmit != nil {
			prev := out.OnSubmit
			out.OnSubmit = func(ctx context.Context, ev *domain.SubmitEvent) {
				if prev != nil {
					prev(ctx, ev)
				}
				h.OnSubmit(ctx, ev)
			}
		}
	}
	return out
}
