package formwork

import (
	"context"
	"sort"

	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/schema"
)

// Report is the outcome of a dry-run submission.
type Report struct {
	Schema  string            `json:"schema"`
	Valid   bool              `json:"valid"`
	Errors  map[string]string `json:"errors,omitempty"`
	Values  domain.Values     `json:"values"`
	Fields  []string          `json:"fields"`
	Unknown []string          `json:"unknown,omitempty"` // Keys in values the definition does not declare
}

// Check fills a form from def with values, overlaid on the declared initial
// values, and submits it without a handler. Every field is touched and
// validated exactly as a real submission would.
func Check(ctx context.Context, def *schema.Definition, reg *schema.Registry, values domain.Values, opts ...Option) (*Report, error) {
	s, err := def.Schema(reg)
	if err != nil {
		return nil, err
	}

	merged := def.InitialValues()
	var unknown []string
	for k, v := range values {
		if !s.Has(k) {
			unknown = append(unknown, k)
		}
		merged[k] = v
	}
	sort.Strings(unknown)

	base := []Option{WithName(def.Name), WithValidateOnChange(false)}
	form := New(merged, s, append(base, opts...)...)
	defer form.Close()

	res, err := form.Submit(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &Report{
		Schema:  def.Name,
		Valid:   res.Outcome == domain.SubmitSucceeded,
		Errors:  res.Errors,
		Values:  form.Values(),
		Fields:  s.Fields(),
		Unknown: unknown,
	}, nil
}
