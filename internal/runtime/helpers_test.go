package runtime

import (
	"context"
	"strings"
	"sync"

	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/schema"
)

var requiredRule = domain.RuleFunc(func(_ context.Context, v any, _ domain.Values) domain.Result {
	if s, _ := v.(string); s == "" {
		return domain.Fail("required")
	}
	return domain.Ok()
})

var emailFormatRule = domain.RuleFunc(func(_ context.Context, v any, _ domain.Values) domain.Result {
	s, _ := v.(string)
	at := strings.Index(s, "@")
	if at <= 0 || !strings.Contains(s[at:], ".") {
		return domain.Fail("invalid format")
	}
	return domain.Ok()
})

func emailSchema() schema.Schema {
	return schema.Schema{"email": {requiredRule, emailFormatRule}}
}

// recordingSink captures what the scheduler commits.
type recordingSink struct {
	mu      sync.Mutex
	commits []map[string]string
	events  chan *domain.ValidationEvent
}

func newRecordingSink() *recordingSink {
	return &recordingSink{events: make(chan *domain.ValidationEvent, 16)}
}

func (r *recordingSink) commitErrors(results map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]string, len(results))
	for k, v := range results {
		cp[k] = v
	}
	r.commits = append(r.commits, cp)
}

func (r *recordingSink) validated(_ context.Context, ev *domain.ValidationEvent) {
	r.events <- ev
}

func (r *recordingSink) snapshot() []map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]string(nil), r.commits...)
}

// valueRecorder is a passing rule that remembers every value it checked.
type valueRecorder struct {
	mu   sync.Mutex
	seen []any
}

func (v *valueRecorder) Check(_ context.Context, value any, _ domain.Values) domain.Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seen = append(v.seen, value)
	return domain.Ok()
}

func (v *valueRecorder) values() []any {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]any(nil), v.seen...)
}
