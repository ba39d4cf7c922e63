package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/schema"
	"golang.org/x/sync/errgroup"
)

// sink receives validation results from the Scheduler.
type sink interface {
	// commitErrors is called while the scheduler lock is held, so a result
	// can never be written after it has been superseded. "" clears a field.
	commitErrors(results map[string]string)
	// validated is called with no scheduler lock held.
	validated(ctx context.Context, ev *domain.ValidationEvent)
}

// task is a pending debounced validation.
type task struct {
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc
}

// Scheduler evaluates rule chains and orders per-field validations.
//
// Every validation started for a field (debounced, immediate, or as part of
// a full-form pass) takes the next sequence number for that field. A result
// is committed only if its sequence is still the field's latest, so the
// store reflects the most recently initiated validation even when an older,
// slower one completes later.
type Scheduler struct {
	schema schema.Schema
	logger *slog.Logger
	sink   sink

	mu    sync.Mutex
	seq   map[string]uint64
	tasks map[string]*task

	base context.Context
	stop context.CancelFunc
}

// NewScheduler creates a scheduler for the given schema.
func NewScheduler(s schema.Schema, logger *slog.Logger, out sink) *Scheduler {
	base, stop := context.WithCancel(context.Background())
	return &Scheduler{
		schema: s,
		logger: logger,
		sink:   out,
		seq:    make(map[string]uint64),
		tasks:  make(map[string]*task),
		base:   base,
		stop:   stop,
	}
}

// ValidateField runs the field's rule chain in order and returns the first
// failure message, or "" when every rule passes. Fields absent from the
// schema trivially pass. The error is non-nil only if ctx ended before the
// chain completed.
func (s *Scheduler) ValidateField(ctx context.Context, name string, value any, all domain.Values) (string, error) {
	for i, rule := range s.schema.Rules(name) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		res := s.check(ctx, name, i, rule, value, all)
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !res.IsOk() {
			return res.Message(), nil
		}
	}
	return "", nil
}

// check evaluates one rule, turning a panic into a failure.
func (s *Scheduler) check(ctx context.Context, name string, index int, rule domain.Rule, value any, all domain.Values) (res domain.Result) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("Rule panicked", "field", name, "rule", index, "panic", p)
			res = domain.Fail(panicMessage(p))
		}
	}()
	return rule.Check(ctx, value, all)
}

func panicMessage(p any) string {
	switch v := p.(type) {
	case error:
		return v.Error()
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return domain.DefaultRuleFailure
	}
}

// ValidateForm validates every schema field against all and returns only the
// failing ones. Chains of different fields run concurrently; the map is
// returned only once all of them completed.
func (s *Scheduler) ValidateForm(ctx context.Context, all domain.Values) (map[string]string, error) {
	var (
		mu      sync.Mutex
		results = make(map[string]string)
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range s.schema.Fields() {
		g.Go(func() error {
			msg, err := s.ValidateField(gctx, name, all.Get(name), all)
			if err != nil {
				return err
			}
			if msg != "" {
				mu.Lock()
				results[name] = msg
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// bumpLocked starts a new generation for name and cancels its pending task.
// Caller holds s.mu.
func (s *Scheduler) bumpLocked(name string) uint64 {
	s.seq[name]++
	if t, ok := s.tasks[name]; ok {
		t.timer.Stop()
		t.cancel()
		delete(s.tasks, name)
	}
	return s.seq[name]
}

// Schedule validates a field after delay. A later Schedule, Run, Begin or
// Invalidate for the same field supersedes it: its timer is stopped, its
// context canceled, and its result (if it was already running) dropped.
func (s *Scheduler) Schedule(name string, value any, all domain.Values, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.base.Err() != nil {
		return
	}

	seq := s.bumpLocked(name)
	ctx, cancel := context.WithCancel(s.base)
	t := &task{seq: seq, cancel: cancel}
	t.timer = time.AfterFunc(delay, func() {
		defer cancel()
		s.execute(ctx, name, seq, value, all, domain.TriggerChange)
	})
	s.tasks[name] = t
}

// Run validates a field immediately in the caller's goroutine, superseding
// any pending validation of that field. It returns the message that was
// computed (committed or not).
func (s *Scheduler) Run(ctx context.Context, name string, value any, all domain.Values, trigger domain.ValidationTrigger) string {
	s.mu.Lock()
	if s.base.Err() != nil {
		s.mu.Unlock()
		return ""
	}
	seq := s.bumpLocked(name)
	s.mu.Unlock()

	return s.execute(ctx, name, seq, value, all, trigger)
}

func (s *Scheduler) execute(ctx context.Context, name string, seq uint64, value any, all domain.Values, trigger domain.ValidationTrigger) string {
	start := time.Now()
	msg, err := s.ValidateField(ctx, name, value, all)
	committed := err == nil && s.finish(name, seq, msg)
	if !committed {
		s.logger.Debug("Validation superseded", "field", name, "seq", seq)
	}

	s.sink.validated(ctx, &domain.ValidationEvent{
		Field:    name,
		Trigger:  trigger,
		Error:    msg,
		Stale:    !committed,
		Duration: time.Since(start),
	})
	return msg
}

// finish commits a single-field result if seq is still current.
func (s *Scheduler) finish(name string, seq uint64, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.base.Err() != nil || s.seq[name] != seq {
		return false
	}
	if t, ok := s.tasks[name]; ok && t.seq == seq {
		delete(s.tasks, name)
	}
	s.sink.commitErrors(map[string]string{name: msg})
	return true
}

// Begin starts a generation for each name (superseding pending work) and
// returns the tokens to pass to CommitAll.
func (s *Scheduler) Begin(names []string) map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := make(map[string]uint64, len(names))
	for _, name := range names {
		tokens[name] = s.bumpLocked(name)
	}
	return tokens
}

// CommitAll writes the results of a full-form pass. Fields whose token is no
// longer current are skipped; results lacks passing fields, which are
// cleared. It returns the names that were written.
func (s *Scheduler) CommitAll(tokens map[string]uint64, results map[string]string) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := make(map[string]bool, len(tokens))
	if s.base.Err() != nil {
		return written
	}

	current := make(map[string]string, len(tokens))
	for name, seq := range tokens {
		if s.seq[name] != seq {
			continue
		}
		current[name] = results[name]
		written[name] = true
	}
	if len(current) > 0 {
		s.sink.commitErrors(current)
	}
	return written
}

// Invalidate supersedes any in-flight or pending validation of the names.
func (s *Scheduler) Invalidate(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		s.bumpLocked(name)
	}
}

// Pending returns the number of debounced validations not yet committed.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels all pending work. Results still in flight are dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stop()
	for name, t := range s.tasks {
		t.timer.Stop()
		t.cancel()
		delete(s.tasks, name)
	}
}
