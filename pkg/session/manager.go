package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/formwork"
	"github.com/aretw0/formwork/internal/logging"
	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/schema"
	"github.com/google/uuid"
)

// Session is one open form.
type Session struct {
	ID        string
	Schema    string
	Form      *formwork.Form
	CreatedAt time.Time

	lastUsed time.Time
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager creates, serves and discards sessions.
type Manager struct {
	defs     map[string]*schema.Definition
	registry *schema.Registry

	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*lockEntry

	defaults  []formwork.Option
	formOpts  []formwork.Option
	onDiscard []func(id string)
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager and its forms.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithFormOptions appends options applied to every form, after the
// definition's own options.
func WithFormOptions(opts ...formwork.Option) Option {
	return func(m *Manager) {
		m.formOpts = append(m.formOpts, opts...)
	}
}

// WithDefaultFormOptions prepends options to every form, beneath the
// definition's own options.
func WithDefaultFormOptions(opts ...formwork.Option) Option {
	return func(m *Manager) {
		m.defaults = append(m.defaults, opts...)
	}
}

// WithOnDiscard registers fn to run after a session is discarded, whether
// explicitly, by Sweep or by Close.
func WithOnDiscard(fn func(id string)) Option {
	return func(m *Manager) {
		m.onDiscard = append(m.onDiscard, fn)
	}
}

// WithClock replaces time.Now, for idle accounting.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a manager serving the given definitions.
func NewManager(defs map[string]*schema.Definition, reg *schema.Registry, opts ...Option) *Manager {
	m := &Manager{
		defs:     defs,
		registry: reg,
		sessions: make(map[string]*Session),
		locks:    make(map[string]*lockEntry),
		logger:   logging.NewNop(), // Default to no-op
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Definitions lists the served definition names.
func (m *Manager) Definitions() []string {
	names := make([]string, 0, len(m.defs))
	for name := range m.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns a served definition.
func (m *Manager) Definition(name string) (*schema.Definition, error) {
	def, ok := m.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSchema, name)
	}
	return def, nil
}

// Create opens a form for the named definition. initial overlays the
// definition's declared initial values.
func (m *Manager) Create(name string, initial domain.Values) (*Session, error) {
	def, err := m.Definition(name)
	if err != nil {
		return nil, err
	}
	s, err := def.Schema(m.registry)
	if err != nil {
		return nil, err
	}

	values := def.InitialValues()
	for k, v := range initial {
		values[k] = v
	}

	id := uuid.NewString()
	opts := append([]formwork.Option(nil), m.defaults...)
	opts = append(opts,
		formwork.WithName(def.Name),
		formwork.WithDefinitionOptions(def.Options),
		formwork.WithLogger(m.logger.With("session_id", id)),
	)
	opts = append(opts, m.formOpts...)

	now := m.now()
	sess := &Session{
		ID:        id,
		Schema:    def.Name,
		Form:      formwork.New(values, s, opts...),
		CreatedAt: now,
		lastUsed:  now,
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.logger.Debug("Session created", "session_id", id, "schema", def.Name)
	return sess, nil
}

// Get returns a session without locking it.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrFormNotFound
	}
	return sess, nil
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock runs fn while holding the session's lock.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context, *Session) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		sess.lastUsed = m.now()
	}
	m.mu.Unlock()
	if !ok {
		return domain.ErrFormNotFound
	}

	return fn(ctx, sess)
}

// Discard closes and forgets a session.
func (m *Manager) Discard(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return domain.ErrFormNotFound
	}
	sess.Form.Close()

	m.mu.Lock()
	hooks := append([](func(string))(nil), m.onDiscard...)
	m.mu.Unlock()
	for _, fn := range hooks {
		fn(id)
	}

	m.logger.Debug("Session discarded", "session_id", id)
	return nil
}

// OnDiscard is WithOnDiscard for an already constructed manager.
func (m *Manager) OnDiscard(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDiscard = append(m.onDiscard, fn)
}

// List returns the open session IDs in lexical order.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sweep discards sessions unused for longer than maxIdle and returns how
// many were removed.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	var expired []string
	for id, sess := range m.sessions {
		if sess.lastUsed.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	n := 0
	for _, id := range expired {
		if m.Discard(id) == nil {
			n++
		}
	}
	if n > 0 {
		m.logger.Info("Expired idle sessions", "count", n)
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(maxIdle)
		}
	}
}

// Close discards every session.
func (m *Manager) Close() {
	for _, id := range m.List() {
		_ = m.Discard(id)
	}
}
