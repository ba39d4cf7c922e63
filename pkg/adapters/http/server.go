package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/formwork"
	"github.com/aretw0/formwork/internal/logging"
	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Submitter returns the submit handler for a definition. A nil handler
// makes submission a validation-only dry run.
type Submitter func(schema string) domain.SubmitFunc

// Server serves the sessions of a Manager.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	submitter Submitter
	metrics   http.Handler
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithSubmitter sets the submit handlers.
func WithSubmitter(s Submitter) Option {
	return func(srv *Server) {
		srv.submitter = s
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(srv *Server) {
		srv.metrics = h
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(srv *Server) {
		srv.logger = logger
	}
}

// NewServer creates a server over mgr.
func NewServer(mgr *session.Manager, opts ...Option) *Server {
	srv := &Server{
		Sessions: mgr,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.Streams.logger = srv.logger
	mgr.OnDiscard(srv.Streams.CloseSession)
	return srv
}

// NewHandler is NewServer followed by Routes.
func NewHandler(mgr *session.Manager, opts ...Option) http.Handler {
	return NewServer(mgr, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.GetHealth)
	r.Get("/schemas", s.ListSchemas)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/forms", func(r chi.Router) {
		r.Post("/", s.CreateForm)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetForm)
			r.Delete("/", s.DeleteForm)
			r.Post("/change", s.Change)
			r.Post("/blur", s.Blur)
			r.Post("/submit", s.Submit)
			r.Post("/reset", s.Reset)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -- Payloads --

// FormResponse is the body returned by every form route.
type FormResponse struct {
	ID            string            `json:"id"`
	Schema        string            `json:"schema"`
	State         domain.State      `json:"state"`
	VisibleErrors map[string]string `json:"visible_errors"`
	IsValid       bool              `json:"is_valid"`
}

// SubmitResponse adds the submission outcome.
type SubmitResponse struct {
	FormResponse
	Outcome domain.SubmitOutcome `json:"outcome"`
}

// SchemaInfo describes a served definition.
type SchemaInfo struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

type createRequest struct {
	Schema string        `json:"schema"`
	Values domain.Values `json:"values"`
}

type resetRequest struct {
	Values domain.Values `json:"values"`
}

func newFormResponse(sess *session.Session) FormResponse {
	st := sess.Form.State()
	return FormResponse{
		ID:            sess.ID,
		Schema:        sess.Schema,
		State:         st,
		VisibleErrors: st.VisibleErrors(),
		IsValid:       st.IsValid(),
	}
}

// -- Handlers --

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(formwork.Version),
	})
}

// ListSchemas handles GET /schemas.
func (s *Server) ListSchemas(w http.ResponseWriter, r *http.Request) {
	names := s.Sessions.Definitions()
	out := make([]SchemaInfo, 0, len(names))
	for _, name := range names {
		def, err := s.Sessions.Definition(name)
		if err != nil {
			continue
		}
		out = append(out, SchemaInfo{Name: name, Fields: def.FieldNames()})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// CreateForm handles POST /forms.
func (s *Server) CreateForm(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	sess, err := s.Sessions.Create(body.Schema, body.Values)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.logger.Info("Form created", "session_id", sess.ID, "schema", sess.Schema)
	s.writeJSON(w, http.StatusCreated, newFormResponse(sess))
}

// GetForm handles GET /forms/{id}.
func (s *Server) GetForm(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(_ context.Context, sess *session.Session) (any, error) {
		return newFormResponse(sess), nil
	})
}

// DeleteForm handles DELETE /forms/{id}.
func (s *Server) DeleteForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Discard(id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Change handles POST /forms/{id}/change with an input event body.
func (s *Server) Change(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	s.withSession(w, r, func(_ context.Context, sess *session.Session) (any, error) {
		sess.Form.HandleChange(ev)
		return newFormResponse(sess), nil
	})
}

// Blur handles POST /forms/{id}/blur. It answers once the field's rules
// have run.
func (s *Server) Blur(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.decodeEvent(w, r)
	if !ok {
		return
	}
	s.withSession(w, r, func(ctx context.Context, sess *session.Session) (any, error) {
		sess.Form.HandleBlur(ctx, ev)
		return newFormResponse(sess), nil
	})
}

// Submit handles POST /forms/{id}/submit. A blocked or failed submission
// answers 422 with the form state.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	s.withSessionStatus(w, r, func(ctx context.Context, sess *session.Session) (int, any, error) {
		var handler domain.SubmitFunc
		if s.submitter != nil {
			handler = s.submitter(sess.Schema)
		}
		res, err := sess.Form.Submit(ctx, handler)
		if err != nil {
			return 0, nil, err
		}
		status := http.StatusOK
		if res.Outcome != domain.SubmitSucceeded {
			status = http.StatusUnprocessableEntity
		}
		s.logger.Info("Form submitted", "session_id", sess.ID, "outcome", res.Outcome)
		return status, SubmitResponse{FormResponse: newFormResponse(sess), Outcome: res.Outcome}, nil
	})
}

// Reset handles POST /forms/{id}/reset. An empty body restores the initial
// values.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	var body resetRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	s.withSession(w, r, func(_ context.Context, sess *session.Session) (any, error) {
		sess.Form.ResetForm(body.Values)
		return newFormResponse(sess), nil
	})
}

// -- Helpers --

func (s *Server) decodeEvent(w http.ResponseWriter, r *http.Request) (domain.Event, bool) {
	var ev domain.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return ev, false
	}
	if ev.Name == "" {
		s.writeError(w, http.StatusBadRequest, "Event name is required", nil)
		return ev, false
	}
	return ev, true
}

func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(context.Context, *session.Session) (any, error)) {
	s.withSessionStatus(w, r, func(ctx context.Context, sess *session.Session) (int, any, error) {
		body, err := fn(ctx, sess)
		return http.StatusOK, body, err
	})
}

func (s *Server) withSessionStatus(w http.ResponseWriter, r *http.Request, fn func(context.Context, *session.Session) (int, any, error)) {
	var (
		status int
		body   any
	)
	err := s.Sessions.WithLock(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, sess *session.Session) error {
		var err error
		status, body, err = fn(ctx, sess)
		return err
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrFormNotFound):
		s.writeError(w, http.StatusNotFound, "Form not found", nil)
	case errors.Is(err, domain.ErrUnknownSchema):
		s.writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusServiceUnavailable, "Request interrupted", err)
	default:
		s.writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		s.logger.Warn(msg, "status", status, "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
