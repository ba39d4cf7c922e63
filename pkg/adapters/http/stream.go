package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/formwork"
	"github.com/aretw0/formwork/internal/logging"
	"github.com/aretw0/formwork/pkg/domain"
	"github.com/go-chi/chi/v5"
)

type stream struct {
	ch          chan domain.State
	closed      bool
	unsubscribe func()
}

// StreamManager tracks the SSE connections of each session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[*stream]struct{} // SessionID -> streams
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[*stream]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a stream fed by form's state snapshots. The returned
// func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string, form *formwork.Form) (<-chan domain.State, func()) {
	st := &stream{ch: make(chan domain.State, 16)}

	sm.mu.Lock()
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[*stream]struct{})
	}
	sm.subscribers[sessionID][st] = struct{}{}
	sm.mu.Unlock()

	unsubscribe := form.Subscribe(func(state domain.State) {
		sm.deliver(sessionID, st, state)
	})
	var once sync.Once
	st.unsubscribe = func() { once.Do(unsubscribe) }

	return st.ch, func() {
		st.unsubscribe()
		sm.mu.Lock()
		defer sm.mu.Unlock()
		sm.closeLocked(sessionID, st)
	}
}

func (sm *StreamManager) deliver(sessionID string, st *stream, state domain.State) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if st.closed {
		return
	}
	select {
	case st.ch <- state:
	default:
		// Drop snapshot if channel is full (slow client)
		sm.logger.Warn("SSE: Client buffer full, dropping snapshot", "session_id", sessionID)
	}
}

func (sm *StreamManager) closeLocked(sessionID string, st *stream) {
	if !st.closed {
		st.closed = true
		close(st.ch)
	}
	if subs, ok := sm.subscribers[sessionID]; ok {
		delete(subs, st)
		if len(subs) == 0 {
			delete(sm.subscribers, sessionID)
		}
	}
}

// CloseSession ends every stream of a session and detaches them from the
// form. Clients receive a closed event.
func (sm *StreamManager) CloseSession(sessionID string) {
	sm.mu.Lock()
	var detach []func()
	for st := range sm.subscribers[sessionID] {
		sm.closeLocked(sessionID, st)
		detach = append(detach, st.unsubscribe)
	}
	sm.mu.Unlock()

	for _, fn := range detach {
		fn()
	}
}

// Count returns the number of open streams of a session.
func (sm *StreamManager) Count(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// SubscribeEvents handles GET /forms/{id}/events (SSE). The current state is
// sent first, then every snapshot until the client leaves or the form is
// deleted.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "Streaming not supported", nil)
		return
	}

	id := chi.URLParam(r, "id")
	sess, err := s.Sessions.Get(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	ch, cancel := s.Streams.Subscribe(id, sess.Form)
	defer cancel()

	// A discard between Get and Subscribe ran before this stream existed.
	if _, err := s.Sessions.Get(id); err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to form updates", "session_id", id)
	if err := writeEvent(w, "state", sess.Form.State()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "session_id", id)
			return
		case state, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			if err := writeEvent(w, "state", state); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
