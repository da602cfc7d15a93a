// Package call implements the call lifecycle as an explicit state machine
// coordinating media acquisition, webrtc negotiation and the signaling
// channel. It depends on those layers only through the small interfaces in
// types.go.
package call

import (
	"errors"
	"log"
	"sync"

	"github.com/kresha325/FootballPro-sub001/internal/signaling"
)

// ErrCallInProgress is returned by StartCall while another session is
// active. One call at a time; there is no call waiting.
var ErrCallInProgress = errors.New("a call is already in progress")

// Config wires a Manager to its collaborators.
type Config struct {
	// DisplayName is sent with outgoing call requests so the callee's UI
	// can show who is calling.
	DisplayName string

	Signaler Signaler
	Media    Media

	// NewNegotiator creates a fresh peer connection per call.
	NewNegotiator func() (Negotiator, error)
}

// Manager owns at most one active call session and bridges the signaling
// channel to it. Inbound messages for the active session are routed by the
// sender's participant id; call requests from a third party while busy are
// ignored and ring out on the caller's side.
type Manager struct {
	cfg Config

	mu      sync.Mutex
	current *Session

	incomingMu sync.RWMutex
	incoming   []func(*Session)

	stateMu  sync.RWMutex
	stateFns []func(*Session, State)
}

// NewManager creates a Manager and registers its handlers on the signaler.
// The signaler's channel should be connected before calls are placed.
func NewManager(cfg Config) *Manager {
	m := &Manager{cfg: cfg}
	cfg.Signaler.OnMessage(signaling.KindCallRequest, m.handleCallRequest)
	cfg.Signaler.OnMessage(signaling.KindCallAccepted, m.handleCallAccepted)
	cfg.Signaler.OnMessage(signaling.KindICECandidate, m.handleCandidate)
	cfg.Signaler.OnMessage(signaling.KindCallEnded, m.handleCallEnded)
	return m
}

// OnIncoming registers a callback fired for each incoming call-request,
// with the new session already in the ringing state.
func (m *Manager) OnIncoming(fn func(*Session)) {
	m.incomingMu.Lock()
	m.incoming = append(m.incoming, fn)
	m.incomingMu.Unlock()
}

// OnStateChange registers a callback fired on every session state
// transition, for the UI to observe.
func (m *Manager) OnStateChange(fn func(*Session, State)) {
	m.stateMu.Lock()
	m.stateFns = append(m.stateFns, fn)
	m.stateMu.Unlock()
}

// StartCall places an outgoing call to remoteID. On failure the returned
// session is nil and nothing remains acquired.
func (m *Manager) StartCall(remoteID string) (*Session, error) {
	m.mu.Lock()
	if m.current != nil && !m.current.Ended() {
		m.mu.Unlock()
		return nil, ErrCallInProgress
	}
	s := newOutgoingSession(m.cfg, remoteID, m.notifyState)
	m.current = s
	m.mu.Unlock()

	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.Ended() {
		return nil
	}
	return m.current
}

// Close hangs up the active session, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s != nil {
		s.HangUp()
	}
}

func (m *Manager) handleCallRequest(msg signaling.Message) {
	if msg.Description == nil || msg.From == "" {
		log.Printf("dropping malformed call-request from %q", msg.From)
		return
	}

	m.mu.Lock()
	if m.current != nil && !m.current.Ended() {
		m.mu.Unlock()
		log.Printf("ignoring call-request from %s: call in progress", msg.From)
		return
	}
	s := newIncomingSession(m.cfg, msg, m.notifyState)
	m.current = s
	m.mu.Unlock()

	m.incomingMu.RLock()
	handlers := make([]func(*Session), len(m.incoming))
	copy(handlers, m.incoming)
	m.incomingMu.RUnlock()
	for _, fn := range handlers {
		fn(s)
	}
}

func (m *Manager) handleCallAccepted(msg signaling.Message) {
	s := m.sessionFor(msg.From, string(msg.Kind))
	if s == nil {
		return
	}
	if msg.Description == nil {
		log.Printf("dropping malformed call-accepted from %s", msg.From)
		return
	}
	s.handleAccepted(*msg.Description)
}

func (m *Manager) handleCandidate(msg signaling.Message) {
	s := m.sessionFor(msg.From, string(msg.Kind))
	if s == nil {
		return
	}
	if msg.Candidate == nil {
		log.Printf("dropping malformed ice-candidate from %s", msg.From)
		return
	}
	s.handleCandidate(*msg.Candidate)
}

func (m *Manager) handleCallEnded(msg signaling.Message) {
	s := m.sessionFor(msg.From, string(msg.Kind))
	if s == nil {
		return
	}
	s.handleRemoteEnded()
}

// sessionFor returns the active session if it belongs to sender, else nil.
// Messages from anyone but the session's remote participant are dropped.
func (m *Manager) sessionFor(sender, kind string) *Session {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s == nil || s.Ended() {
		log.Printf("ignoring %s from %s: no active call", kind, sender)
		return nil
	}
	if s.RemoteID() != sender {
		log.Printf("ignoring %s from %s: active call is with %s", kind, sender, s.RemoteID())
		return nil
	}
	return s
}

func (m *Manager) notifyState(s *Session, st State) {
	m.stateMu.RLock()
	fns := make([]func(*Session, State), len(m.stateFns))
	copy(fns, m.stateFns)
	m.stateMu.RUnlock()
	for _, fn := range fns {
		fn(s, st)
	}
}
