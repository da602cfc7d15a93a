package call

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/kresha325/FootballPro-sub001/internal/signaling"
)

// Session represents one call attempt between the local participant and one
// remote participant. It owns the call's media handle and negotiator and is
// the sole mutator of its state; the peer connection and media handle are
// always torn down together, exactly once.
type Session struct {
	sig           Signaler
	media         Media
	newNegotiator func() (Negotiator, error)

	localName  string
	remoteID   string
	remoteName string
	direction  Direction

	mu           sync.Mutex
	state        State
	stream       MediaStream
	neg          Negotiator
	pendingOffer *webrtc.SessionDescription

	// candidates received before a negotiator exists (incoming calls
	// still ringing); replayed after answer
	early []webrtc.ICECandidateInit

	// cancels the candidate relay and capture pump on teardown
	ctx    context.Context
	cancel context.CancelFunc

	done   chan struct{}
	notify func(*Session, State)
}

func newOutgoingSession(cfg Config, remoteID string, notify func(*Session, State)) *Session {
	s := &Session{
		sig:           cfg.Signaler,
		media:         cfg.Media,
		newNegotiator: cfg.NewNegotiator,
		localName:     cfg.DisplayName,
		remoteID:      remoteID,
		remoteName:    remoteID,
		direction:     DirectionOutgoing,
		state:         StateIdle,
		done:          make(chan struct{}),
		notify:        notify,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

func newIncomingSession(cfg Config, msg signaling.Message, notify func(*Session, State)) *Session {
	remoteName := msg.DisplayName
	if remoteName == "" {
		remoteName = msg.From
	}
	s := &Session{
		sig:           cfg.Signaler,
		media:         cfg.Media,
		newNegotiator: cfg.NewNegotiator,
		localName:     cfg.DisplayName,
		remoteID:      msg.From,
		remoteName:    remoteName,
		direction:     DirectionIncoming,
		state:         StateIncomingRinging,
		pendingOffer:  msg.Description,
		done:          make(chan struct{}),
		notify:        notify,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// start acquires local media, creates the offer and sends the call request.
// Any failure tears the session down with nothing left acquired.
func (s *Session) start() error {
	stream, err := s.media.Acquire()
	if err != nil {
		s.teardown(false)
		return err
	}
	neg, err := s.newNegotiator()
	if err != nil {
		stream.Release()
		s.teardown(false)
		return err
	}
	offer, err := neg.CreateOffer()
	if err != nil {
		stream.Release()
		neg.Close()
		s.teardown(false)
		return err
	}

	s.mu.Lock()
	if s.state == StateEnded { // hung up while we were setting up
		s.mu.Unlock()
		stream.Release()
		neg.Close()
		return fmt.Errorf("call ended before it started")
	}
	s.stream = stream
	s.neg = neg
	s.state = StateOutgoing
	s.mu.Unlock()

	neg.OnRemoteStream(s.onRemoteStream)
	s.notifyState(StateOutgoing)

	if err := s.sig.Send(signaling.NewCallRequest(s.remoteID, s.localName, offer)); err != nil {
		s.teardown(false)
		return err
	}
	go s.relayCandidates(neg)
	return nil
}

// Answer accepts a ringing incoming call: acquires local media, creates the
// answer from the stored offer and sends call-accepted. On media failure the
// session ends and only a local error is surfaced; the caller keeps ringing
// until they hang up (no timeout, deliberately).
func (s *Session) Answer() error {
	s.mu.Lock()
	if s.state != StateIncomingRinging {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("no ringing call to answer (state %s)", st)
	}
	offer := s.pendingOffer
	s.mu.Unlock()

	stream, err := s.media.Acquire()
	if err != nil {
		s.teardown(false)
		return err
	}
	neg, err := s.newNegotiator()
	if err != nil {
		stream.Release()
		s.teardown(false)
		return err
	}
	answer, err := neg.CreateAnswer(*offer)
	if err != nil {
		stream.Release()
		neg.Close()
		s.teardown(false)
		return err
	}

	s.mu.Lock()
	if s.state == StateEnded { // remote hung up while we were answering
		s.mu.Unlock()
		stream.Release()
		neg.Close()
		return fmt.Errorf("call ended before it was answered")
	}
	s.stream = stream
	s.neg = neg
	s.state = StateConnecting
	buffered := s.early
	s.early = nil
	s.mu.Unlock()

	neg.OnRemoteStream(s.onRemoteStream)
	for _, c := range buffered {
		neg.ApplyRemoteCandidate(c)
	}
	s.notifyState(StateConnecting)

	if err := s.sig.Send(signaling.NewCallAccepted(s.remoteID, answer)); err != nil {
		s.teardown(false)
		return err
	}
	go s.relayCandidates(neg)
	return nil
}

// Decline rejects a ringing incoming call without ever acquiring media. The
// caller's side stops ringing on the resulting call-ended; the wire does not
// distinguish a decline from a hangup.
func (s *Session) Decline() error {
	s.mu.Lock()
	if s.state != StateIncomingRinging {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("no ringing call to decline (state %s)", st)
	}
	s.mu.Unlock()

	s.teardown(true)
	return nil
}

// HangUp ends the call from the local side. Idempotent: the second call is a
// no-op and the remote peer sees at most one call-ended.
func (s *Session) HangUp() {
	s.teardown(true)
}

// handleAccepted applies the callee's answer on the offering side.
func (s *Session) handleAccepted(answer webrtc.SessionDescription) {
	s.mu.Lock()
	if s.state != StateOutgoing {
		st := s.state
		s.mu.Unlock()
		log.Printf("ignoring call-accepted in state %s", st)
		return
	}
	neg := s.neg
	s.state = StateConnecting
	s.mu.Unlock()
	s.notifyState(StateConnecting)

	if err := neg.ApplyRemoteAnswer(answer); err != nil {
		log.Printf("negotiation failed: %v", err)
		s.teardown(true)
	}
}

// handleCandidate forwards one remote candidate to the negotiator, buffering
// it if the call is still ringing and no negotiator exists yet. Candidates
// for an ended session are discarded.
func (s *Session) handleCandidate(c webrtc.ICECandidateInit) {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return
	}
	neg := s.neg
	if neg == nil {
		s.early = append(s.early, c)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	neg.ApplyRemoteCandidate(c)
}

// handleRemoteEnded tears down after the remote peer signalled call-ended.
// Nothing is sent back.
func (s *Session) handleRemoteEnded() {
	s.teardown(false)
}

// onRemoteStream fires when the remote participant's media arrives: the call
// is connected, and microphone capture starts flowing to the peer.
func (s *Session) onRemoteStream() {
	s.mu.Lock()
	if s.state != StateConnecting && s.state != StateOutgoing {
		s.mu.Unlock()
		return
	}
	s.state = StateConnected
	stream, neg := s.stream, s.neg
	ctx := s.ctx
	s.mu.Unlock()

	s.notifyState(StateConnected)
	go func() {
		if err := stream.Pump(ctx, neg.Track()); err != nil {
			log.Printf("error with capture device: %v", err)
		}
	}()
}

// teardown moves the session to Ended and releases the media handle and
// peer connection together. Only the first call has any effect; sendEnded
// controls whether the remote peer is told (local hangup/decline yes,
// reacting to a remote call-ended no).
func (s *Session) teardown(sendEnded bool) {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return
	}
	s.state = StateEnded
	stream, neg := s.stream, s.neg
	s.stream = nil
	s.neg = nil
	s.mu.Unlock()

	if sendEnded {
		if err := s.sig.Send(signaling.NewCallEnded(s.remoteID)); err != nil {
			log.Printf("error sending call-ended: %v", err)
		}
	}
	s.cancel()
	if stream != nil {
		stream.Release()
	}
	if neg != nil {
		neg.Close()
	}
	close(s.done)
	s.notifyState(StateEnded)
}

// relayCandidates sends locally gathered candidates to the remote
// participant as they trickle in, until gathering completes or the session
// ends. Send failures are logged; connectivity can succeed via other
// candidates.
func (s *Session) relayCandidates(neg Negotiator) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case c, ok := <-neg.Candidates():
			if !ok {
				log.Println("ice gathering completed")
				return
			}
			if err := s.sig.Send(signaling.NewICECandidate(s.remoteID, c)); err != nil {
				log.Printf("error relaying ice candidate: %v", err)
			}
		}
	}
}

func (s *Session) notifyState(st State) {
	if s.notify != nil {
		s.notify(s, st)
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ended reports whether the session has reached its terminal state.
func (s *Session) Ended() bool {
	return s.State() == StateEnded
}

// Done is closed when the session ends, however it ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// RemoteID is the participant id of the other side.
func (s *Session) RemoteID() string {
	return s.remoteID
}

// RemoteName is the display name of the other side (incoming calls carry the
// caller's name; otherwise it falls back to the participant id).
func (s *Session) RemoteName() string {
	return s.remoteName
}

// Direction reports which side initiated this session.
func (s *Session) Direction() Direction {
	return s.direction
}
