package call

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/kresha325/FootballPro-sub001/internal/signaling"
)

// loopSignaler delivers sent messages synchronously to its peer's handlers,
// stamping From with the sender's name the way the server does. The call
// package never sends while holding its own locks, so synchronous delivery
// is safe and keeps these tests deterministic.
type loopSignaler struct {
	name string
	peer *loopSignaler

	mu       sync.Mutex
	handlers map[signaling.Kind][]signaling.Handler
	sent     []signaling.Message
	sendErr  error
}

func newLoopPair(a, b string) (*loopSignaler, *loopSignaler) {
	sa := &loopSignaler{name: a, handlers: map[signaling.Kind][]signaling.Handler{}}
	sb := &loopSignaler{name: b, handlers: map[signaling.Kind][]signaling.Handler{}}
	sa.peer, sb.peer = sb, sa
	return sa, sb
}

func (l *loopSignaler) OnMessage(kind signaling.Kind, fn signaling.Handler) {
	l.mu.Lock()
	l.handlers[kind] = append(l.handlers[kind], fn)
	l.mu.Unlock()
}

func (l *loopSignaler) Send(msg signaling.Message) error {
	l.mu.Lock()
	err := l.sendErr
	if err == nil {
		l.sent = append(l.sent, msg)
	}
	l.mu.Unlock()
	if err != nil {
		return err
	}
	msg.From = l.name
	l.peer.deliver(msg)
	return nil
}

// deliver dispatches a message to this side's handlers, as if it arrived
// from the server.
func (l *loopSignaler) deliver(msg signaling.Message) {
	l.mu.Lock()
	fns := make([]signaling.Handler, len(l.handlers[msg.Kind]))
	copy(fns, l.handlers[msg.Kind])
	l.mu.Unlock()
	for _, fn := range fns {
		fn(msg)
	}
}

func (l *loopSignaler) sentCount(kind signaling.Kind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.sent {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

type fakeMedia struct {
	mu         sync.Mutex
	acquires   int
	releases   int
	acquireErr error
}

func (f *fakeMedia) Acquire() (MediaStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.acquires++
	return &fakeStream{media: f}, nil
}

func (f *fakeMedia) counts() (acquires, releases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquires, f.releases
}

type fakeStream struct {
	media *fakeMedia
}

func (f *fakeStream) Pump(ctx context.Context, _ *webrtc.TrackLocalStaticSample) error {
	<-ctx.Done()
	return nil
}

func (f *fakeStream) Release() {
	f.media.mu.Lock()
	f.media.releases++
	f.media.mu.Unlock()
}

type fakeNegotiator struct {
	name string

	mu        sync.Mutex
	applied   []webrtc.ICECandidateInit
	closes    int
	answerErr error
	onRemote  func()

	candidates chan webrtc.ICECandidateInit
}

func newFakeNegotiator(name string) *fakeNegotiator {
	return &fakeNegotiator{name: name, candidates: make(chan webrtc.ICECandidateInit, 8)}
}

func (f *fakeNegotiator) CreateOffer() (webrtc.SessionDescription, error) {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer-" + f.name}, nil
}

func (f *fakeNegotiator) CreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if offer.SDP == "" {
		return webrtc.SessionDescription{}, errors.New("empty offer")
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-" + f.name}, nil
}

func (f *fakeNegotiator) ApplyRemoteAnswer(webrtc.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answerErr
}

func (f *fakeNegotiator) ApplyRemoteCandidate(c webrtc.ICECandidateInit) {
	f.mu.Lock()
	f.applied = append(f.applied, c)
	f.mu.Unlock()
}

func (f *fakeNegotiator) Candidates() <-chan webrtc.ICECandidateInit { return f.candidates }

func (f *fakeNegotiator) OnRemoteStream(fn func()) {
	f.mu.Lock()
	f.onRemote = fn
	f.mu.Unlock()
}

func (f *fakeNegotiator) Track() *webrtc.TrackLocalStaticSample { return nil }

func (f *fakeNegotiator) Close() {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
}

func (f *fakeNegotiator) fireRemoteStream() {
	f.mu.Lock()
	fn := f.onRemote
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeNegotiator) appliedCandidates() []webrtc.ICECandidateInit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]webrtc.ICECandidateInit(nil), f.applied...)
}

func (f *fakeNegotiator) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// peer bundles one side's manager with its fakes for assertions.
type peer struct {
	sig     *loopSignaler
	media   *fakeMedia
	manager *Manager

	mu   sync.Mutex
	negs []*fakeNegotiator
}

func newPeer(name string, sig *loopSignaler) *peer {
	p := &peer{sig: sig, media: &fakeMedia{}}
	p.manager = NewManager(Config{
		DisplayName: name,
		Signaler:    sig,
		Media:       p.media,
		NewNegotiator: func() (Negotiator, error) {
			n := newFakeNegotiator(name)
			p.mu.Lock()
			p.negs = append(p.negs, n)
			p.mu.Unlock()
			return n, nil
		},
	})
	return p
}

func (p *peer) lastNegotiator(t *testing.T) *fakeNegotiator {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.negs) == 0 {
		t.Fatal("no negotiator was created")
	}
	return p.negs[len(p.negs)-1]
}

func newPeerPair() (caller, callee *peer) {
	sa, sb := newLoopPair("alice", "bob")
	return newPeer("alice", sa), newPeer("bob", sb)
}

func TestCallLifecycle(t *testing.T) {
	t.Run("happy path connects both sides", func(t *testing.T) {
		caller, callee := newPeerPair()

		var ringing *Session
		callee.manager.OnIncoming(func(s *Session) { ringing = s })

		out, err := caller.manager.StartCall("bob")
		if err != nil {
			t.Fatalf("StartCall: %v", err)
		}
		if got := out.State(); got != StateOutgoing {
			t.Fatalf("caller state = %s, want %s", got, StateOutgoing)
		}

		if ringing == nil {
			t.Fatal("callee never rang")
		}
		if got := ringing.State(); got != StateIncomingRinging {
			t.Fatalf("callee state = %s, want %s", got, StateIncomingRinging)
		}
		if got := ringing.RemoteName(); got != "alice" {
			t.Fatalf("callee sees caller name %q, want %q", got, "alice")
		}

		if err := ringing.Answer(); err != nil {
			t.Fatalf("Answer: %v", err)
		}
		if got := ringing.State(); got != StateConnecting {
			t.Fatalf("callee state = %s, want %s", got, StateConnecting)
		}
		if got := out.State(); got != StateConnecting {
			t.Fatalf("caller state = %s, want %s", got, StateConnecting)
		}

		caller.lastNegotiator(t).fireRemoteStream()
		callee.lastNegotiator(t).fireRemoteStream()
		if got := out.State(); got != StateConnected {
			t.Fatalf("caller state = %s, want %s", got, StateConnected)
		}
		if got := ringing.State(); got != StateConnected {
			t.Fatalf("callee state = %s, want %s", got, StateConnected)
		}

		out.HangUp()
		<-out.Done()
		<-ringing.Done()

		for name, p := range map[string]*peer{"caller": caller, "callee": callee} {
			acquires, releases := p.media.counts()
			if acquires != 1 || releases != 1 {
				t.Errorf("%s media acquires/releases = %d/%d, want 1/1", name, acquires, releases)
			}
			if got := p.lastNegotiator(t).closeCount(); got != 1 {
				t.Errorf("%s negotiator closed %d times, want 1", name, got)
			}
		}
		if got := caller.sig.sentCount(signaling.KindCallEnded); got != 1 {
			t.Errorf("caller sent %d call-ended, want 1", got)
		}
		if got := callee.sig.sentCount(signaling.KindCallEnded); got != 0 {
			t.Errorf("callee sent %d call-ended, want 0", got)
		}
	})

	t.Run("decline never touches media", func(t *testing.T) {
		caller, callee := newPeerPair()

		var ringing *Session
		callee.manager.OnIncoming(func(s *Session) { ringing = s })

		out, err := caller.manager.StartCall("bob")
		if err != nil {
			t.Fatalf("StartCall: %v", err)
		}
		if err := ringing.Decline(); err != nil {
			t.Fatalf("Decline: %v", err)
		}

		<-out.Done()
		if acquires, _ := callee.media.counts(); acquires != 0 {
			t.Errorf("callee acquired media %d times on decline, want 0", acquires)
		}
		acquires, releases := caller.media.counts()
		if acquires != 1 || releases != 1 {
			t.Errorf("caller media acquires/releases = %d/%d, want 1/1", acquires, releases)
		}
		if got := callee.sig.sentCount(signaling.KindCallEnded); got != 1 {
			t.Errorf("callee sent %d call-ended, want 1", got)
		}
	})

	t.Run("hangup is idempotent", func(t *testing.T) {
		caller, callee := newPeerPair()
		callee.manager.OnIncoming(func(*Session) {})

		out, err := caller.manager.StartCall("bob")
		if err != nil {
			t.Fatalf("StartCall: %v", err)
		}

		out.HangUp()
		out.HangUp()
		out.HangUp()

		if got := caller.sig.sentCount(signaling.KindCallEnded); got != 1 {
			t.Errorf("caller sent %d call-ended, want 1", got)
		}
		acquires, releases := caller.media.counts()
		if acquires != releases {
			t.Errorf("caller media acquires/releases = %d/%d after repeated hangup", acquires, releases)
		}
	})

	t.Run("remote hangup while ringing", func(t *testing.T) {
		caller, callee := newPeerPair()

		var ringing *Session
		callee.manager.OnIncoming(func(s *Session) { ringing = s })

		out, err := caller.manager.StartCall("bob")
		if err != nil {
			t.Fatalf("StartCall: %v", err)
		}
		out.HangUp()

		<-ringing.Done()
		if err := ringing.Answer(); err == nil {
			t.Error("Answer after remote hangup should fail")
		}
		if acquires, _ := callee.media.counts(); acquires != 0 {
			t.Errorf("callee acquired media %d times, want 0", acquires)
		}
	})
}

func TestCandidateRouting(t *testing.T) {
	t.Run("candidates buffered while ringing are applied on answer", func(t *testing.T) {
		caller, callee := newPeerPair()

		var ringing *Session
		callee.manager.OnIncoming(func(s *Session) { ringing = s })

		if _, err := caller.manager.StartCall("bob"); err != nil {
			t.Fatalf("StartCall: %v", err)
		}

		early := webrtc.ICECandidateInit{Candidate: "candidate:early"}
		if err := caller.sig.Send(signaling.NewICECandidate("bob", early)); err != nil {
			t.Fatalf("Send: %v", err)
		}

		if err := ringing.Answer(); err != nil {
			t.Fatalf("Answer: %v", err)
		}
		applied := callee.lastNegotiator(t).appliedCandidates()
		if len(applied) != 1 || applied[0].Candidate != early.Candidate {
			t.Fatalf("applied candidates = %v, want the buffered one", applied)
		}
	})

	t.Run("candidates for an ended call are dropped", func(t *testing.T) {
		caller, callee := newPeerPair()

		var ringing *Session
		callee.manager.OnIncoming(func(s *Session) { ringing = s })

		if _, err := caller.manager.StartCall("bob"); err != nil {
			t.Fatalf("StartCall: %v", err)
		}
		ringing.HangUp()

		caller.sig.deliver(signaling.Message{
			Kind:      signaling.KindICECandidate,
			From:      "bob",
			To:        "alice",
			Candidate: &webrtc.ICECandidateInit{Candidate: "candidate:late"},
		})
		// nothing to assert beyond not panicking; the negotiator is gone
	})

	t.Run("messages from a third party are ignored", func(t *testing.T) {
		caller, callee := newPeerPair()
		callee.manager.OnIncoming(func(*Session) {})

		out, err := caller.manager.StartCall("bob")
		if err != nil {
			t.Fatalf("StartCall: %v", err)
		}

		caller.sig.deliver(signaling.Message{Kind: signaling.KindCallEnded, From: "mallory", To: "alice"})
		if out.Ended() {
			t.Error("call-ended from a third party ended the session")
		}
	})
}

func TestBusyBehavior(t *testing.T) {
	t.Run("second outgoing call is rejected", func(t *testing.T) {
		caller, callee := newPeerPair()
		callee.manager.OnIncoming(func(*Session) {})

		if _, err := caller.manager.StartCall("bob"); err != nil {
			t.Fatalf("StartCall: %v", err)
		}
		if _, err := caller.manager.StartCall("bob"); !errors.Is(err, ErrCallInProgress) {
			t.Fatalf("second StartCall error = %v, want ErrCallInProgress", err)
		}
	})

	t.Run("call-request while busy is ignored", func(t *testing.T) {
		caller, callee := newPeerPair()

		rang := 0
		callee.manager.OnIncoming(func(*Session) { rang++ })

		if _, err := caller.manager.StartCall("bob"); err != nil {
			t.Fatalf("StartCall: %v", err)
		}

		offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer-carol"}
		callee.sig.deliver(signaling.Message{
			Kind:        signaling.KindCallRequest,
			From:        "carol",
			To:          "bob",
			Description: &offer,
		})

		if rang != 1 {
			t.Fatalf("callee rang %d times, want 1", rang)
		}
		if got := callee.manager.Current().RemoteID(); got != "alice" {
			t.Fatalf("active call is with %q, want alice", got)
		}
	})

	t.Run("new call allowed after previous ended", func(t *testing.T) {
		caller, callee := newPeerPair()
		callee.manager.OnIncoming(func(*Session) {})

		out, err := caller.manager.StartCall("bob")
		if err != nil {
			t.Fatalf("StartCall: %v", err)
		}
		out.HangUp()

		if _, err := caller.manager.StartCall("bob"); err != nil {
			t.Fatalf("StartCall after hangup: %v", err)
		}
	})
}

func TestFailurePaths(t *testing.T) {
	t.Run("media failure on start leaves nothing acquired", func(t *testing.T) {
		caller, _ := newPeerPair()
		caller.media.acquireErr = errors.New("device unavailable")

		if _, err := caller.manager.StartCall("bob"); err == nil {
			t.Fatal("StartCall should fail when media cannot be acquired")
		}
		if got := caller.sig.sentCount(signaling.KindCallRequest); got != 0 {
			t.Errorf("caller sent %d call-request after media failure, want 0", got)
		}
		if caller.manager.Current() != nil {
			t.Error("a dead session is still current")
		}
	})

	t.Run("media failure on answer keeps caller ringing", func(t *testing.T) {
		caller, callee := newPeerPair()
		callee.media.acquireErr = errors.New("device unavailable")

		var ringing *Session
		callee.manager.OnIncoming(func(s *Session) { ringing = s })

		out, err := caller.manager.StartCall("bob")
		if err != nil {
			t.Fatalf("StartCall: %v", err)
		}
		if err := ringing.Answer(); err == nil {
			t.Fatal("Answer should fail when media cannot be acquired")
		}
		if !ringing.Ended() {
			t.Error("callee session should be ended after answer failure")
		}
		if got := out.State(); got != StateOutgoing {
			t.Errorf("caller state = %s, want still %s", got, StateOutgoing)
		}
		if got := callee.sig.sentCount(signaling.KindCallAccepted); got != 0 {
			t.Errorf("callee sent %d call-accepted, want 0", got)
		}
		if got := callee.sig.sentCount(signaling.KindCallEnded); got != 0 {
			t.Errorf("callee sent %d call-ended, want 0", got)
		}
	})

	t.Run("bad answer tears the call down", func(t *testing.T) {
		caller, callee := newPeerPair()

		var ringing *Session
		callee.manager.OnIncoming(func(s *Session) { ringing = s })

		out, err := caller.manager.StartCall("bob")
		if err != nil {
			t.Fatalf("StartCall: %v", err)
		}
		caller.lastNegotiator(t).answerErr = errors.New("unexpected state")

		if err := ringing.Answer(); err != nil {
			t.Fatalf("Answer: %v", err)
		}

		<-out.Done()
		<-ringing.Done()
		acquires, releases := caller.media.counts()
		if acquires != 1 || releases != 1 {
			t.Errorf("caller media acquires/releases = %d/%d, want 1/1", acquires, releases)
		}
	})

	t.Run("send failure on start releases media", func(t *testing.T) {
		caller, _ := newPeerPair()
		caller.sig.sendErr = errors.New("channel not connected")

		if _, err := caller.manager.StartCall("bob"); err == nil {
			t.Fatal("StartCall should surface the send failure")
		}
		acquires, releases := caller.media.counts()
		if acquires != 1 || releases != 1 {
			t.Errorf("caller media acquires/releases = %d/%d, want 1/1", acquires, releases)
		}
	})
}

func TestStateNotifications(t *testing.T) {
	caller, callee := newPeerPair()

	var mu sync.Mutex
	var callerStates []State
	caller.manager.OnStateChange(func(_ *Session, st State) {
		mu.Lock()
		callerStates = append(callerStates, st)
		mu.Unlock()
	})

	var ringing *Session
	callee.manager.OnIncoming(func(s *Session) { ringing = s })

	out, err := caller.manager.StartCall("bob")
	if err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	if err := ringing.Answer(); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	caller.lastNegotiator(t).fireRemoteStream()
	out.HangUp()

	want := []State{StateOutgoing, StateConnecting, StateConnected, StateEnded}
	mu.Lock()
	defer mu.Unlock()
	if len(callerStates) != len(want) {
		t.Fatalf("caller observed states %v, want %v", callerStates, want)
	}
	for i := range want {
		if callerStates[i] != want[i] {
			t.Fatalf("caller observed states %v, want %v", callerStates, want)
		}
	}
}
