// package rtc wraps pion webrtc, owning one peer connection's
// offer/answer/ICE lifecycle for a single call.
package rtc

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/kresha325/FootballPro-sub001/internal/media"
)

// ErrNegotiation is returned when a remote description is applied while the
// connection is not in a state expecting it (never offered, or already
// answered). This is reported to the caller, not retried.
var ErrNegotiation = errors.New("peer connection not expecting this description")

var opusCodec = webrtc.RTPCodecCapability{
	MimeType:     webrtc.MimeTypeOpus,
	ClockRate:    media.SampleRate,
	Channels:     media.NumChannels,
	SDPFmtpLine:  "",
	RTCPFeedback: nil,
}

// Negotiator manages exactly one peer connection. It creates the local
// description, applies the remote one, exchanges ICE candidates and surfaces
// the remote media stream. Candidates arriving before the remote description
// is set are buffered and replayed once it is, so out-of-order signaling
// never aborts a call.
type Negotiator struct {
	pc    *webrtc.PeerConnection
	track *webrtc.TrackLocalStaticSample

	// carries this client's ICE candidates as they're gathered; closed
	// when gathering completes
	candidates chan webrtc.ICECandidateInit

	connected chan struct{}
	connOnce  sync.Once

	mu        sync.Mutex
	pending   []webrtc.ICECandidateInit
	remoteSet bool
	closed    bool
	onRemote  func()
	onTrack   func(*webrtc.TrackRemote)

	remoteOnce sync.Once
}

// NewNegotiator creates a peer connection configured for bidirectional opus
// audio, with the given STUN server (empty disables STUN, for loopback use).
// The connection begins emitting gathered candidates on Candidates() as soon
// as a local description is set.
func NewNegotiator(stunServer, trackID string) (*Negotiator, error) {
	pc, err := newPeerConnection(stunServer)
	if err != nil {
		return nil, fmt.Errorf("error creating peer connection: %w", err)
	}
	track, err := createAudioTrack(pc, trackID)
	if err != nil {
		closePC(pc)
		return nil, fmt.Errorf("error creating audio track: %w", err)
	}

	n := &Negotiator{
		pc:         pc,
		track:      track,
		candidates: make(chan webrtc.ICECandidateInit, 15), // 15 max ice candidates should be enough?
		connected:  make(chan struct{}),
	}
	pc.OnICECandidate(n.onICECandidate)
	pc.OnConnectionStateChange(n.onConnectionStateChange)
	// the negotiator owns the peer connection's only OnTrack registration;
	// pion keeps just the last handler set, so everything that needs the
	// remote track fans out from here
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		n.handleRemoteTrack(track)
	})
	return n, nil
}

// CreateOffer generates the local offer and starts ICE gathering.
func (n *Negotiator) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := n.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("error creating offer: %w", err)
	}
	// starts ICE gathering and UDP listeners
	if err = n.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("error setting local description: %w", err)
	}
	return *n.pc.LocalDescription(), nil
}

// CreateAnswer applies the caller's offer as the remote description,
// generates the local answer and starts ICE gathering. Any candidates
// buffered before the offer arrived are applied.
func (n *Negotiator) CreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := n.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("error setting remote description: %w", err)
	}
	n.flushPending()

	answer, err := n.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("error creating answer: %w", err)
	}
	// starts ICE gathering and UDP listeners
	if err = n.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("error setting local description: %w", err)
	}
	return *n.pc.LocalDescription(), nil
}

// ApplyRemoteAnswer applies the answer received by the offering side.
// Returns ErrNegotiation if no offer is outstanding.
func (n *Negotiator) ApplyRemoteAnswer(answer webrtc.SessionDescription) error {
	if n.pc.SignalingState() != webrtc.SignalingStateHaveLocalOffer {
		return fmt.Errorf("%w (state %s)", ErrNegotiation, n.pc.SignalingState())
	}
	if err := n.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("error setting remote description: %w", err)
	}
	n.flushPending()
	return nil
}

// ApplyRemoteCandidate adds one remote ICE candidate. Candidates arriving
// before the remote description are buffered. A bad candidate is logged and
// dropped; connectivity can still succeed via the others.
func (n *Negotiator) ApplyRemoteCandidate(c webrtc.ICECandidateInit) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	if !n.remoteSet {
		n.pending = append(n.pending, c)
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	if err := n.pc.AddICECandidate(c); err != nil {
		log.Printf("dropping unusable ice candidate: %v", err)
	}
}

// flushPending marks the remote description as set and applies candidates
// buffered before it arrived.
func (n *Negotiator) flushPending() {
	n.mu.Lock()
	n.remoteSet = true
	buffered := n.pending
	n.pending = nil
	n.mu.Unlock()

	for _, c := range buffered {
		if err := n.pc.AddICECandidate(c); err != nil {
			log.Printf("dropping buffered ice candidate: %v", err)
		}
	}
}

// Candidates returns the channel of locally gathered candidates to relay to
// the remote participant. It is closed when gathering completes.
func (n *Negotiator) Candidates() <-chan webrtc.ICECandidateInit {
	return n.candidates
}

// Connected is closed once the peer connection reaches the connected state.
func (n *Negotiator) Connected() <-chan struct{} {
	return n.connected
}

// OnRemoteStream registers fn to run once, when the remote participant's
// media first arrives. This is the point at which the call is usable.
func (n *Negotiator) OnRemoteStream(fn func()) {
	n.mu.Lock()
	n.onRemote = fn
	n.mu.Unlock()
}

// OnRemoteTrack registers the consumer of the remote participant's track,
// typically speaker playback. fn runs on the track's delivery goroutine and
// may block for the track's lifetime; the stream notification has already
// fired by then.
func (n *Negotiator) OnRemoteTrack(fn func(*webrtc.TrackRemote)) {
	n.mu.Lock()
	n.onTrack = fn
	n.mu.Unlock()
}

// Track returns the local track that captured audio is written to.
func (n *Negotiator) Track() *webrtc.TrackLocalStaticSample {
	return n.track
}

// PC exposes the underlying peer connection for playback wiring.
func (n *Negotiator) PC() *webrtc.PeerConnection {
	return n.pc
}

// Close closes the peer connection. Idempotent.
func (n *Negotiator) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	closePC(n.pc)
}

func (n *Negotiator) handleRemoteTrack(track *webrtc.TrackRemote) {
	n.fireRemoteStream()
	n.mu.Lock()
	fn := n.onTrack
	n.mu.Unlock()
	if fn != nil {
		fn(track)
	}
}

func (n *Negotiator) fireRemoteStream() {
	n.remoteOnce.Do(func() {
		n.mu.Lock()
		fn := n.onRemote
		n.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

func (n *Negotiator) onICECandidate(candidate *webrtc.ICECandidate) {
	if candidate == nil {
		close(n.candidates)
		log.Println("ice gathering completed")
		return
	}
	select {
	case n.candidates <- candidate.ToJSON():
	default:
		log.Println("candidate channel full, dropping candidate")
	}
}

func (n *Negotiator) onConnectionStateChange(state webrtc.PeerConnectionState) {
	log.Printf("peer connection state has changed: %s", state)
	if state == webrtc.PeerConnectionStateConnected {
		n.connOnce.Do(func() {
			close(n.connected)
		})
	}
}

// newPeerConnection creates a PeerConnection configured with the Opus audio codec.
// It sets the STUN server and configures the MTU to avoid packet read underruns.
func newPeerConnection(stunServer string) (*webrtc.PeerConnection, error) {
	mediaEngine := &webrtc.MediaEngine{}
	codecParams := webrtc.RTPCodecParameters{
		RTPCodecCapability: opusCodec,
		PayloadType:        111,
	}
	if err := mediaEngine.RegisterCodec(codecParams, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("error registering codec: %w", err)
	}

	// not sure if this should be avoided but this prevents packet size overruns
	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetReceiveMTU(3_000)

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithSettingEngine(settingEngine),
	)
	config := webrtc.Configuration{}
	if stunServer != "" {
		config.ICEServers = []webrtc.ICEServer{
			{URLs: []string{stunServer}},
		}
	}
	return api.NewPeerConnection(config)
}

// createAudioTrack configures a PeerConnection with a bidirectional transceiver and creates
// an Opus audio TrackLocalStaticSample, which is returned, to write captured audio to.
func createAudioTrack(pc *webrtc.PeerConnection, trackID string) (*webrtc.TrackLocalStaticSample, error) {
	audioTrsv, err := pc.AddTransceiverFromKind(
		webrtc.RTPCodecTypeAudio,
		webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionSendrecv,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error adding transceiver: %w", err)
	}

	captureTrack, err := webrtc.NewTrackLocalStaticSample(
		opusCodec,
		"captureTrack",
		"captureTrack"+trackID,
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing capture track: %w", err)
	}
	if err = audioTrsv.Sender().ReplaceTrack(captureTrack); err != nil {
		return nil, fmt.Errorf("error attaching capture track: %w", err)
	}
	return captureTrack, nil
}

func closePC(pc *webrtc.PeerConnection) {
	if err := pc.Close(); err != nil {
		log.Printf("cannot close peer connection: %v", err)
	}
}
