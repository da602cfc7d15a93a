package call

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/kresha325/FootballPro-sub001/internal/signaling"
)

// Signaler is the only surface the call package needs from the signaling
// layer. The concrete signaling.Client satisfies it; tests use an in-memory
// loopback.
type Signaler interface {
	Send(msg signaling.Message) error
	OnMessage(kind signaling.Kind, fn signaling.Handler)
}

// MediaStream is a live local capture handle. The owning session releases it
// exactly once, on every exit path of a call.
type MediaStream interface {
	// Pump writes captured audio to track until ctx is cancelled.
	Pump(ctx context.Context, track *webrtc.TrackLocalStaticSample) error
	Release()
}

// Media acquires local capture. Acquisition is deferred until the user
// answers an incoming call, so declining never touches the microphone.
type Media interface {
	Acquire() (MediaStream, error)
}

// Negotiator owns one peer connection's offer/answer/ICE lifecycle.
// rtc.Negotiator is the real implementation.
type Negotiator interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error)
	ApplyRemoteAnswer(answer webrtc.SessionDescription) error
	ApplyRemoteCandidate(c webrtc.ICECandidateInit)
	Candidates() <-chan webrtc.ICECandidateInit
	OnRemoteStream(fn func())
	Track() *webrtc.TrackLocalStaticSample
	Close()
}
