// package signaling implements the call-control channel between two JonSport
// clients. All connection-setup metadata (offers, answers, ICE candidates,
// call teardown) travels through the jonsport server as Messages, addressed
// by the recipient's participant id (their username).
package signaling

import (
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Kind discriminates the four call-control messages. Dispatch on Kind is
// exhaustive wherever messages are consumed, so a new kind is a
// compile-visible change rather than a silently dropped event.
type Kind string

const (
	// KindCallRequest carries the caller's offer and display name. caller → callee.
	KindCallRequest Kind = "call-request"

	// KindCallAccepted carries the callee's answer. callee → caller.
	KindCallAccepted Kind = "call-accepted"

	// KindICECandidate carries one gathered candidate. either direction.
	KindICECandidate Kind = "ice-candidate"

	// KindCallEnded carries no payload. Sent on hangup and on decline;
	// the wire does not distinguish the two.
	KindCallEnded Kind = "call-ended"
)

// Message is the envelope relayed between two participants. The server
// stamps From with the authenticated sender, so clients never trust a
// self-reported identity.
type Message struct {
	Kind Kind   `json:"kind"`
	From string `json:"from,omitempty"`
	To   string `json:"to"`

	// caller's display name, only meaningful on call-request
	DisplayName string `json:"displayName,omitempty"`

	// exactly one of these is set, depending on Kind
	Description *webrtc.SessionDescription `json:"description,omitempty"`
	Candidate   *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
}

// NewCallRequest addresses an offer to the callee.
func NewCallRequest(to, displayName string, offer webrtc.SessionDescription) Message {
	return Message{Kind: KindCallRequest, To: to, DisplayName: displayName, Description: &offer}
}

// NewCallAccepted addresses an answer back to the caller.
func NewCallAccepted(to string, answer webrtc.SessionDescription) Message {
	return Message{Kind: KindCallAccepted, To: to, Description: &answer}
}

// NewICECandidate addresses one gathered candidate to the remote participant.
func NewICECandidate(to string, c webrtc.ICECandidateInit) Message {
	return Message{Kind: KindICECandidate, To: to, Candidate: &c}
}

// NewCallEnded signals teardown (hangup or decline) to the remote participant.
func NewCallEnded(to string) Message {
	return Message{Kind: KindCallEnded, To: to}
}

// Validate checks that the message is routable and that its payload matches
// its kind. The server drops invalid messages instead of relaying them.
func (m Message) Validate() error {
	if m.To == "" {
		return fmt.Errorf("message has no recipient")
	}
	switch m.Kind {
	case KindCallRequest, KindCallAccepted:
		if m.Description == nil || m.Description.SDP == "" {
			return fmt.Errorf("%s without a session description", m.Kind)
		}
	case KindICECandidate:
		if m.Candidate == nil {
			return fmt.Errorf("ice-candidate without a candidate")
		}
	case KindCallEnded:
		// no payload
	default:
		return fmt.Errorf("unknown message kind %q", m.Kind)
	}
	return nil
}
