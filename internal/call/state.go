package call

// State is the lifecycle of one call session. A session only moves forward:
// once Ended it stays Ended, and a new call means a new session.
type State int

const (
	// StateIdle is the initial state of an outgoing session before the
	// call request has been sent.
	StateIdle State = iota

	// StateOutgoing means the offer was sent and we await the callee.
	StateOutgoing

	// StateIncomingRinging means an offer arrived and we await the local
	// user's answer or decline. No media has been acquired yet.
	StateIncomingRinging

	// StateConnecting means descriptions are exchanged and ICE is
	// establishing transport.
	StateConnecting

	// StateConnected means the remote stream has arrived.
	StateConnected

	// StateEnded is terminal: the peer connection is closed and the media
	// handle released.
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOutgoing:
		return "outgoing"
	case StateIncomingRinging:
		return "ringing"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// Direction records which side initiated the session.
type Direction int

const (
	DirectionOutgoing Direction = iota
	DirectionIncoming
)

func (d Direction) String() string {
	if d == DirectionIncoming {
		return "incoming"
	}
	return "outgoing"
}
