package domain

import "context"

// InterviewAPI validates and activates interview records before a room
// visit. It is a boundary to an external subsystem; only these two calls
// are consumed here.
type InterviewAPI interface {
	Fetch(ctx context.Context, sessionID string) (*Interview, error)
	Start(ctx context.Context, sessionID string) error
}

// Signaler manages the WebSocket signaling connection to the relay.
type Signaler interface {
	Connect(ctx context.Context) error
	SendOffer(sdp SDPPayload)
	SendAnswer(sdp SDPPayload)
	SendICECandidate(candidate ICECandidatePayload)
	SendChat(msg ChatPayload)
	SendReady()
	Close()
}

// Handler receives signaling events. The relay guarantees per-room order
// within one connection, but not across event types; consumers must
// tolerate a candidate arriving before its offer or answer.
type Handler interface {
	OnJoined()
	OnPeerJoined()
	OnPeerLeft()
	OnOffer(sdp SDPPayload)
	OnAnswer(sdp SDPPayload)
	OnRemoteICECandidate(candidate ICECandidatePayload)
	OnChat(msg ChatPayload)
	OnCandidateReady()
	OnSessionEnded()
	OnTransportError(err *TransportError)
}

// SessionState is the lifecycle state of a peer session.
type SessionState string

const (
	StateIdle         SessionState = "idle"
	StateConnecting   SessionState = "connecting"
	StateConnected    SessionState = "connected"
	StateReconnecting SessionState = "reconnecting"
	StateFailed       SessionState = "failed"
	StateClosed       SessionState = "closed"
)

// Terminal reports whether no further transitions can occur.
func (s SessionState) Terminal() bool {
	return s == StateFailed || s == StateClosed
}

// SessionEventKind discriminates entries on the session event stream.
type SessionEventKind string

const (
	// SessionStateChanged reports a lifecycle transition; State is set.
	SessionStateChanged SessionEventKind = "state-changed"
	// SessionLocalCandidate carries a locally gathered ICE candidate
	// that must be forwarded to the remote side.
	SessionLocalCandidate SessionEventKind = "local-candidate"
	// SessionRemoteTrack reports that a remote media track arrived.
	SessionRemoteTrack SessionEventKind = "remote-track"
	// SessionRenegotiationNeeded asks the room controller to run a new
	// offer/answer round (e.g. a track kind was added after negotiation).
	SessionRenegotiationNeeded SessionEventKind = "renegotiation-needed"
	// SessionErrored carries a classified, non-fatal or fatal error.
	SessionErrored SessionEventKind = "errored"
)

// SessionEvent is one entry on the peer session's outbound event stream.
type SessionEvent struct {
	Kind      SessionEventKind
	State     SessionState
	Candidate ICECandidatePayload
	Track     RemoteTrack
	Err       error
}

// RemoteTrack is a read-only view of a track supplied by the remote peer.
type RemoteTrack struct {
	ID       string
	StreamID string
	Kind     string
}

// PeerSession manages one peer connection. Implemented by
// internal/session, mocked by the room controller tests.
type PeerSession interface {
	Initialize(ctx context.Context) error
	CreateOffer() (SDPPayload, error)
	HandleOffer(sdp SDPPayload) (SDPPayload, error)
	HandleAnswer(sdp SDPPayload) error
	HandleRemoteCandidate(candidate ICECandidatePayload)
	SetAudioEnabled(enabled bool) error
	SetVideoEnabled(enabled bool) error
	SampleQuality() (QualitySample, bool)
	ConnectionType() string
	State() SessionState
	Events() <-chan SessionEvent
	Close()
}
