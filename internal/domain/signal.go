package domain

import "encoding/json"

// Signaling event names, shared by the agent client and the relay.
const (
	EventJoinRoom       = "join-room"
	EventJoined         = "joined"
	EventPeerJoined     = "peer-joined"
	EventPeerLeft       = "peer-left"
	EventOffer          = "offer"
	EventAnswer         = "answer"
	EventICECandidate   = "ice-candidate"
	EventChatMessage    = "chat-message"
	EventCandidateReady = "candidate-ready"
	EventSessionEnded   = "session-ended"
	EventError          = "error"
)

// Envelope is the JSON frame exchanged over the signaling WebSocket.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload is sent by a client immediately after connecting.
type JoinPayload struct {
	SessionID string `json:"sessionId"`
	Role      Role   `json:"role"`
}

// SDPPayload is the JSON structure for SDP offer/answer messages.
type SDPPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// ICECandidatePayload is the JSON structure for ICE candidate messages.
type ICECandidatePayload struct {
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdpMid"`
	SDPMLineIndex int    `json:"sdpMLineIndex"`
}

// ChatPayload carries one chat line between the two sides.
type ChatPayload struct {
	Sender    string `json:"sender"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// ReadyPayload signals the candidate is ready to receive an offer.
type ReadyPayload struct {
	SessionID string `json:"sessionId"`
}

// ErrorPayload is sent by the relay when it rejects a request.
type ErrorPayload struct {
	Reason string `json:"reason"`
}
