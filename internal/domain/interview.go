package domain

import "time"

// InterviewStatus is the lifecycle of an interview record.
type InterviewStatus string

const (
	InterviewScheduled InterviewStatus = "scheduled"
	InterviewActive    InterviewStatus = "active"
	InterviewEnded     InterviewStatus = "ended"
)

// Interview is the session metadata loaded from the interview service
// before joining a room. Storage of these records is out of scope; the
// agent only validates and activates them.
type Interview struct {
	SessionID   string          `json:"sessionId"`
	Title       string          `json:"title"`
	Status      InterviewStatus `json:"status"`
	ScheduledAt time.Time       `json:"scheduledAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
}

// ICEServer holds STUN/TURN server configuration for NAT traversal.
type ICEServer struct {
	URL        string `json:"url"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}
