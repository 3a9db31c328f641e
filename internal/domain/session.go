package domain

import "fmt"

// Role identifies which side of the interview this endpoint plays.
// The interviewer is always the offerer; the candidate only answers.
type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
)

// ParseRole validates a role string from config or the wire.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCandidate, RoleInterviewer:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Offerer reports whether this role initiates the offer/answer exchange.
func (r Role) Offerer() bool {
	return r == RoleInterviewer
}

// Other returns the opposite side of the room.
func (r Role) Other() Role {
	if r == RoleInterviewer {
		return RoleCandidate
	}
	return RoleInterviewer
}

// Session identifies a signaling room visit. Immutable for its lifetime.
type Session struct {
	ID   string `json:"sessionId"`
	Role Role   `json:"role"`
}
