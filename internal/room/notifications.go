package room

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity grades a user-facing notification.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Notification is an ephemeral user-facing message. It expires
// notificationTTL after creation and is never persisted.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"createdAt"`
}

const notificationTTL = 5 * time.Second

// Notifications holds the currently visible notifications for a room
// visit. Expired entries are pruned on read.
type Notifications struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]Notification
}

// NewNotifications creates an empty notification set.
func NewNotifications() *Notifications {
	return &Notifications{
		ttl:   notificationTTL,
		now:   time.Now,
		items: make(map[string]Notification),
	}
}

// Push adds a notification and returns it.
func (n *Notifications) Push(severity Severity, message string) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	note := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		CreatedAt: n.now(),
	}
	n.items[note.ID] = note
	return note
}

// Active returns the unexpired notifications, oldest first.
func (n *Notifications) Active() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	cutoff := n.now().Add(-n.ttl)
	out := make([]Notification, 0, len(n.items))
	for id, note := range n.items {
		if note.CreatedAt.Before(cutoff) {
			delete(n.items, id)
			continue
		}
		out = append(out, note)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
