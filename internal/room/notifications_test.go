package room

import (
	"testing"
	"time"
)

func TestNotificationsExpire(t *testing.T) {
	now := time.Unix(1000, 0)
	n := NewNotifications()
	n.now = func() time.Time { return now }

	n.Push(SeverityInfo, "first")
	now = now.Add(3 * time.Second)
	n.Push(SeverityWarn, "second")

	if got := n.Active(); len(got) != 2 {
		t.Fatalf("expected 2 active notifications, got %d", len(got))
	}

	// The first one ages out, the second survives.
	now = now.Add(3 * time.Second)
	got := n.Active()
	if len(got) != 1 {
		t.Fatalf("expected 1 active notification, got %d", len(got))
	}
	if got[0].Message != "second" {
		t.Errorf("wrong survivor: %q", got[0].Message)
	}

	now = now.Add(notificationTTL)
	if got := n.Active(); len(got) != 0 {
		t.Errorf("expected everything expired, got %d", len(got))
	}
}

func TestNotificationsOrderedOldestFirst(t *testing.T) {
	now := time.Unix(1000, 0)
	n := NewNotifications()
	n.now = func() time.Time { return now }

	n.Push(SeverityInfo, "a")
	now = now.Add(time.Second)
	n.Push(SeverityInfo, "b")
	now = now.Add(time.Second)
	n.Push(SeverityInfo, "c")

	got := n.Active()
	if len(got) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].Message != want {
			t.Errorf("position %d = %q, want %q", i, got[i].Message, want)
		}
	}
}
