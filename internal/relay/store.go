package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"interviewlink/native/internal/domain"
)

// ErrNotFound is returned for unknown interview session IDs.
var ErrNotFound = errors.New("interview not found")

// InterviewStore is an in-memory backing for the interview REST
// boundary. Real record storage is an external subsystem; this exists
// so agents can be exercised end to end in development.
type InterviewStore struct {
	mu    sync.RWMutex
	items map[string]*domain.Interview
}

// NewInterviewStore creates an empty store.
func NewInterviewStore() *InterviewStore {
	return &InterviewStore{items: make(map[string]*domain.Interview)}
}

// Create registers a new scheduled interview and returns it.
func (s *InterviewStore) Create(title string, scheduledAt time.Time) *domain.Interview {
	s.mu.Lock()
	defer s.mu.Unlock()

	iv := &domain.Interview{
		SessionID:   uuid.NewString(),
		Title:       title,
		Status:      domain.InterviewScheduled,
		ScheduledAt: scheduledAt,
	}
	s.items[iv.SessionID] = iv
	return iv
}

// Get loads an interview by session ID.
func (s *InterviewStore) Get(sessionID string) (*domain.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iv, ok := s.items[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *iv
	return &copied, nil
}

// Start marks an interview active. Idempotent for already-active ones.
func (s *InterviewStore) Start(sessionID string) (*domain.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	iv, ok := s.items[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if iv.Status == domain.InterviewEnded {
		return nil, errors.New("interview already ended")
	}
	if iv.Status != domain.InterviewActive {
		now := time.Now()
		iv.Status = domain.InterviewActive
		iv.StartedAt = &now
	}
	copied := *iv
	return &copied, nil
}

// End marks an interview finished.
func (s *InterviewStore) End(sessionID string) (*domain.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	iv, ok := s.items[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	iv.Status = domain.InterviewEnded
	copied := *iv
	return &copied, nil
}
