package memory

import (
	"context"
	"sync"

	"classquiz-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore.
type AttemptStore struct {
	mu       sync.Mutex
	attempts map[string]domain.Attempt
	bonuses  map[string]bool
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
		bonuses:  make(map[string]bool),
	}
}

func (s *AttemptStore) Get(_ context.Context, studentID string) (domain.Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[studentID]
	return attempt, ok, nil
}

func (s *AttemptStore) Put(_ context.Context, studentID string, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[studentID] = attempt
	return nil
}

func (s *AttemptStore) Delete(_ context.Context, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, studentID)
	return nil
}

func (s *AttemptStore) ClaimDailyBonus(_ context.Context, studentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bonuses[studentID] {
		return false, nil
	}
	s.bonuses[studentID] = true
	return true, nil
}

// ResetSession clears the daily-bonus flag, simulating a re-established
// session (the Redis store does this through key TTL instead).
func (s *AttemptStore) ResetSession(studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bonuses, studentID)
}
