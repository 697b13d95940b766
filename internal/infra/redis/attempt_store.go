package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"classquiz-service/internal/domain"
)

// AttemptStore keeps transient attempt state and the session-scoped
// daily-bonus flag in Redis, so several instances can serve the same student.
// The TTL doubles as abandonment cleanup: a stale attempt simply expires.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

func (s *AttemptStore) Get(ctx context.Context, studentID string) (domain.Attempt, bool, error) {
	raw, err := s.client.Get(ctx, s.attemptKey(studentID)).Bytes()
	if err == redis.Nil {
		return domain.Attempt{}, false, nil
	}
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("get attempt: %w", err)
	}
	var attempt domain.Attempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return domain.Attempt{}, false, fmt.Errorf("unmarshal attempt: %w", err)
	}
	return attempt, true, nil
}

func (s *AttemptStore) Put(ctx context.Context, studentID string, attempt domain.Attempt) error {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	if err := s.client.Set(ctx, s.attemptKey(studentID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("put attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Delete(ctx context.Context, studentID string) error {
	if err := s.client.Del(ctx, s.attemptKey(studentID)).Err(); err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	return nil
}

// ClaimDailyBonus is a SETNX: only the first claim within the flag's
// lifetime wins. The key expiring is what re-arms the bonus.
func (s *AttemptStore) ClaimDailyBonus(ctx context.Context, studentID string) (bool, error) {
	first, err := s.client.SetNX(ctx, s.bonusKey(studentID), "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim bonus: %w", err)
	}
	return first, nil
}

func (s *AttemptStore) attemptKey(studentID string) string {
	return "attempt:" + studentID
}

func (s *AttemptStore) bonusKey(studentID string) string {
	return "bonus:" + studentID
}
