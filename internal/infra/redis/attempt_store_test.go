package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"classquiz-service/internal/domain"
)

func TestAttemptRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	attempt := domain.Attempt{
		QuizName: "capitals",
		Answers: []domain.AnswerRecord{
			{Question: "Capital of France?", Submitted: " paris ", Expected: "Paris", Correct: true},
		},
	}
	if err := store.Put(ctx, "s1", attempt); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := store.Get(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.QuizName != "capitals" || len(got.Answers) != 1 || !got.Answers[0].Correct {
		t.Fatalf("unexpected attempt %+v", got)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "s1"); ok {
		t.Fatalf("expected attempt gone")
	}
}

func TestDailyBonusFlagExpires(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewAttemptStore(client, time.Minute)

	first, err := store.ClaimDailyBonus(ctx, "s1")
	if err != nil || !first {
		t.Fatalf("expected first claim, got first=%v err=%v", first, err)
	}
	if again, _ := store.ClaimDailyBonus(ctx, "s1"); again {
		t.Fatalf("expected repeat claim rejected")
	}

	// Expiry re-arms the bonus, standing in for a re-established session.
	mr.FastForward(2 * time.Minute)
	fresh, _ := store.ClaimDailyBonus(ctx, "s1")
	if !fresh {
		t.Fatalf("expected claim after expiry")
	}
}

func newTestStore(t *testing.T) *AttemptStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewAttemptStore(client, time.Minute)
}
