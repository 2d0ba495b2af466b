package challenge

import (
	"context"
	"fmt"
	"time"
)

// CompletionStore persists the date of the last completed challenge
type CompletionStore interface {
	CompletedChallengeDate(ctx context.Context) (string, error)
	SetCompletedChallengeDate(ctx context.Context, date string) error
}

// Tracker answers whether today's challenge was already completed. A stored
// date that is not today counts as not completed.
type Tracker struct {
	store CompletionStore
	now   func() time.Time
}

type TrackerOption func(*Tracker)

func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

func NewTracker(store CompletionStore, opts ...TrackerOption) *Tracker {
	t := &Tracker{store: store, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Today returns today's challenge
func (t *Tracker) Today() DailyChallenge {
	return ForDay(t.now())
}

func (t *Tracker) IsCompletedToday(ctx context.Context) (bool, error) {
	date, err := t.store.CompletedChallengeDate(ctx)
	if err != nil {
		return false, fmt.Errorf("read challenge completion: %w", err)
	}
	return date == DateKey(t.now()), nil
}

// MarkCompleted records the completion of the challenge for date, which is
// the day the run was started on rather than the day it ended. It reports
// false when that date was already recorded.
func (t *Tracker) MarkCompleted(ctx context.Context, date string) (bool, error) {
	stored, err := t.store.CompletedChallengeDate(ctx)
	if err != nil {
		return false, fmt.Errorf("read challenge completion: %w", err)
	}
	if stored == date {
		return false, nil
	}
	if err := t.store.SetCompletedChallengeDate(ctx, date); err != nil {
		return false, fmt.Errorf("store challenge completion: %w", err)
	}
	return true, nil
}
