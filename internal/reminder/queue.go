// Package reminder hands out events that are about to start and records
// which of them were delivered.
//
// Claiming is read only. An event stays pending until Acknowledge flips its
// reminded flag, so a delivery that fails part way is offered again on the
// next poll. Only one poller is expected; two pollers may both claim the
// same event before either acknowledges it.
package reminder

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"event-scheduler/internal/model"
)

const DefaultLookahead = 10 * time.Minute

var ErrBadWindow = errors.New("lookahead must be positive")

type Store interface {
	PendingEvents(ctx context.Context, after, until time.Time) ([]model.Event, error)
	MarkReminded(ctx context.Context, id int64) (bool, error)
}

type Queue struct {
	store     Store
	lookahead time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// NewQueue builds a queue whose Claim looks lookahead ahead of the clock.
// A non-positive lookahead means DefaultLookahead.
func NewQueue(st Store, lookahead time.Duration, logger *slog.Logger) *Queue {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return &Queue{store: st, lookahead: lookahead, log: logger, now: time.Now}
}

func (q *Queue) Lookahead() time.Duration { return q.lookahead }

// Claim is ClaimDue at the current instant with the configured lookahead.
func (q *Queue) Claim(ctx context.Context) ([]model.Reminder, error) {
	return q.ClaimDue(ctx, q.now(), q.lookahead)
}

// ClaimDue returns the un-reminded events with now < start <= now+lookahead,
// earliest first, each with its recipients. Nothing is written.
func (q *Queue) ClaimDue(ctx context.Context, now time.Time, lookahead time.Duration) ([]model.Reminder, error) {
	if lookahead <= 0 {
		return nil, ErrBadWindow
	}
	events, err := q.store.PendingEvents(ctx, now, now.Add(lookahead))
	if err != nil {
		return nil, err
	}

	out := make([]model.Reminder, 0, len(events))
	for i := range events {
		e := &events[i]
		// the store filters already; keep the window exact for any Store
		if !e.StartAt.After(now) || e.StartAt.After(now.Add(lookahead)) || e.Reminded {
			continue
		}
		out = append(out, model.Reminder{
			EventID:    e.ID,
			Title:      e.Title,
			StartAt:    e.StartAt,
			EndAt:      e.EndAt,
			Recipients: Recipients(e),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].StartAt.Before(out[j].StartAt)
		}
		return out[i].EventID < out[j].EventID
	})
	if len(out) > 0 {
		q.log.Debug("reminders claimed", "count", len(out))
	}
	return out, nil
}

// Acknowledge marks an event reminded. It reports false when the event was
// already reminded or no longer exists, so calling it twice is harmless.
func (q *Queue) Acknowledge(ctx context.Context, eventID int64) (bool, error) {
	if eventID <= 0 {
		return false, nil
	}
	ok, err := q.store.MarkReminded(ctx, eventID)
	if err != nil {
		return false, err
	}
	if ok {
		q.log.Info("reminder acknowledged", "event", eventID)
	}
	return ok, nil
}

// Recipients is the creator plus every participant, deduplicated and sorted.
func Recipients(e *model.Event) []int64 {
	ids := e.InvolvedUsers()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := ids[:0]
	for _, id := range ids {
		if len(out) > 0 && out[len(out)-1] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}
