package store

import (
	"context"
	"fmt"
	"time"

	"event-scheduler/internal/model"
)

// PendingEvents returns un-reminded events starting in (after, until],
// earliest first.
func (s *Store) PendingEvents(ctx context.Context, after, until time.Time) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx, eventSelect+`
		WHERE e.reminded = false
		  AND e.start_at > $1
		  AND e.start_at <= $2
		GROUP BY e.id
		ORDER BY e.start_at, e.id`,
		after.UTC(), until.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("pending events: %w", err)
	}
	return collectEvents(rows)
}

// MarkReminded flips reminded to true. It reports false when the event is
// gone or was already reminded.
func (s *Store) MarkReminded(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE events SET reminded = true
		 WHERE id = $1 AND reminded = false`, id,
	)
	if err != nil {
		return false, fmt.Errorf("mark reminded %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
