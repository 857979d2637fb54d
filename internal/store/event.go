package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"event-scheduler/internal/model"
)

// participants are folded into one array column so an event is one row
const eventSelect = `
	SELECT e.id, e.creator_id, e.title, e.start_at, e.end_at, e.reminded,
	       e.created_at, e.updated_at,
	       COALESCE(array_agg(p.user_id ORDER BY p.user_id)
	                FILTER (WHERE p.user_id IS NOT NULL), '{}')::bigint[]
	FROM events e
	LEFT JOIN event_participants p ON p.event_id = e.id`

func scanEvent(row pgx.Row) (model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.CreatorID, &e.Title, &e.StartAt, &e.EndAt, &e.Reminded,
		&e.CreatedAt, &e.UpdatedAt, &e.ParticipantIDs,
	)
	if err != nil {
		return e, err
	}
	normalize(&e)
	return e, nil
}

func normalize(e *model.Event) {
	e.StartAt = e.StartAt.UTC()
	e.EndAt = e.EndAt.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	if e.ParticipantIDs == nil {
		e.ParticipantIDs = []int64{}
	}
}

func collectEvents(rows pgx.Rows) ([]model.Event, error) {
	defer rows.Close()
	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) EventByID(ctx context.Context, id int64) (*model.Event, error) {
	e, err := scanEvent(s.pool.QueryRow(ctx,
		eventSelect+` WHERE e.id = $1 GROUP BY e.id`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", id, err)
	}
	return &e, nil
}

// EventsForUser lists events the user created or participates in.
func (s *Store) EventsForUser(ctx context.Context, userID int64) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx, eventSelect+`
		WHERE e.creator_id = $1
		   OR EXISTS (SELECT 1 FROM event_participants x
		              WHERE x.event_id = e.id AND x.user_id = $1)
		GROUP BY e.id
		ORDER BY e.start_at, e.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("events for user %d: %w", userID, err)
	}
	return collectEvents(rows)
}

// LockEvent loads the event and holds its row lock until the transaction ends.
func (t *eventTx) LockEvent(ctx context.Context, id int64) (*model.Event, error) {
	var locked int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock event %d: %w", id, err)
	}

	e, err := scanEvent(t.tx.QueryRow(ctx,
		eventSelect+` WHERE e.id = $1 GROUP BY e.id`, id))
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", id, err)
	}
	return &e, nil
}

// OverlappingEvents returns events whose window [start_at, end_at) overlaps
// [start, end) and that involve any of userIDs as creator or participant.
// excludeID is skipped; pass 0 to skip nothing.
func (t *eventTx) OverlappingEvents(ctx context.Context, userIDs []int64, start, end time.Time, excludeID int64) ([]model.Event, error) {
	rows, err := t.tx.Query(ctx, eventSelect+`
		WHERE e.start_at < $2
		  AND e.end_at > $1
		  AND e.id <> $4
		  AND (e.creator_id = ANY($3)
		       OR EXISTS (SELECT 1 FROM event_participants x
		                  WHERE x.event_id = e.id AND x.user_id = ANY($3)))
		GROUP BY e.id
		ORDER BY e.start_at, e.id`,
		start.UTC(), end.UTC(), userIDs, excludeID,
	)
	if err != nil {
		return nil, fmt.Errorf("overlapping events: %w", err)
	}
	return collectEvents(rows)
}

func (t *eventTx) InsertEvent(ctx context.Context, e *model.Event) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO events (creator_id, title, start_at, end_at, reminded)
		 VALUES ($1, $2, $3, $4, false)
		 RETURNING id, created_at, updated_at`,
		e.CreatorID, e.Title, e.StartAt.UTC(), e.EndAt.UTC(),
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	e.Reminded = false

	if err := t.insertParticipants(ctx, e.ID, e.ParticipantIDs); err != nil {
		return err
	}
	normalize(e)
	return nil
}

// UpdateEvent rewrites title and window, clears the reminded flag and
// replaces the participant set.
func (t *eventTx) UpdateEvent(ctx context.Context, e *model.Event) error {
	err := t.tx.QueryRow(ctx,
		`UPDATE events
		 SET title = $1, start_at = $2, end_at = $3, reminded = false, updated_at = NOW()
		 WHERE id = $4
		 RETURNING creator_id, created_at, updated_at`,
		e.Title, e.StartAt.UTC(), e.EndAt.UTC(), e.ID,
	).Scan(&e.CreatorID, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update event %d: %w", e.ID, err)
	}
	e.Reminded = false

	// replace participants
	if _, err := t.tx.Exec(ctx, `DELETE FROM event_participants WHERE event_id = $1`, e.ID); err != nil {
		return fmt.Errorf("clear participants: %w", err)
	}
	if err := t.insertParticipants(ctx, e.ID, e.ParticipantIDs); err != nil {
		return err
	}
	normalize(e)
	return nil
}

func (t *eventTx) DeleteEvent(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *eventTx) insertParticipants(ctx context.Context, eventID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO event_participants (event_id, user_id)
		 SELECT $1, u FROM unnest($2::bigint[]) AS u
		 ON CONFLICT DO NOTHING`,
		eventID, userIDs,
	)
	if err != nil {
		return fmt.Errorf("insert participants: %w", err)
	}
	return nil
}
