// Package calendar owns the event lifecycle: validation, double-booking
// detection and the creator-only mutation rule.
package calendar

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"event-scheduler/internal/model"
	"event-scheduler/internal/store"
)

// Store is the persistence the lifecycle manager needs; *store.Store
// satisfies it.
type Store interface {
	WithTx(ctx context.Context, fn func(store.EventTx) error) error
	EventByID(ctx context.Context, id int64) (*model.Event, error)
	EventsForUser(ctx context.Context, userID int64) ([]model.Event, error)
}

// errConflict aborts the mutation transaction; callers receive the
// conflict list instead.
var errConflict = errors.New("conflict")

type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func New(st Store, logger *slog.Logger) *Service {
	return &Service{store: st, log: logger, now: time.Now}
}

// Create stores a new event unless it double-books the creator or a
// participant, in which case the conflicts are returned and nothing is
// written.
func (s *Service) Create(ctx context.Context, creatorID int64, title string, start, end time.Time, participantIDs []int64) (*model.Event, []model.Conflict, error) {
	title, err := validate(creatorID, title, start, end, s.now())
	if err != nil {
		return nil, nil, err
	}

	participants := NormalizeParticipants(creatorID, participantIDs)
	ev := &model.Event{
		CreatorID:      creatorID,
		Title:          title,
		StartAt:        start.UTC(),
		EndAt:          end.UTC(),
		ParticipantIDs: participants,
	}
	involved := ev.InvolvedUsers()

	var conflicts []model.Conflict
	err = s.store.WithTx(ctx, func(tx store.EventTx) error {
		if err := tx.LockUsers(ctx, involved); err != nil {
			return err
		}
		candidates, err := tx.OverlappingEvents(ctx, involved, ev.StartAt, ev.EndAt, 0)
		if err != nil {
			return err
		}
		conflicts = DetectConflicts(candidates, involved, ev.StartAt, ev.EndAt, 0)
		if len(conflicts) > 0 {
			return errConflict
		}
		return tx.InsertEvent(ctx, ev)
	})
	if errors.Is(err, errConflict) {
		s.log.Debug("create rejected", "creator", creatorID, "conflicts", len(conflicts))
		return nil, conflicts, nil
	}
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("event created", "id", ev.ID, "creator", creatorID, "participants", len(participants))
	return ev, nil, nil
}

// Update replaces title, window and participants of an event owned by
// actorID. The event never conflicts with itself and its reminder is
// re-armed.
func (s *Service) Update(ctx context.Context, eventID, actorID int64, title string, start, end time.Time, participantIDs []int64) (*model.Event, []model.Conflict, error) {
	if eventID <= 0 {
		return nil, nil, invalid("event id must be positive")
	}

	var (
		ev        *model.Event
		conflicts []model.Conflict
	)
	err := s.store.WithTx(ctx, func(tx store.EventTx) error {
		cur, err := tx.LockEvent(ctx, eventID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := authorize(cur, actorID); err != nil {
			return err
		}

		clean, err := validate(actorID, title, start, end, s.now())
		if err != nil {
			return err
		}

		participants := NormalizeParticipants(cur.CreatorID, participantIDs)
		next := &model.Event{
			ID:             cur.ID,
			CreatorID:      cur.CreatorID,
			Title:          clean,
			StartAt:        start.UTC(),
			EndAt:          end.UTC(),
			ParticipantIDs: participants,
		}
		involved := next.InvolvedUsers()

		// old participants too, so a concurrent create sees a settled set
		if err := tx.LockUsers(ctx, append(cur.InvolvedUsers(), involved...)); err != nil {
			return err
		}
		candidates, err := tx.OverlappingEvents(ctx, involved, next.StartAt, next.EndAt, eventID)
		if err != nil {
			return err
		}
		conflicts = DetectConflicts(candidates, involved, next.StartAt, next.EndAt, eventID)
		if len(conflicts) > 0 {
			return errConflict
		}

		if err := tx.UpdateEvent(ctx, next); err != nil {
			return err
		}
		ev = next
		return nil
	})
	switch {
	case errors.Is(err, errConflict):
		s.log.Debug("update rejected", "id", eventID, "conflicts", len(conflicts))
		return nil, conflicts, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, nil, ErrNotFound
	case err != nil:
		return nil, nil, err
	}

	s.log.Info("event updated", "id", ev.ID, "actor", actorID)
	return ev, nil, nil
}

// FindConflicts lists stored events that would double-book any of the
// involved users in [start, end). excludeID, when positive, is skipped.
func (s *Service) FindConflicts(ctx context.Context, involved []int64, start, end time.Time, excludeID int64) ([]model.Conflict, error) {
	if !end.After(start) {
		return nil, invalid("end must be after start")
	}
	var conflicts []model.Conflict
	err := s.store.WithTx(ctx, func(tx store.EventTx) error {
		candidates, err := tx.OverlappingEvents(ctx, involved, start.UTC(), end.UTC(), excludeID)
		if err != nil {
			return err
		}
		conflicts = DetectConflicts(candidates, involved, start.UTC(), end.UTC(), excludeID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conflicts, nil
}

// Delete removes an event owned by actorID; participations cascade.
func (s *Service) Delete(ctx context.Context, eventID, actorID int64) error {
	if eventID <= 0 {
		return invalid("event id must be positive")
	}
	err := s.store.WithTx(ctx, func(tx store.EventTx) error {
		cur, err := tx.LockEvent(ctx, eventID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := authorize(cur, actorID); err != nil {
			return err
		}
		return tx.DeleteEvent(ctx, eventID)
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.log.Info("event deleted", "id", eventID, "actor", actorID)
	return nil
}

// Get returns an event visible to userID. Events the user is not part of
// are reported as not found.
func (s *Service) Get(ctx context.Context, eventID, userID int64) (*model.Event, error) {
	if eventID <= 0 {
		return nil, invalid("event id must be positive")
	}
	ev, err := s.store.EventByID(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !canRead(ev, userID) {
		return nil, ErrNotFound
	}
	return ev, nil
}

// ListForUser returns events the user created or joined, earliest first.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]model.Event, error) {
	if userID <= 0 {
		return nil, invalid("user id must be positive")
	}
	return s.store.EventsForUser(ctx, userID)
}
