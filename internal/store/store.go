package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"event-scheduler/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrTagTaken = errors.New("tag already taken")
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EventTx is the part of the store available inside one event mutation.
// Everything done through it commits or rolls back together.
type EventTx interface {
	LockUsers(ctx context.Context, userIDs []int64) error
	LockEvent(ctx context.Context, id int64) (*model.Event, error)
	OverlappingEvents(ctx context.Context, userIDs []int64, start, end time.Time, excludeID int64) ([]model.Event, error)
	InsertEvent(ctx context.Context, e *model.Event) error
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id int64) error
}

// WithTx runs fn in a read-committed transaction. fn's error rolls back.
func (s *Store) WithTx(ctx context.Context, fn func(EventTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&eventTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type eventTx struct {
	tx pgx.Tx
}

// LockUsers takes a transaction-scoped advisory lock per user id so two
// mutations sharing a user serialize their conflict check and write.
// Ids are locked in ascending order to keep acquisition deadlock free.
func (t *eventTx) LockUsers(ctx context.Context, userIDs []int64) error {
	ids := append([]int64(nil), userIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var prev int64
	for i, id := range ids {
		if i > 0 && id == prev {
			continue
		}
		prev = id
		if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, id); err != nil {
			return fmt.Errorf("lock user %d: %w", id, err)
		}
	}
	return nil
}
