package calendar

import (
	"context"
	"errors"
	"sort"
	"time"

	"event-scheduler/internal/model"
	"event-scheduler/internal/store"
)

// memStore keeps events in memory. WithTx works on a copy and only
// publishes it when fn succeeds, so a rejected mutation leaves no trace.
type memStore struct {
	events map[int64]model.Event
	nextID int64
	locked [][]int64
}

func newMemStore() *memStore {
	return &memStore{events: map[int64]model.Event{}, nextID: 1}
}

func (m *memStore) WithTx(_ context.Context, fn func(store.EventTx) error) error {
	tx := &memTx{events: map[int64]model.Event{}, nextID: m.nextID}
	for id, e := range m.events {
		tx.events[id] = cloneEvent(e)
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.events = tx.events
	m.nextID = tx.nextID
	m.locked = append(m.locked, tx.locked...)
	return nil
}

func (m *memStore) EventByID(_ context.Context, id int64) (*model.Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	e = cloneEvent(e)
	return &e, nil
}

func (m *memStore) EventsForUser(_ context.Context, userID int64) ([]model.Event, error) {
	out := []model.Event{}
	for _, e := range m.events {
		if canRead(&e, userID) {
			out = append(out, cloneEvent(e))
		}
	}
	sortEvents(out)
	return out, nil
}

type memTx struct {
	events map[int64]model.Event
	nextID int64
	locked [][]int64
}

func (t *memTx) LockUsers(_ context.Context, ids []int64) error {
	t.locked = append(t.locked, append([]int64(nil), ids...))
	return nil
}

func (t *memTx) LockEvent(_ context.Context, id int64) (*model.Event, error) {
	e, ok := t.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	e = cloneEvent(e)
	return &e, nil
}

// OverlappingEvents hands back every stored event; filtering is left to
// DetectConflicts so the fake cannot hide a bug in it.
func (t *memTx) OverlappingEvents(_ context.Context, _ []int64, _, _ time.Time, _ int64) ([]model.Event, error) {
	out := make([]model.Event, 0, len(t.events))
	for _, e := range t.events {
		out = append(out, cloneEvent(e))
	}
	sortEvents(out)
	return out, nil
}

func (t *memTx) InsertEvent(_ context.Context, e *model.Event) error {
	e.ID = t.nextID
	t.nextID++
	e.Reminded = false
	t.events[e.ID] = cloneEvent(*e)
	return nil
}

func (t *memTx) UpdateEvent(_ context.Context, e *model.Event) error {
	if _, ok := t.events[e.ID]; !ok {
		return store.ErrNotFound
	}
	e.Reminded = false
	t.events[e.ID] = cloneEvent(*e)
	return nil
}

func (t *memTx) DeleteEvent(_ context.Context, id int64) error {
	if _, ok := t.events[id]; !ok {
		return errors.New("delete of missing event")
	}
	delete(t.events, id)
	return nil
}

func cloneEvent(e model.Event) model.Event {
	e.ParticipantIDs = append([]int64{}, e.ParticipantIDs...)
	return e
}

func sortEvents(es []model.Event) {
	sort.Slice(es, func(i, j int) bool {
		if !es[i].StartAt.Equal(es[j].StartAt) {
			return es[i].StartAt.Before(es[j].StartAt)
		}
		return es[i].ID < es[j].ID
	})
}
