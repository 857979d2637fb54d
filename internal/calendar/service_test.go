package calendar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"
)

func newService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	st := newMemStore()
	svc := New(st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return base.Add(-time.Hour) }
	return svc, st
}

func TestCreateEvent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	e, conflicts, err := svc.Create(ctx, 1, "  Standup  ", at(0), at(30), []int64{3, 2, 1, 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %+v", conflicts)
	}
	if e.ID == 0 {
		t.Fatal("empty id")
	}
	if e.Title != "Standup" {
		t.Errorf("title: got %q", e.Title)
	}
	if !reflect.DeepEqual(e.ParticipantIDs, []int64{2, 3}) {
		t.Errorf("participants: got %v", e.ParticipantIDs)
	}
	if e.Reminded {
		t.Error("new event must be pending")
	}
}

func TestCreateNormalizesToUTC(t *testing.T) {
	svc, _ := newService(t)
	loc := time.FixedZone("UTC+3", 3*3600)

	e, _, err := svc.Create(context.Background(), 1, "x", at(0).In(loc), at(30).In(loc), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.StartAt.Location() != time.UTC || !e.StartAt.Equal(at(0)) {
		t.Errorf("start not normalized: %v", e.StartAt)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		creator    int64
		title      string
		start, end time.Time
	}{
		{"non-positive creator", 0, "x", at(0), at(30)},
		{"empty title", 1, "   ", at(0), at(30)},
		{"invalid utf-8 title", 1, "Stand\xffup", at(0), at(30)},
		{"long title", 1, strings.Repeat("a", MaxTitleLen+1), at(0), at(30)},
		{"end before start", 1, "x", at(30), at(0)},
		{"end equals start", 1, "x", at(30), at(30)},
		{"start in the past", 1, "x", at(-120), at(30)},
		{"missing start", 1, "x", time.Time{}, at(30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Create(ctx, tt.creator, tt.title, tt.start, tt.end, nil)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
	if len(st.events) != 0 {
		t.Errorf("rejected creates wrote %d events", len(st.events))
	}
}

func TestCreateConflictScenario(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	standup, _, err := svc.Create(ctx, 1, "Standup", at(0), at(30), nil)
	if err != nil {
		t.Fatalf("standup: %v", err)
	}

	e, conflicts, err := svc.Create(ctx, 2, "Planning", at(15), at(60), []int64{1})
	if err != nil {
		t.Fatalf("planning: %v", err)
	}
	if e != nil {
		t.Fatal("conflicting create must not return an event")
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %+v", conflicts)
	}
	c := conflicts[0]
	if c.EventID != standup.ID || c.Title != "Standup" {
		t.Errorf("conflict event: %+v", c)
	}
	if !reflect.DeepEqual(c.ConflictingUserIDs, []int64{1}) {
		t.Errorf("conflicting users: got %v", c.ConflictingUserIDs)
	}
	if !c.StartAt.Equal(at(0)) || !c.EndAt.Equal(at(30)) {
		t.Errorf("conflict window: %v - %v", c.StartAt, c.EndAt)
	}
	if len(st.events) != 1 {
		t.Errorf("conflict must not write, have %d events", len(st.events))
	}
}

func TestCreateDisjointUsersNeverConflict(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, c, err := svc.Create(ctx, 1, "A", at(0), at(60), []int64{2}); err != nil || len(c) != 0 {
		t.Fatalf("A: %v %+v", err, c)
	}
	if _, c, err := svc.Create(ctx, 3, "B", at(0), at(60), []int64{4}); err != nil || len(c) != 0 {
		t.Fatalf("B overlaps in time only, got %v %+v", err, c)
	}
}

func TestCreateTouchingWindows(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, _, err := svc.Create(ctx, 1, "first", at(0), at(60), nil); err != nil {
		t.Fatal(err)
	}
	_, c, err := svc.Create(ctx, 1, "adjacent", at(60), at(120), nil)
	if err != nil || len(c) != 0 {
		t.Fatalf("adjacent should not conflict: %v %+v", err, c)
	}
}

func TestCreateLocksInvolvedUsers(t *testing.T) {
	svc, st := newService(t)
	if _, _, err := svc.Create(context.Background(), 4, "x", at(0), at(30), []int64{9, 2}); err != nil {
		t.Fatal(err)
	}
	if len(st.locked) != 1 || !reflect.DeepEqual(st.locked[0], []int64{4, 2, 9}) {
		t.Errorf("locked: %v", st.locked)
	}
}

func TestUpdateSelfExclusion(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	e, _, err := svc.Create(ctx, 1, "x", at(0), at(60), []int64{2})
	if err != nil {
		t.Fatal(err)
	}
	// same window
	if _, c, err := svc.Update(ctx, e.ID, 1, "x", at(0), at(60), []int64{2}); err != nil || len(c) != 0 {
		t.Fatalf("same window: %v %+v", err, c)
	}
	// overlapping its own old window
	u, c, err := svc.Update(ctx, e.ID, 1, "y", at(30), at(90), []int64{2})
	if err != nil || len(c) != 0 {
		t.Fatalf("shifted window: %v %+v", err, c)
	}
	if u.Title != "y" || !u.StartAt.Equal(at(30)) {
		t.Errorf("update not applied: %+v", u)
	}
}

func TestUpdateConflict(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	first, _, _ := svc.Create(ctx, 1, "First", at(0), at(60), nil)
	second, _, _ := svc.Create(ctx, 2, "Second", at(120), at(180), []int64{3})

	_, c, err := svc.Update(ctx, second.ID, 2, "Moved", at(30), at(90), []int64{1, 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(c) != 1 || c[0].EventID != first.ID || !reflect.DeepEqual(c[0].ConflictingUserIDs, []int64{1}) {
		t.Fatalf("conflicts: %+v", c)
	}
	if got := st.events[second.ID]; got.Title != "Second" || !got.StartAt.Equal(at(120)) {
		t.Errorf("rejected update changed the event: %+v", got)
	}
}

func TestUpdateResetsReminded(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	e, _, _ := svc.Create(ctx, 1, "x", at(0), at(30), nil)
	stored := st.events[e.ID]
	stored.Reminded = true
	st.events[e.ID] = stored

	u, _, err := svc.Update(ctx, e.ID, 1, "x", at(0), at(30), nil)
	if err != nil {
		t.Fatal(err)
	}
	if u.Reminded || st.events[e.ID].Reminded {
		t.Error("update must reset reminded, even with an unchanged window")
	}
}

func TestUpdateReplacesParticipants(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	e, _, _ := svc.Create(ctx, 1, "x", at(0), at(30), []int64{2, 3})
	if _, _, err := svc.Update(ctx, e.ID, 1, "x", at(0), at(30), []int64{4}); err != nil {
		t.Fatal(err)
	}
	if got := st.events[e.ID].ParticipantIDs; !reflect.DeepEqual(got, []int64{4}) {
		t.Errorf("participants: got %v", got)
	}
}

func TestUpdateOwnership(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	e, _, _ := svc.Create(ctx, 1, "mine", at(0), at(30), []int64{2})

	_, _, err := svc.Update(ctx, e.ID, 2, "hijack", at(0), at(30), nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if got := st.events[e.ID]; got.Title != "mine" || !reflect.DeepEqual(got.ParticipantIDs, []int64{2}) {
		t.Errorf("forbidden update changed the event: %+v", got)
	}

	// ownership is checked before input validation
	_, _, err = svc.Update(ctx, e.ID, 2, "", at(30), at(0), nil)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden before validation, got %v", err)
	}
}

func TestUpdateNotFound(t *testing.T) {
	svc, _ := newService(t)
	_, _, err := svc.Update(context.Background(), 42, 1, "x", at(0), at(30), nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatal("not found must not look forbidden")
	}
}

func TestUpdateValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	e, _, _ := svc.Create(ctx, 1, "x", at(0), at(30), nil)

	if _, _, err := svc.Update(ctx, e.ID, 1, "x", at(30), at(30), nil); !errors.Is(err, ErrValidation) {
		t.Errorf("end == start: got %v", err)
	}
	if _, _, err := svc.Update(ctx, e.ID, 1, "x", at(-120), at(0), nil); !errors.Is(err, ErrValidation) {
		t.Errorf("past start: got %v", err)
	}
	if _, _, err := svc.Update(ctx, 0, 1, "x", at(0), at(30), nil); !errors.Is(err, ErrValidation) {
		t.Errorf("zero id: got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	e, _, _ := svc.Create(ctx, 1, "x", at(0), at(30), []int64{2})

	if err := svc.Delete(ctx, e.ID, 2); !errors.Is(err, ErrForbidden) {
		t.Fatalf("participant delete: expected ErrForbidden, got %v", err)
	}
	if _, ok := st.events[e.ID]; !ok {
		t.Fatal("forbidden delete removed the event")
	}
	if err := svc.Delete(ctx, e.ID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := st.events[e.ID]; ok {
		t.Fatal("event still stored")
	}
	if err := svc.Delete(ctx, e.ID, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestListForUser(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	late, _, _ := svc.Create(ctx, 1, "late", at(120), at(150), nil)
	early, _, _ := svc.Create(ctx, 2, "early", at(0), at(30), []int64{1})
	svc.Create(ctx, 3, "other", at(60), at(90), nil)

	got, err := svc.ListForUser(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != early.ID || got[1].ID != late.ID {
		t.Fatalf("list: %+v", got)
	}

	if _, err := svc.ListForUser(ctx, 0); !errors.Is(err, ErrValidation) {
		t.Errorf("zero user: got %v", err)
	}
}

func TestGetVisibility(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	e, _, _ := svc.Create(ctx, 1, "x", at(0), at(30), []int64{2})

	for _, uid := range []int64{1, 2} {
		if _, err := svc.Get(ctx, e.ID, uid); err != nil {
			t.Errorf("user %d: %v", uid, err)
		}
	}
	if _, err := svc.Get(ctx, e.ID, 3); !errors.Is(err, ErrNotFound) {
		t.Errorf("outsider: expected ErrNotFound, got %v", err)
	}
}

func TestFindConflicts(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	e, _, err := svc.Create(ctx, 1, "Review", at(0), at(60), []int64{2})
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.FindConflicts(ctx, []int64{2, 5}, at(30), at(90), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].EventID != e.ID || !reflect.DeepEqual(got[0].ConflictingUserIDs, []int64{2}) {
		t.Errorf("conflicts: %+v", got)
	}

	if got, _ := svc.FindConflicts(ctx, []int64{2}, at(30), at(90), e.ID); len(got) != 0 {
		t.Errorf("excluded event reported: %+v", got)
	}
	if _, err := svc.FindConflicts(ctx, []int64{2}, at(30), at(30), 0); !errors.Is(err, ErrValidation) {
		t.Errorf("empty window: got %v", err)
	}
	if len(st.events) != 1 {
		t.Errorf("lookup wrote events: %d", len(st.events))
	}
}
