package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"event-scheduler/internal/model"
)

func TestExportParsesBack(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	berlin := time.FixedZone("CET", 3600)
	events := []model.Event{
		{ID: 1, CreatorID: 5, Title: "Standup", StartAt: start, EndAt: start.Add(30 * time.Minute), UpdatedAt: start.Add(-time.Hour)},
		{ID: 2, CreatorID: 6, Title: "Planning", StartAt: start.Add(2 * time.Hour).In(berlin), EndAt: start.Add(3 * time.Hour), ParticipantIDs: []int64{5, 7}},
	}

	out := Export(events, Options{Host: "cal.example", Zone: "Europe/Berlin", Name: "user 5"})
	if !strings.Contains(string(out), "X-WR-TIMEZONE:Europe/Berlin") {
		t.Errorf("zone missing:\n%s", out)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := cal.Events()
	if len(got) != 2 {
		t.Fatalf("events: %d", len(got))
	}

	for i, ve := range got {
		want := events[i]
		if uid := ve.GetProperty(ical.ComponentPropertyUniqueId); uid == nil || uid.Value != UID(want.ID, "cal.example") {
			t.Errorf("event %d uid: %+v", i, uid)
		}
		if s := ve.GetProperty(ical.ComponentPropertySummary); s == nil || s.Value != want.Title {
			t.Errorf("event %d summary: %+v", i, s)
		}
		st, err := ve.GetStartAt()
		if err != nil || !st.Equal(want.StartAt) {
			t.Errorf("event %d start: %v %v", i, st, err)
		}
		end, err := ve.GetEndAt()
		if err != nil || !end.Equal(want.EndAt) {
			t.Errorf("event %d end: %v %v", i, end, err)
		}
	}
}

func TestExportEmpty(t *testing.T) {
	out := string(Export(nil, Options{Host: "h"}))
	if !strings.HasPrefix(out, "BEGIN:VCALENDAR") || strings.Contains(out, "BEGIN:VEVENT") {
		t.Errorf("unexpected feed:\n%s", out)
	}
}

func TestDescribe(t *testing.T) {
	got := describe(&model.Event{CreatorID: 3, ParticipantIDs: []int64{4, 9}})
	if got != "creator: 3\nparticipants: 4, 9" {
		t.Errorf("got %q", got)
	}
}
