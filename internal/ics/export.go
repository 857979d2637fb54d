// Package ics renders a user's events as an iCalendar feed.
package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"event-scheduler/internal/model"
)

type Options struct {
	// Host is the domain part of every UID.
	Host string
	// Zone is the owner's IANA zone, advertised as X-WR-TIMEZONE.
	Zone string
	Name string
}

// UID is stable for the lifetime of the event so calendar clients update
// rather than duplicate it.
func UID(id int64, host string) string {
	return fmt.Sprintf("event-%d@%s", id, host)
}

// Export serializes events. Times are written in UTC.
func Export(events []model.Event, opts Options) []byte {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//event-scheduler//calendar export//EN")
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	if opts.Zone != "" {
		cal.SetXWRTimezone(opts.Zone)
	}

	for i := range events {
		e := &events[i]
		ve := cal.AddEvent(UID(e.ID, opts.Host))
		stamp := e.UpdatedAt
		if stamp.IsZero() {
			stamp = time.Now()
		}
		ve.SetDtStampTime(stamp.UTC())
		if !e.CreatedAt.IsZero() {
			ve.SetCreatedTime(e.CreatedAt.UTC())
		}
		if !e.UpdatedAt.IsZero() {
			ve.SetModifiedAt(e.UpdatedAt.UTC())
		}
		ve.SetStartAt(e.StartAt.UTC())
		ve.SetEndAt(e.EndAt.UTC())
		ve.SetSummary(e.Title)
		ve.SetDescription(describe(e))
	}
	return []byte(cal.Serialize())
}

func describe(e *model.Event) string {
	var b strings.Builder
	b.WriteString("creator: ")
	b.WriteString(strconv.FormatInt(e.CreatorID, 10))
	if len(e.ParticipantIDs) > 0 {
		ids := make([]string, len(e.ParticipantIDs))
		for i, id := range e.ParticipantIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		b.WriteString("\nparticipants: ")
		b.WriteString(strings.Join(ids, ", "))
	}
	return b.String()
}
