package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"event-scheduler/internal/model"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("event not found")
	ErrForbidden  = errors.New("only the creator can change this event")
)

const MaxTitleLen = 255

func invalid(rule string) error {
	return fmt.Errorf("%w: %s", ErrValidation, rule)
}

// validate checks a create/update request. now is the instant of the call.
func validate(actorID int64, title string, start, end, now time.Time) (string, error) {
	if actorID <= 0 {
		return "", invalid("user id must be positive")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "", invalid("title required")
	}
	if !utf8.ValidString(title) {
		return "", invalid("title must be valid UTF-8")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return "", invalid(fmt.Sprintf("title longer than %d characters", MaxTitleLen))
	}
	if start.IsZero() || end.IsZero() {
		return "", invalid("start and end required")
	}
	if !end.After(start) {
		return "", invalid("end must be after start")
	}
	if start.Before(now) {
		return "", invalid("start must not be in the past")
	}
	return title, nil
}

// NormalizeParticipants drops non-positive ids and the creator, removes
// duplicates and sorts.
func NormalizeParticipants(creatorID int64, ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 && id != creatorID {
			out = append(out, id)
		}
	}
	sortIDs(out)
	return dedupeSorted(out)
}

// authorize applies the existence check, then the ownership check. The two
// failures stay distinct.
func authorize(e *model.Event, actorID int64) error {
	if e == nil {
		return ErrNotFound
	}
	if e.CreatorID != actorID {
		return ErrForbidden
	}
	return nil
}

// canRead reports whether userID may see the event.
func canRead(e *model.Event, userID int64) bool {
	if e.CreatorID == userID {
		return true
	}
	for _, p := range e.ParticipantIDs {
		if p == userID {
			return true
		}
	}
	return false
}
