package model

import "time"

type User struct {
	ID   int64
	Name string
	Tag  string
}

type Event struct {
	ID             int64
	CreatorID      int64
	Title          string
	StartAt        time.Time
	EndAt          time.Time
	Reminded       bool
	ParticipantIDs []int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// InvolvedUsers returns the creator followed by the participants.
func (e *Event) InvolvedUsers() []int64 {
	out := make([]int64, 0, len(e.ParticipantIDs)+1)
	out = append(out, e.CreatorID)
	for _, id := range e.ParticipantIDs {
		if id != e.CreatorID {
			out = append(out, id)
		}
	}
	return out
}

// Conflict is an existing event that would double-book at least one of the
// requested users.
type Conflict struct {
	EventID                   int64
	Title                     string
	StartAt                   time.Time
	EndAt                     time.Time
	ConflictingUserIDs        []int64
	CreatorConflict           bool
	ConflictingParticipantIDs []int64
}

// Reminder is a due event handed to the delivery loop.
type Reminder struct {
	EventID    int64
	Title      string
	StartAt    time.Time
	EndAt      time.Time
	Recipients []int64
}
