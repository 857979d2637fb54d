package api

import "time"

type IssueTokenRequest struct {
	ClientID     string
	ClientSecret string
	UserID       int64
	Role         string
}

func (m *IssueTokenRequest) MarshalWire() ([]byte, error) {
	var e encoder
	e.string(1, m.ClientID)
	e.string(2, m.ClientSecret)
	e.int64(3, m.UserID)
	e.string(4, m.Role)
	return e.result()
}

func (m *IssueTokenRequest) UnmarshalWire(b []byte) error {
	*m = IssueTokenRequest{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.ClientID, err = f.string()
		case 2:
			m.ClientSecret, err = f.string()
		case 3:
			m.UserID, err = f.int64()
		case 4:
			m.Role, err = f.string()
		}
		return err
	})
}

type IssueTokenResponse struct {
	Token     string
	ExpiresAt time.Time
}

func (m *IssueTokenResponse) MarshalWire() ([]byte, error) {
	var e encoder
	e.string(1, m.Token)
	e.time(2, m.ExpiresAt)
	return e.result()
}

func (m *IssueTokenResponse) UnmarshalWire(b []byte) error {
	*m = IssueTokenResponse{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Token, err = f.string()
		case 2:
			m.ExpiresAt, err = f.time()
		}
		return err
	})
}

type User struct {
	UserID int64
	Name   string
	Tag    string
}

func (m *User) MarshalWire() ([]byte, error) {
	var e encoder
	e.int64(1, m.UserID)
	e.string(2, m.Name)
	e.string(3, m.Tag)
	return e.result()
}

func (m *User) UnmarshalWire(b []byte) error {
	*m = User{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.UserID, err = f.int64()
		case 2:
			m.Name, err = f.string()
		case 3:
			m.Tag, err = f.string()
		}
		return err
	})
}

// UpsertUserRequest carries the same fields as User.
type UpsertUserRequest = User

type UpsertUserResponse struct {
	User *User
}

func (m *UpsertUserResponse) MarshalWire() ([]byte, error) {
	var e encoder
	if m.User != nil {
		e.message(1, m.User)
	}
	return e.result()
}

func (m *UpsertUserResponse) UnmarshalWire(b []byte) error {
	*m = UpsertUserResponse{}
	return walk(b, func(f field) error {
		if f.num == 1 {
			m.User = &User{}
			return f.message(m.User)
		}
		return nil
	})
}

type ResolveUsersRequest struct {
	Labels []string
}

func (m *ResolveUsersRequest) MarshalWire() ([]byte, error) {
	var e encoder
	e.strings(1, m.Labels)
	return e.result()
}

func (m *ResolveUsersRequest) UnmarshalWire(b []byte) error {
	*m = ResolveUsersRequest{}
	return walk(b, func(f field) error {
		if f.num == 1 {
			s, err := f.string()
			if err != nil {
				return err
			}
			m.Labels = append(m.Labels, s)
		}
		return nil
	})
}

type ResolveUsersResponse struct {
	UserIDs    []int64
	Unresolved []string
}

func (m *ResolveUsersResponse) MarshalWire() ([]byte, error) {
	var e encoder
	e.int64s(1, m.UserIDs)
	e.strings(2, m.Unresolved)
	return e.result()
}

func (m *ResolveUsersResponse) UnmarshalWire(b []byte) error {
	*m = ResolveUsersResponse{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.UserIDs, err = f.appendInt64s(m.UserIDs)
		case 2:
			var s string
			if s, err = f.string(); err == nil {
				m.Unresolved = append(m.Unresolved, s)
			}
		}
		return err
	})
}

type GetTimezoneRequest struct {
	UserID int64
}

func (m *GetTimezoneRequest) MarshalWire() ([]byte, error) {
	var e encoder
	e.int64(1, m.UserID)
	return e.result()
}

func (m *GetTimezoneRequest) UnmarshalWire(b []byte) error {
	*m = GetTimezoneRequest{}
	return walk(b, func(f field) (err error) {
		if f.num == 1 {
			m.UserID, err = f.int64()
		}
		return err
	})
}

// Timezone is both the SetTimezone request and the response of the two
// timezone calls.
type Timezone struct {
	UserID   int64
	Timezone string
}

func (m *Timezone) MarshalWire() ([]byte, error) {
	var e encoder
	e.int64(1, m.UserID)
	e.string(2, m.Timezone)
	return e.result()
}

func (m *Timezone) UnmarshalWire(b []byte) error {
	*m = Timezone{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.UserID, err = f.int64()
		case 2:
			m.Timezone, err = f.string()
		}
		return err
	})
}

type Event struct {
	ID             int64
	CreatorID      int64
	Title          string
	StartAt        time.Time
	EndAt          time.Time
	ParticipantIDs []int64
	Reminded       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (m *Event) MarshalWire() ([]byte, error) {
	var e encoder
	e.int64(1, m.ID)
	e.int64(2, m.CreatorID)
	e.string(3, m.Title)
	e.time(4, m.StartAt)
	e.time(5, m.EndAt)
	e.int64s(6, m.ParticipantIDs)
	e.bool(7, m.Reminded)
	e.time(8, m.CreatedAt)
	e.time(9, m.UpdatedAt)
	return e.result()
}

func (m *Event) UnmarshalWire(b []byte) error {
	*m = Event{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.ID, err = f.int64()
		case 2:
			m.CreatorID, err = f.int64()
		case 3:
			m.Title, err = f.string()
		case 4:
			m.StartAt, err = f.time()
		case 5:
			m.EndAt, err = f.time()
		case 6:
			m.ParticipantIDs, err = f.appendInt64s(m.ParticipantIDs)
		case 7:
			m.Reminded, err = f.bool()
		case 8:
			m.CreatedAt, err = f.time()
		case 9:
			m.UpdatedAt, err = f.time()
		}
		return err
	})
}

type Conflict struct {
	EventID                   int64
	Title                     string
	StartAt                   time.Time
	EndAt                     time.Time
	ConflictingUserIDs        []int64
	CreatorConflict           bool
	ConflictingParticipantIDs []int64
}

func (m *Conflict) MarshalWire() ([]byte, error) {
	var e encoder
	e.int64(1, m.EventID)
	e.string(2, m.Title)
	e.time(3, m.StartAt)
	e.time(4, m.EndAt)
	e.int64s(5, m.ConflictingUserIDs)
	e.bool(6, m.CreatorConflict)
	e.int64s(7, m.ConflictingParticipantIDs)
	return e.result()
}

func (m *Conflict) UnmarshalWire(b []byte) error {
	*m = Conflict{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.EventID, err = f.int64()
		case 2:
			m.Title, err = f.string()
		case 3:
			m.StartAt, err = f.time()
		case 4:
			m.EndAt, err = f.time()
		case 5:
			m.ConflictingUserIDs, err = f.appendInt64s(m.ConflictingUserIDs)
		case 6:
			m.CreatorConflict, err = f.bool()
		case 7:
			m.ConflictingParticipantIDs, err = f.appendInt64s(m.ConflictingParticipantIDs)
		}
		return err
	})
}

// CreateEventRequest takes participants as user ids, labels or both.
// Labels are resolved to ids before the event is checked.
type CreateEventRequest struct {
	Title             string
	StartAt           time.Time
	EndAt             time.Time
	ParticipantIDs    []int64
	ParticipantLabels []string
}

func (m *CreateEventRequest) MarshalWire() ([]byte, error) {
	var e encoder
	e.string(1, m.Title)
	e.time(2, m.StartAt)
	e.time(3, m.EndAt)
	e.int64s(4, m.ParticipantIDs)
	e.strings(5, m.ParticipantLabels)
	return e.result()
}

func (m *CreateEventRequest) UnmarshalWire(b []byte) error {
	*m = CreateEventRequest{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Title, err = f.string()
		case 2:
			m.StartAt, err = f.time()
		case 3:
			m.EndAt, err = f.time()
		case 4:
			m.ParticipantIDs, err = f.appendInt64s(m.ParticipantIDs)
		case 5:
			var s string
			if s, err = f.string(); err == nil {
				m.ParticipantLabels = append(m.ParticipantLabels, s)
			}
		}
		return err
	})
}

type UpdateEventRequest struct {
	ID                int64
	Title             string
	StartAt           time.Time
	EndAt             time.Time
	ParticipantIDs    []int64
	ParticipantLabels []string
}

func (m *UpdateEventRequest) MarshalWire() ([]byte, error) {
	var e encoder
	e.int64(1, m.ID)
	e.string(2, m.Title)
	e.time(3, m.StartAt)
	e.time(4, m.EndAt)
	e.int64s(5, m.ParticipantIDs)
	e.strings(6, m.ParticipantLabels)
	return e.result()
}

func (m *UpdateEventRequest) UnmarshalWire(b []byte) error {
	*m = UpdateEventRequest{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.ID, err = f.int64()
		case 2:
			m.Title, err = f.string()
		case 3:
			m.StartAt, err = f.time()
		case 4:
			m.EndAt, err = f.time()
		case 5:
			m.ParticipantIDs, err = f.appendInt64s(m.ParticipantIDs)
		case 6:
			var s string
			if s, err = f.string(); err == nil {
				m.ParticipantLabels = append(m.ParticipantLabels, s)
			}
		}
		return err
	})
}

// EventResult answers CreateEvent and UpdateEvent: either Event is set or
// Conflicts is non-empty.
type EventResult struct {
	Event     *Event
	Conflicts []*Conflict
}

func (m *EventResult) MarshalWire() ([]byte, error) {
	var e encoder
	if m.Event != nil {
		e.message(1, m.Event)
	}
	for _, c := range m.Conflicts {
		e.message(2, c)
	}
	return e.result()
}

func (m *EventResult) UnmarshalWire(b []byte) error {
	*m = EventResult{}
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Event = &Event{}
			return f.message(m.Event)
		case 2:
			c := &Conflict{}
			if err := f.message(c); err != nil {
				return err
			}
			m.Conflicts = append(m.Conflicts, c)
		}
		return nil
	})
}

// EventID is the request of GetEvent and DeleteEvent.
type EventID struct {
	ID int64
}

func (m *EventID) MarshalWire() ([]byte, error) {
	var e encoder
	e.int64(1, m.ID)
	return e.result()
}

func (m *EventID) UnmarshalWire(b []byte) error {
	*m = EventID{}
	return walk(b, func(f field) (err error) {
		if f.num == 1 {
			m.ID, err = f.int64()
		}
		return err
	})
}

type GetEventResponse struct {
	Event *Event
}

func (m *GetEventResponse) MarshalWire() ([]byte, error) {
	var e encoder
	if m.Event != nil {
		e.message(1, m.Event)
	}
	return e.result()
}

func (m *GetEventResponse) UnmarshalWire(b []byte) error {
	*m = GetEventResponse{}
	return walk(b, func(f field) error {
		if f.num == 1 {
			m.Event = &Event{}
			return f.message(m.Event)
		}
		return nil
	})
}

type DeleteEventResponse struct {
	Deleted bool
}

func (m *DeleteEventResponse) MarshalWire() ([]byte, error) {
	var e encoder
	e.bool(1, m.Deleted)
	return e.result()
}

func (m *DeleteEventResponse) UnmarshalWire(b []byte) error {
	*m = DeleteEventResponse{}
	return walk(b, func(f field) (err error) {
		if f.num == 1 {
			m.Deleted, err = f.bool()
		}
		return err
	})
}

// Empty is the request of ListEvents and ClaimReminders.
type Empty struct{}

func (*Empty) MarshalWire() ([]byte, error) { return nil, nil }

func (*Empty) UnmarshalWire(b []byte) error {
	return walk(b, func(field) error { return nil })
}

type ListEventsResponse struct {
	Events []*Event
}

func (m *ListEventsResponse) MarshalWire() ([]byte, error) {
	var e encoder
	for _, ev := range m.Events {
		e.message(1, ev)
	}
	return e.result()
}

func (m *ListEventsResponse) UnmarshalWire(b []byte) error {
	*m = ListEventsResponse{}
	return walk(b, func(f field) error {
		if f.num == 1 {
			ev := &Event{}
			if err := f.message(ev); err != nil {
				return err
			}
			m.Events = append(m.Events, ev)
		}
		return nil
	})
}

type Reminder struct {
	EventID    int64
	Title      string
	StartAt    time.Time
	EndAt      time.Time
	Recipients []int64
}

func (m *Reminder) MarshalWire() ([]byte, error) {
	var e encoder
	e.int64(1, m.EventID)
	e.string(2, m.Title)
	e.time(3, m.StartAt)
	e.time(4, m.EndAt)
	e.int64s(5, m.Recipients)
	return e.result()
}

func (m *Reminder) UnmarshalWire(b []byte) error {
	*m = Reminder{}
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.EventID, err = f.int64()
		case 2:
			m.Title, err = f.string()
		case 3:
			m.StartAt, err = f.time()
		case 4:
			m.EndAt, err = f.time()
		case 5:
			m.Recipients, err = f.appendInt64s(m.Recipients)
		}
		return err
	})
}

type ClaimRemindersResponse struct {
	Reminders []*Reminder
}

func (m *ClaimRemindersResponse) MarshalWire() ([]byte, error) {
	var e encoder
	for _, r := range m.Reminders {
		e.message(1, r)
	}
	return e.result()
}

func (m *ClaimRemindersResponse) UnmarshalWire(b []byte) error {
	*m = ClaimRemindersResponse{}
	return walk(b, func(f field) error {
		if f.num == 1 {
			r := &Reminder{}
			if err := f.message(r); err != nil {
				return err
			}
			m.Reminders = append(m.Reminders, r)
		}
		return nil
	})
}

type AckReminderRequest struct {
	EventID int64
}

func (m *AckReminderRequest) MarshalWire() ([]byte, error) {
	var e encoder
	e.int64(1, m.EventID)
	return e.result()
}

func (m *AckReminderRequest) UnmarshalWire(b []byte) error {
	*m = AckReminderRequest{}
	return walk(b, func(f field) (err error) {
		if f.num == 1 {
			m.EventID, err = f.int64()
		}
		return err
	})
}

type AckReminderResponse struct {
	Updated bool
}

func (m *AckReminderResponse) MarshalWire() ([]byte, error) {
	var e encoder
	e.bool(1, m.Updated)
	return e.result()
}

func (m *AckReminderResponse) UnmarshalWire(b []byte) error {
	*m = AckReminderResponse{}
	return walk(b, func(f field) (err error) {
		if f.num == 1 {
			m.Updated, err = f.bool()
		}
		return err
	})
}
