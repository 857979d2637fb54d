package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"event-scheduler/internal/api"
	"event-scheduler/internal/ics"
	"event-scheduler/internal/model"
)

// participants merges explicit ids with resolved labels. Any label that
// does not resolve rejects the request.
func (h *Handler) participants(ctx context.Context, ids []int64, labels []string) ([]int64, error) {
	if len(labels) == 0 {
		return ids, nil
	}
	resolved, unresolved, err := h.dir.ResolveLabels(ctx, labels)
	if err != nil {
		return nil, h.fail("resolve participants", err)
	}
	if len(unresolved) > 0 {
		return nil, status.Error(codes.InvalidArgument, "unknown participants: "+strings.Join(unresolved, ", "))
	}
	return append(append([]int64{}, ids...), resolved...), nil
}

func (h *Handler) CreateEvent(ctx context.Context, req *api.CreateEventRequest) (*api.EventResult, error) {
	c, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := h.participants(ctx, req.ParticipantIDs, req.ParticipantLabels)
	if err != nil {
		return nil, err
	}

	ev, conflicts, err := h.events.Create(ctx, c.UserID, req.Title, req.StartAt, req.EndAt, ids)
	if err != nil {
		return nil, h.fail("create event", err)
	}
	return result(ev, conflicts), nil
}

func (h *Handler) UpdateEvent(ctx context.Context, req *api.UpdateEventRequest) (*api.EventResult, error) {
	c, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := h.participants(ctx, req.ParticipantIDs, req.ParticipantLabels)
	if err != nil {
		return nil, err
	}

	ev, conflicts, err := h.events.Update(ctx, req.ID, c.UserID, req.Title, req.StartAt, req.EndAt, ids)
	if err != nil {
		return nil, h.fail("update event", err)
	}
	return result(ev, conflicts), nil
}

func (h *Handler) DeleteEvent(ctx context.Context, req *api.EventID) (*api.DeleteEventResponse, error) {
	c, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.events.Delete(ctx, req.ID, c.UserID); err != nil {
		return nil, h.fail("delete event", err)
	}
	return &api.DeleteEventResponse{Deleted: true}, nil
}

func (h *Handler) GetEvent(ctx context.Context, req *api.EventID) (*api.GetEventResponse, error) {
	c, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	ev, err := h.events.Get(ctx, req.ID, c.UserID)
	if err != nil {
		return nil, h.fail("get event", err)
	}
	return &api.GetEventResponse{Event: toAPI(ev)}, nil
}

func (h *Handler) ListEvents(ctx context.Context, _ *api.Empty) (*api.ListEventsResponse, error) {
	c, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	events, err := h.events.ListForUser(ctx, c.UserID)
	if err != nil {
		return nil, h.fail("list events", err)
	}
	out := make([]*api.Event, len(events))
	for i := range events {
		out[i] = toAPI(&events[i])
	}
	return &api.ListEventsResponse{Events: out}, nil
}

// CalendarFeed renders the user's events as iCalendar in their own zone.
func (h *Handler) CalendarFeed(ctx context.Context, userID int64) ([]byte, error) {
	events, err := h.events.ListForUser(ctx, userID)
	if err != nil {
		return nil, h.fail("calendar feed", err)
	}
	tz, err := h.dir.Timezone(ctx, userID)
	if err != nil {
		return nil, h.fail("calendar feed", err)
	}
	return ics.Export(events, ics.Options{
		Host: h.opts.CalendarHost,
		Zone: tz,
		Name: "events",
	}), nil
}

func result(ev *model.Event, conflicts []model.Conflict) *api.EventResult {
	if ev != nil {
		return &api.EventResult{Event: toAPI(ev)}
	}
	out := make([]*api.Conflict, len(conflicts))
	for i, c := range conflicts {
		out[i] = &api.Conflict{
			EventID:                   c.EventID,
			Title:                     c.Title,
			StartAt:                   c.StartAt,
			EndAt:                     c.EndAt,
			ConflictingUserIDs:        c.ConflictingUserIDs,
			CreatorConflict:           c.CreatorConflict,
			ConflictingParticipantIDs: c.ConflictingParticipantIDs,
		}
	}
	return &api.EventResult{Conflicts: out}
}

func toAPI(e *model.Event) *api.Event {
	return &api.Event{
		ID:             e.ID,
		CreatorID:      e.CreatorID,
		Title:          e.Title,
		StartAt:        e.StartAt,
		EndAt:          e.EndAt,
		ParticipantIDs: e.ParticipantIDs,
		Reminded:       e.Reminded,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}
