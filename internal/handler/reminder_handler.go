package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"event-scheduler/internal/api"
)

func (h *Handler) ClaimReminders(ctx context.Context, _ *api.Empty) (*api.ClaimRemindersResponse, error) {
	due, err := h.reminders.Claim(ctx)
	if err != nil {
		return nil, h.fail("claim reminders", err)
	}
	out := make([]*api.Reminder, len(due))
	for i, r := range due {
		out[i] = &api.Reminder{
			EventID:    r.EventID,
			Title:      r.Title,
			StartAt:    r.StartAt,
			EndAt:      r.EndAt,
			Recipients: r.Recipients,
		}
	}
	return &api.ClaimRemindersResponse{Reminders: out}, nil
}

func (h *Handler) AckReminder(ctx context.Context, req *api.AckReminderRequest) (*api.AckReminderResponse, error) {
	if req.EventID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "event id must be positive")
	}
	ok, err := h.reminders.Acknowledge(ctx, req.EventID)
	if err != nil {
		return nil, h.fail("ack reminder", err)
	}
	return &api.AckReminderResponse{Updated: ok}, nil
}
