package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"event-scheduler/internal/api"
	"event-scheduler/internal/auth"
	"event-scheduler/internal/calendar"
	"event-scheduler/internal/config"
	"event-scheduler/internal/middleware"
	"event-scheduler/internal/model"
)

// Directory is the participant resolver and timezone lookup.
// *store.Store satisfies it.
type Directory interface {
	UpsertUser(ctx context.Context, u *model.User) error
	ResolveLabels(ctx context.Context, labels []string) ([]int64, []string, error)
	Timezone(ctx context.Context, userID int64) (string, error)
	SetTimezone(ctx context.Context, userID int64, tz string) error
}

// Reminders is the claim queue. *reminder.Queue satisfies it.
type Reminders interface {
	Claim(ctx context.Context) ([]model.Reminder, error)
	Acknowledge(ctx context.Context, eventID int64) (bool, error)
}

// Clients looks up token-issuing clients. *config.Config satisfies it.
type Clients interface {
	Client(id string) (*config.Client, bool)
}

type Options struct {
	Secret   string
	TokenTTL time.Duration
	Clients  Clients
	// CalendarHost is the UID domain of exported feeds.
	CalendarHost string
}

type Handler struct {
	events    *calendar.Service
	dir       Directory
	reminders Reminders
	opts      Options
	log       *slog.Logger
}

var _ api.EventServiceServer = (*Handler)(nil)

func New(events *calendar.Service, dir Directory, reminders Reminders, opts Options, logger *slog.Logger) *Handler {
	return &Handler{events: events, dir: dir, reminders: reminders, opts: opts, log: logger}
}

// actor returns the claims put in the context by middleware.Auth.
func actor(ctx context.Context) (*auth.Claims, error) {
	c, ok := middleware.ClaimsFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no token")
	}
	return c, nil
}

// fail maps core errors to status codes. Unknown errors are logged and
// hidden behind Internal.
func (h *Handler) fail(op string, err error) error {
	switch {
	case errors.Is(err, calendar.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, calendar.ErrNotFound):
		return status.Error(codes.NotFound, "event not found")
	case errors.Is(err, calendar.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	h.log.Error(op+" failed", "err", err)
	return status.Error(codes.Internal, "internal error")
}
