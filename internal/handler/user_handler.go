package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"event-scheduler/internal/api"
	"event-scheduler/internal/auth"
	"event-scheduler/internal/model"
	"event-scheduler/internal/store"
)

// UpsertUser registers or renames the calling user.
func (h *Handler) UpsertUser(ctx context.Context, req *api.UpsertUserRequest) (*api.UpsertUserResponse, error) {
	c, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	uid := req.UserID
	if uid == 0 {
		uid = c.UserID
	}
	if uid != c.UserID {
		return nil, status.Error(codes.PermissionDenied, "can only update yourself")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, status.Error(codes.InvalidArgument, "name required")
	}

	u := &model.User{ID: uid, Name: req.Name, Tag: req.Tag}
	if err := h.dir.UpsertUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrTagTaken) {
			return nil, status.Error(codes.AlreadyExists, "tag already taken")
		}
		return nil, h.fail("upsert user", err)
	}
	return &api.UpsertUserResponse{User: &api.User{UserID: u.ID, Name: u.Name, Tag: u.Tag}}, nil
}

func (h *Handler) ResolveUsers(ctx context.Context, req *api.ResolveUsersRequest) (*api.ResolveUsersResponse, error) {
	ids, unresolved, err := h.dir.ResolveLabels(ctx, req.Labels)
	if err != nil {
		return nil, h.fail("resolve users", err)
	}
	return &api.ResolveUsersResponse{UserIDs: ids, Unresolved: unresolved}, nil
}

// GetTimezone returns a user's zone. Users may only read their own; the
// notifier reads anyone's.
func (h *Handler) GetTimezone(ctx context.Context, req *api.GetTimezoneRequest) (*api.Timezone, error) {
	c, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	uid := req.UserID
	if c.Role == auth.RoleUser {
		if uid == 0 {
			uid = c.UserID
		}
		if uid != c.UserID {
			return nil, status.Error(codes.PermissionDenied, "can only read your own timezone")
		}
	}
	if uid <= 0 {
		return nil, status.Error(codes.InvalidArgument, "user id must be positive")
	}

	tz, err := h.dir.Timezone(ctx, uid)
	if err != nil {
		return nil, h.fail("get timezone", err)
	}
	return &api.Timezone{UserID: uid, Timezone: tz}, nil
}

// SetTimezone stores the caller's zone after checking it is a known IANA name.
func (h *Handler) SetTimezone(ctx context.Context, req *api.Timezone) (*api.Timezone, error) {
	c, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	if req.UserID != 0 && req.UserID != c.UserID {
		return nil, status.Error(codes.PermissionDenied, "can only update your own timezone")
	}
	tz := strings.TrimSpace(req.Timezone)
	if err := checkZone(tz); err != nil {
		return nil, err
	}
	if err := h.dir.SetTimezone(ctx, c.UserID, tz); err != nil {
		return nil, h.fail("set timezone", err)
	}
	return &api.Timezone{UserID: c.UserID, Timezone: tz}, nil
}

func checkZone(tz string) error {
	if tz == "" || tz == "Local" {
		return status.Error(codes.InvalidArgument, "timezone required")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return status.Error(codes.InvalidArgument, "unknown timezone")
	}
	return nil
}
