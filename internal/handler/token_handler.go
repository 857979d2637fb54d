package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"event-scheduler/internal/api"
	"event-scheduler/internal/auth"
)

// IssueToken trades a client's credentials for a token acting as a user
// (role user) or as the delivery loop (role notifier).
func (h *Handler) IssueToken(ctx context.Context, req *api.IssueTokenRequest) (*api.IssueTokenResponse, error) {
	if req.ClientID == "" || req.ClientSecret == "" {
		return nil, status.Error(codes.InvalidArgument, "client id and secret required")
	}
	role := req.Role
	if role == "" {
		role = auth.RoleUser
	}
	if !auth.ValidRole(role) {
		return nil, status.Error(codes.InvalidArgument, "unknown role")
	}
	if role == auth.RoleUser && req.UserID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "user id must be positive")
	}

	cl, ok := h.opts.Clients.Client(req.ClientID)
	if !ok || !auth.CheckSecret(cl.SecretHash, req.ClientSecret) {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	if !cl.HasRole(role) {
		return nil, status.Error(codes.PermissionDenied, "role not granted to client")
	}

	tok, exp, err := auth.MakeToken(req.UserID, role, cl.ID, h.opts.Secret, h.opts.TokenTTL)
	if err != nil {
		return nil, h.fail("issue token", err)
	}
	h.log.Debug("token issued", "client", cl.ID, "role", role, "user", req.UserID)
	return &api.IssueTokenResponse{Token: tok, ExpiresAt: exp}, nil
}
