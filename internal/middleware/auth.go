package middleware

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"event-scheduler/internal/api"
	"event-scheduler/internal/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// skip auth for these
var open = map[string]bool{
	api.FullMethod("IssueToken"): true,
}

// only the delivery loop may call these
var notifierOnly = map[string]bool{
	api.FullMethod("ClaimReminders"): true,
	api.FullMethod("AckReminder"):    true,
}

// either role
var shared = map[string]bool{
	api.FullMethod("GetTimezone"): true,
}

func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok && c != nil
}

// Bearer validates an "Authorization: Bearer <jwt>" value.
func Bearer(header, secret string) (*auth.Claims, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return nil, status.Error(codes.Unauthenticated, "no token")
	}
	claims, err := auth.ParseToken(raw, secret)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "bad token")
	}
	return claims, nil
}

// Allowed reports whether role may call method.
func Allowed(method, role string) bool {
	switch {
	case open[method], shared[method]:
		return true
	case notifierOnly[method]:
		return role == auth.RoleNotifier
	default:
		return role == auth.RoleUser
	}
}

func Auth(secret string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if open[info.FullMethod] {
			return next(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		header := ""
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}
		claims, err := Bearer(header, secret)
		if err != nil {
			return nil, err
		}
		if !Allowed(info.FullMethod, claims.Role) {
			return nil, status.Error(codes.PermissionDenied, "role not allowed")
		}

		return next(WithClaims(ctx, claims), req)
	}
}
