// Package client talks to a running event service as the notifier role.
// It backs the standalone notify command.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"event-scheduler/internal/api"
	"event-scheduler/internal/auth"
	"event-scheduler/internal/model"
)

// refreshBefore is how long before expiry a token is replaced.
const refreshBefore = 30 * time.Second

type Client struct {
	rpc          *api.EventServiceClient
	conn         *grpc.ClientConn
	clientID     string
	clientSecret string
	now          func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// Dial connects to addr without TLS. The connection is established lazily.
func Dial(addr, clientID, clientSecret string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c := NewWithConn(conn, clientID, clientSecret)
	c.conn = conn
	return c, nil
}

// NewWithConn uses an existing connection, which the caller keeps owning.
func NewWithConn(cc grpc.ClientConnInterface, clientID, clientSecret string) *Client {
	return &Client{
		rpc:          api.NewEventServiceClient(cc),
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// authorized returns ctx carrying a valid notifier token, fetching a new
// one when the cached token is missing or about to expire.
func (c *Client) authorized(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" || !c.now().Add(refreshBefore).Before(c.expires) {
		resp, err := c.rpc.IssueToken(ctx, &api.IssueTokenRequest{
			ClientID:     c.clientID,
			ClientSecret: c.clientSecret,
			Role:         auth.RoleNotifier,
		})
		if err != nil {
			return nil, fmt.Errorf("issue token: %w", err)
		}
		c.token, c.expires = resp.Token, resp.ExpiresAt
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token), nil
}

func (c *Client) Claim(ctx context.Context) ([]model.Reminder, error) {
	ctx, err := c.authorized(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.rpc.ClaimReminders(ctx, &api.Empty{})
	if err != nil {
		return nil, fmt.Errorf("claim reminders: %w", err)
	}
	out := make([]model.Reminder, 0, len(resp.Reminders))
	for _, r := range resp.Reminders {
		out = append(out, model.Reminder{
			EventID:    r.EventID,
			Title:      r.Title,
			StartAt:    r.StartAt,
			EndAt:      r.EndAt,
			Recipients: r.Recipients,
		})
	}
	return out, nil
}

func (c *Client) Acknowledge(ctx context.Context, eventID int64) (bool, error) {
	ctx, err := c.authorized(ctx)
	if err != nil {
		return false, err
	}
	resp, err := c.rpc.AckReminder(ctx, &api.AckReminderRequest{EventID: eventID})
	if err != nil {
		return false, fmt.Errorf("ack reminder %d: %w", eventID, err)
	}
	return resp.Updated, nil
}

func (c *Client) Timezone(ctx context.Context, userID int64) (string, error) {
	ctx, err := c.authorized(ctx)
	if err != nil {
		return "", err
	}
	resp, err := c.rpc.GetTimezone(ctx, &api.GetTimezoneRequest{UserID: userID})
	if err != nil {
		return "", fmt.Errorf("timezone of %d: %w", userID, err)
	}
	return resp.Timezone, nil
}
