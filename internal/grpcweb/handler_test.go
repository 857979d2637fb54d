package grpcweb

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"event-scheduler/internal/api"
	"event-scheduler/internal/auth"
	"event-scheduler/internal/config"
	"event-scheduler/internal/handler"
	"event-scheduler/internal/middleware"
	"event-scheduler/internal/model"
)

const secret = "bridge-secret"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type feedFunc func(ctx context.Context, uid int64) ([]byte, error)

func (f feedFunc) CalendarFeed(ctx context.Context, uid int64) ([]byte, error) { return f(ctx, uid) }

func newBridge(t *testing.T, addr string, feeds Feeds, ping func(context.Context) error) *Bridge {
	t.Helper()
	b, err := New(addr, feeds, ping, secret, discard)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func bearer(t *testing.T, uid int64, role string) string {
	t.Helper()
	tok, _, err := auth.MakeToken(uid, role, "", secret, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func TestUnframe(t *testing.T) {
	good := frame(0, []byte{1, 2, 3})
	tests := []struct {
		name string
		body []byte
		want []byte
		err  bool
	}{
		{"data frame", good, []byte{1, 2, 3}, false},
		{"trailing bytes ignored", append(append([]byte{}, good...), 9), []byte{1, 2, 3}, false},
		{"short", []byte{0, 0}, nil, true},
		{"trailer frame", frame(0x80, []byte("x")), nil, true},
		{"length past end", good[:6], nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unframe(tt.body)
			if (err != nil) != tt.err {
				t.Fatalf("err = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	ok := newBridge(t, "localhost:1", nil, func(context.Context) error { return nil })
	rec := httptest.NewRecorder()
	ok.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthy: %d", rec.Code)
	}

	down := newBridge(t, "localhost:1", nil, func(context.Context) error { return errors.New("db down") })
	rec = httptest.NewRecorder()
	down.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy: %d", rec.Code)
	}
}

func TestCalendarRoute(t *testing.T) {
	feeds := feedFunc(func(_ context.Context, uid int64) ([]byte, error) {
		return []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), nil
	})
	h := newBridge(t, "localhost:1", feeds, nil).Handler()

	tests := []struct {
		name, path, auth string
		code             int
	}{
		{"own feed", "/calendar/7.ics", bearer(t, 7, auth.RoleUser), http.StatusOK},
		{"someone else", "/calendar/8.ics", bearer(t, 7, auth.RoleUser), http.StatusForbidden},
		{"notifier token", "/calendar/7.ics", bearer(t, 7, auth.RoleNotifier), http.StatusForbidden},
		{"no token", "/calendar/7.ics", "", http.StatusUnauthorized},
		{"bad id", "/calendar/abc.ics", bearer(t, 7, auth.RoleUser), http.StatusNotFound},
		{"wrong suffix", "/calendar/7.json", bearer(t, 7, auth.RoleUser), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.code {
				t.Fatalf("code: got %d, want %d (%s)", rec.Code, tt.code, rec.Body)
			}
			if tt.code == http.StatusOK && !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar") {
				t.Errorf("content type: %q", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestRejectsNonGrpcWeb(t *testing.T) {
	h := newBridge(t, "localhost:1", nil, nil).Handler()
	path := api.FullMethod("ListEvents")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, path, nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight: %d %v", rec.Code, rec.Header())
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("json body: %d", rec.Code)
	}
}

type noReminders struct{}

func (noReminders) Claim(context.Context) ([]model.Reminder, error) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	return []model.Reminder{{EventID: 4, Title: "t", StartAt: start, EndAt: start.Add(time.Hour), Recipients: []int64{1}}}, nil
}

func (noReminders) Acknowledge(context.Context, int64) (bool, error) { return true, nil }

// startServer runs the real service stack on a loopback port.
func startServer(t *testing.T) string {
	t.Helper()
	hash, err := auth.HashSecret("pw")
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Clients = []config.Client{{ID: "bot", SecretHash: hash, Roles: []string{auth.RoleNotifier}}}

	h := handler.New(nil, nil, noReminders{}, handler.Options{Secret: secret, Clients: cfg}, discard)
	srv := grpc.NewServer(
		grpc.ForceServerCodec(api.Codec{}),
		grpc.ChainUnaryInterceptor(middleware.Auth(secret)),
	)
	api.RegisterEventServiceServer(srv, h)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

// call posts one grpc-web request and splits the answer into the message
// and the trailer text.
func call(t *testing.T, h http.Handler, method, authz string, msg api.Message) ([]byte, string) {
	t.Helper()
	payload, err := msg.MarshalWire()
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, api.FullMethod(method), bytes.NewReader(frame(0, payload)))
	req.Header.Set("Content-Type", "application/grpc-web+proto")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var data []byte
	var trailer string
	body := rec.Body.Bytes()
	for len(body) >= 5 {
		n := binary.BigEndian.Uint32(body[1:5])
		chunk := body[5 : 5+n]
		if body[0]&0x80 != 0 {
			trailer = string(chunk)
		} else {
			data = chunk
		}
		body = body[5+n:]
	}
	return data, trailer
}

func TestForwardToGRPC(t *testing.T) {
	h := newBridge(t, startServer(t), nil, nil).Handler()

	data, trailer := call(t, h, "IssueToken", "", &api.IssueTokenRequest{ClientID: "bot", ClientSecret: "pw", Role: auth.RoleNotifier})
	if !strings.Contains(trailer, "grpc-status:0") {
		t.Fatalf("issue token trailer: %q", trailer)
	}
	tok := &api.IssueTokenResponse{}
	if err := tok.UnmarshalWire(data); err != nil || tok.Token == "" {
		t.Fatalf("token: %+v %v", tok, err)
	}

	data, trailer = call(t, h, "ClaimReminders", "Bearer "+tok.Token, &api.Empty{})
	if !strings.Contains(trailer, "grpc-status:0") {
		t.Fatalf("claim trailer: %q", trailer)
	}
	claimed := &api.ClaimRemindersResponse{}
	if err := claimed.UnmarshalWire(data); err != nil || len(claimed.Reminders) != 1 || claimed.Reminders[0].EventID != 4 {
		t.Fatalf("claimed: %+v %v", claimed, err)
	}

	_, trailer = call(t, h, "ClaimReminders", "", &api.Empty{})
	if !strings.Contains(trailer, "grpc-status:16") {
		t.Fatalf("unauthenticated trailer: %q", trailer)
	}
}

func TestPercentEncode(t *testing.T) {
	tests := []struct{ in, want string }{
		{"event not found", "event not found"},
		{"100%", "100%25"},
		{"a\r\nb", "a%0D%0Ab"},
		{"zürich", "z%C3%BCrich"},
	}
	for _, tt := range tests {
		if got := percentEncode(tt.in); got != tt.want {
			t.Errorf("percentEncode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestErrorTrailerCannotBeInjected(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, codes.InvalidArgument, "unknown participants: x\r\ngrpc-status:0")

	body := rec.Body.Bytes()
	if len(body) < 5 || body[0] != 0x80 {
		t.Fatalf("not a trailer frame: %q", body)
	}
	trailer := string(body[5:])
	if n := strings.Count(trailer, "grpc-status:"); n != 1 {
		t.Fatalf("trailer has %d status lines: %q", n, trailer)
	}
	if !strings.HasPrefix(trailer, "grpc-status:3\r\n") {
		t.Errorf("trailer: %q", trailer)
	}
}
