// Package notifier is the reminder delivery loop. It polls a claim source
// on a fixed interval, notifies every recipient of each due event and
// acknowledges the events that reached all of them.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"event-scheduler/internal/model"
)

const (
	DefaultInterval = 30 * time.Second
	MinInterval     = 5 * time.Second
)

// Source hands out due reminders and records full deliveries.
// *reminder.Queue and *client.Client both satisfy it.
type Source interface {
	Claim(ctx context.Context) ([]model.Reminder, error)
	Acknowledge(ctx context.Context, eventID int64) (bool, error)
}

// Zones looks up a user's IANA zone name.
type Zones interface {
	Timezone(ctx context.Context, userID int64) (string, error)
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one reminder addressed to one recipient.
type Message struct {
	Recipient  int64
	EventID    int64
	Title      string
	StartAt    time.Time
	LocalStart time.Time
	Zone       string
	Text       string
}

// Result counts what one poll did.
type Result struct {
	Claimed   int
	Delivered int
	Failed    int
}

type Loop struct {
	src      Source
	send     Sender
	zones    Zones
	interval time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// New builds a loop polling every interval. Zero means DefaultInterval and
// anything shorter than MinInterval is raised to it. zones may be nil, in
// which case start times are rendered in UTC.
func New(src Source, send Sender, zones Zones, interval time.Duration, logger *slog.Logger) *Loop {
	if interval == 0 {
		interval = DefaultInterval
	}
	if interval < MinInterval {
		interval = MinInterval
	}
	return &Loop{src: src, send: send, zones: zones, interval: interval, log: logger}
}

func (l *Loop) Interval() time.Duration { return l.interval }

// Start schedules the poll. Polls never overlap: a tick that arrives while
// the previous poll is still running is skipped.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cron != nil {
		return errors.New("notifier already started")
	}

	lg := cronLogger{l.log}
	c := cron.New(
		cron.WithLogger(lg),
		cron.WithChain(cron.Recover(lg), cron.SkipIfStillRunning(lg)),
	)
	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.AddFunc(fmt.Sprintf("@every %s", l.interval), func() {
		l.tick(ctx)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("schedule poll: %w", err)
	}

	l.cron, l.cancel = c, cancel
	c.Start()
	l.log.Info("notifier started", "interval", l.interval)
	return nil
}

// Stop halts scheduling and waits for an in-flight poll. If ctx ends first
// the poll is cancelled and still awaited.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	c, cancel := l.cron, l.cancel
	l.cron, l.cancel = nil, nil
	l.mu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop()
	select {
	case <-done.Done():
		cancel()
		l.log.Info("notifier stopped")
		return nil
	case <-ctx.Done():
		cancel()
		<-done.Done()
		l.log.Warn("notifier stopped with poll cancelled")
		return ctx.Err()
	}
}

func (l *Loop) tick(ctx context.Context) {
	log := l.log.With("poll", uuid.NewString())
	res, err := l.Poll(ctx)
	if err != nil {
		log.Error("poll failed", "err", err)
		return
	}
	if res.Claimed > 0 {
		log.Info("poll done", "claimed", res.Claimed, "delivered", res.Delivered, "failed", res.Failed)
	}
}

// Poll runs one claim/send/acknowledge cycle. An event is acknowledged only
// when every recipient got the message; otherwise it stays pending and is
// offered again by a later poll.
func (l *Loop) Poll(ctx context.Context) (Result, error) {
	var res Result
	reminders, err := l.src.Claim(ctx)
	if err != nil {
		return res, fmt.Errorf("claim: %w", err)
	}
	res.Claimed = len(reminders)

	for _, r := range reminders {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !l.deliver(ctx, r) {
			res.Failed++
			continue
		}
		ok, err := l.src.Acknowledge(ctx, r.EventID)
		if err != nil {
			l.log.Error("acknowledge failed", "event", r.EventID, "err", err)
			res.Failed++
			continue
		}
		if ok {
			res.Delivered++
		}
	}
	return res, nil
}

func (l *Loop) deliver(ctx context.Context, r model.Reminder) bool {
	all := true
	for _, uid := range r.Recipients {
		msg := l.render(ctx, uid, r)
		if err := l.send.Send(ctx, msg); err != nil {
			l.log.Warn("reminder not delivered", "event", r.EventID, "recipient", uid, "err", err)
			all = false
		}
	}
	return all
}

func (l *Loop) render(ctx context.Context, uid int64, r model.Reminder) Message {
	loc := l.location(ctx, uid)
	local := r.StartAt.In(loc)
	return Message{
		Recipient:  uid,
		EventID:    r.EventID,
		Title:      r.Title,
		StartAt:    r.StartAt,
		LocalStart: local,
		Zone:       loc.String(),
		Text:       fmt.Sprintf("Reminder: %q starts at %s (%s)", r.Title, local.Format("15:04"), loc),
	}
}

// location falls back to UTC when the lookup fails or names an unknown zone.
func (l *Loop) location(ctx context.Context, uid int64) *time.Location {
	if l.zones == nil {
		return time.UTC
	}
	name, err := l.zones.Timezone(ctx, uid)
	if err != nil {
		l.log.Warn("timezone lookup failed", "user", uid, "err", err)
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		l.log.Warn("unknown timezone", "user", uid, "zone", name)
		return time.UTC
	}
	return loc
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
