package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PGNotifier publishes events with pg_notify so every instance listening on
// the channel sees them.
type PGNotifier struct {
	db      *gorm.DB
	channel string
}

func NewPGNotifier(db *gorm.DB, channel string) *PGNotifier {
	return &PGNotifier{db: db, channel: channel}
}

func (n *PGNotifier) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", n.channel, string(payload)).Error
}

// PGListener LISTENs on a channel and republishes notifications into a
// local publisher. It reconnects with backoff until ctx is done.
type PGListener struct {
	dsn     string
	channel string
	out     Publisher
	log     *zap.Logger

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewPGListener(dsn, channel string, out Publisher, log *zap.Logger) *PGListener {
	if log == nil {
		log = zap.NewNop()
	}
	return &PGListener{
		dsn:        dsn,
		channel:    channel,
		out:        out,
		log:        log,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (l *PGListener) Run(ctx context.Context) {
	backoff := l.minBackoff
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.log.Warn("changefeed listener disconnected", zap.Error(err), zap.Duration("retry_in", backoff))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > l.maxBackoff {
			backoff = l.maxBackoff
		}
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.log.Info("changefeed listener started", zap.String("channel", l.channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, err := DecodeNotification(n.Payload)
		if err != nil {
			l.log.Warn("dropping malformed notification", zap.Error(err))
			continue
		}
		_ = l.out.Publish(ctx, ev)
	}
}

// DecodeNotification parses a pg_notify payload produced by PGNotifier.
func DecodeNotification(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	if ev.Table == "" {
		return Event{}, fmt.Errorf("notification without table")
	}
	return ev, nil
}
