package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Listener wakes the relay on NOTIFY from the audit store. It holds one
// dedicated pgx connection outside the database/sql pool and reconnects on
// the next Wait if that connection drops.
type Listener struct {
	dsn     string
	channel string
	conn    *pgx.Conn
}

func NewListener(dsn, channel string) *Listener {
	return &Listener{dsn: dsn, channel: channel}
}

func (l *Listener) connect(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("outbox listener connect: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("outbox listener LISTEN: %w", err)
	}
	l.conn = conn
	return nil
}

// Wait returns on the first notification or after timeout. A timeout is not an error.
func (l *Listener) Wait(ctx context.Context, timeout time.Duration) error {
	if l.conn == nil || l.conn.IsClosed() {
		if err := l.connect(ctx); err != nil {
			return err
		}
	}

	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := l.conn.WaitForNotification(wctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || wctx.Err() != nil {
		return nil
	}
	_ = l.conn.Close(context.Background())
	l.conn = nil
	return fmt.Errorf("outbox listener wait: %w", err)
}

func (l *Listener) Close(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	return l.conn.Close(ctx)
}
