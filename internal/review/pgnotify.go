package review

import (
	"context"
	"database/sql"
	"fmt"
)

// DefaultChannel is the Postgres NOTIFY channel for escalations.
const DefaultChannel = "careline_escalations"

// PGNotifier broadcasts tasks over Postgres NOTIFY so a reviewer dashboard
// holding a LISTEN connection sees escalations as they happen. It reuses
// the service's existing connection pool.
type PGNotifier struct {
	DB      *sql.DB
	Channel string
}

// NewPGNotifier constructs a notifier on the given channel. An empty
// channel takes the default.
func NewPGNotifier(db *sql.DB, channel string) *PGNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &PGNotifier{DB: db, Channel: channel}
}

// Notify publishes the encoded task. pg_notify handles identifier quoting
// and the payload length limit is ample for a task.
func (n *PGNotifier) Notify(ctx context.Context, task *Task) error {
	payload, err := task.Encode()
	if err != nil {
		return fmt.Errorf("encode review task: %w", err)
	}
	if _, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, string(payload)); err != nil {
		return fmt.Errorf("notify channel %s: %w", n.Channel, err)
	}
	return nil
}
