package review

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier records tasks in the service log. It is the fallback when no
// queue backend is configured, so escalations are never silently dropped.
type LogNotifier struct {
	Log *zap.Logger
}

// NewLogNotifier constructs a log-backed notifier.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{Log: log}
}

// Notify writes the task as a structured log entry.
func (n *LogNotifier) Notify(_ context.Context, task *Task) error {
	n.Log.Warn("escalation requires human review",
		zap.String("user_id", task.UserID),
		zap.String("thread_id", task.ThreadID),
		zap.String("intent", task.Intent),
		zap.String("trigger", task.Trigger),
		zap.String("reply", task.Reply),
	)
	return nil
}
