// Package review delivers escalation tasks to the human-review queue.
// Delivery is best-effort: the safety gate bounds it with a timeout and a
// failed delivery is logged, never surfaced to the patient.
package review

import (
	"context"
	"encoding/json"
	"time"

	"careline-chatbot/pkg"
)

// Task is the artifact a human reviewer sees: the profile the reply was
// generated against, the reply itself, and which trigger fired.
type Task struct {
	UserID    string      `json:"user_id"`
	ThreadID  string      `json:"thread_id"`
	Intent    string      `json:"intent"`
	Trigger   string      `json:"trigger"`
	Reply     string      `json:"reply"`
	Profile   pkg.Profile `json:"profile"`
	CreatedAt time.Time   `json:"created_at"`
}

// Encode renders the task as JSON for queue transports.
func (t *Task) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// Notifier delivers a task to wherever reviewers are watching. Implementations
// must respect ctx deadlines; the gate never waits indefinitely.
type Notifier interface {
	Notify(ctx context.Context, task *Task) error
}
