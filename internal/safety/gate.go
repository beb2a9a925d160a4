// Package safety implements the post-reply escalation gate.
package safety

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"careline-chatbot/internal/agent"
	"careline-chatbot/internal/review"
)

// DefaultTriggers is the stock escalation phrase list. Matching is coarse
// on purpose: a false positive costs a reviewer a glance, a false negative
// costs a patient. "urgent" firing inside "urgently" is accepted behavior.
var DefaultTriggers = []string{
	"medication change",
	"severe pain",
	"urgent",
	"dosage",
}

const defaultNotifyTimeout = 3 * time.Second

// Gate scans assistant replies for trigger phrases and files a review task
// when one fires. The notification happens before the decision is
// returned, bounded by a timeout, and a delivery failure never fails the
// run.
type Gate struct {
	triggers      []string
	notifier      review.Notifier
	notifyTimeout time.Duration
	log           *zap.Logger
}

// NewGate builds a gate. Nil or empty triggers take the default list;
// trigger comparison is case-insensitive so phrases are folded once here.
func NewGate(triggers []string, notifier review.Notifier, notifyTimeout time.Duration, log *zap.Logger) *Gate {
	if len(triggers) == 0 {
		triggers = DefaultTriggers
	}
	folded := make([]string, 0, len(triggers))
	for _, t := range triggers {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			folded = append(folded, t)
		}
	}
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{triggers: folded, notifier: notifier, notifyTimeout: notifyTimeout, log: log}
}

// Match returns the first trigger phrase contained in the reply, or "".
// Exact substring containment, no word boundaries, no stemming.
func (g *Gate) Match(reply string) string {
	lowered := strings.ToLower(reply)
	for _, t := range g.triggers {
		if strings.Contains(lowered, t) {
			return t
		}
	}
	return ""
}

// Evaluate decides whether the run's reply needs human follow-up. On a
// trigger it files a review task before returning; the task carries the
// profile and reply so the reviewer has full context.
func (g *Gate) Evaluate(ctx context.Context, run *agent.State) bool {
	trigger := g.Match(run.LastReply)
	if trigger == "" {
		return false
	}

	task := &review.Task{
		UserID:    run.UserID,
		ThreadID:  run.ThreadID,
		Intent:    string(run.Intent),
		Trigger:   trigger,
		Reply:     run.LastReply,
		Profile:   run.Profile,
		CreatedAt: time.Now().UTC(),
	}
	nctx, cancel := context.WithTimeout(ctx, g.notifyTimeout)
	defer cancel()
	if err := g.notifier.Notify(nctx, task); err != nil {
		g.log.Error("failed to deliver review task",
			zap.String("user_id", run.UserID),
			zap.String("trigger", trigger),
			zap.NamedError("cause", err),
			zap.Error(agent.ErrNotificationFailed),
		)
	}
	return true
}
