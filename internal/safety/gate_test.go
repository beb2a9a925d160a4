package safety

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careline-chatbot/internal/agent"
	"careline-chatbot/internal/review"
	"careline-chatbot/pkg"
)

type captureNotifier struct {
	tasks []*review.Task
	err   error
}

func (c *captureNotifier) Notify(_ context.Context, task *review.Task) error {
	if c.err != nil {
		return c.err
	}
	c.tasks = append(c.tasks, task)
	return nil
}

func runWithReply(reply string) *agent.State {
	return &agent.State{
		UserID:    "patient-123",
		ThreadID:  "t-1",
		Intent:    agent.IntentGeneral,
		Profile:   pkg.Profile{"name": "Jane Doe"},
		LastReply: reply,
	}
}

func TestMatchCaseInsensitiveSubstring(t *testing.T) {
	g := NewGate(nil, &captureNotifier{}, 0, nil)
	cases := []struct {
		reply string
		want  string
	}{
		{"You may need a DOSAGE adjustment.", "dosage"},
		{"Please treat this Urgently.", "urgent"}, // substring inside a word fires on purpose
		{"A medication change could be discussed with your doctor.", "medication change"},
		{"If you feel severe pain, call your provider.", "severe pain"},
		{"Drink plenty of water and rest.", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, g.Match(tc.reply), "reply: %q", tc.reply)
	}
}

func TestEvaluateIffTriggerPresent(t *testing.T) {
	n := &captureNotifier{}
	g := NewGate(nil, n, 0, nil)

	assert.False(t, g.Evaluate(context.Background(), runWithReply("Stay hydrated and rest well.")))
	assert.Empty(t, n.tasks, "no notification without a trigger")

	assert.True(t, g.Evaluate(context.Background(), runWithReply("This is urgent.")))
	assert.Len(t, n.tasks, 1)
}

func TestEvaluateNotificationCarriesContext(t *testing.T) {
	n := &captureNotifier{}
	g := NewGate(nil, n, 0, nil)
	run := runWithReply("Ask your doctor about a medication change.")

	require.True(t, g.Evaluate(context.Background(), run))
	require.Len(t, n.tasks, 1)
	task := n.tasks[0]
	assert.Equal(t, run.LastReply, task.Reply)
	assert.Equal(t, run.Profile, task.Profile)
	assert.Equal(t, "medication change", task.Trigger)
	assert.WithinDuration(t, time.Now().UTC(), task.CreatedAt, time.Minute)
}

func TestEvaluateNotifyFailureStillEscalates(t *testing.T) {
	g := NewGate(nil, &captureNotifier{err: errors.New("redis down")}, 0, nil)
	assert.True(t, g.Evaluate(context.Background(), runWithReply("urgent")))
}

func TestCustomTriggersFolded(t *testing.T) {
	n := &captureNotifier{}
	g := NewGate([]string{"  Chest Pain ", ""}, n, 0, nil)

	assert.Equal(t, "chest pain", g.Match("I have CHEST PAIN right now"))
	assert.Equal(t, "", g.Match("this is urgent"), "custom list replaces the default list")
}

func TestDefaultTriggerList(t *testing.T) {
	assert.Equal(t, []string{"medication change", "severe pain", "urgent", "dosage"}, DefaultTriggers)
}
