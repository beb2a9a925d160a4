package agent

import (
	"fmt"

	"careline-chatbot/pkg"
)

// Stage tracks a run's progress through the fixed step sequence. Every run
// passes through every stage in order; no stage is skipped and no
// transition is conditional.
type Stage string

const (
	StageCreated         Stage = "created"
	StageContextResolved Stage = "context_resolved"
	StagePromptComposed  Stage = "prompt_composed"
	StageReplied         Stage = "replied"
	StageGated           Stage = "gated"
	StageDone            Stage = "done"
)

// State is the conversation record threaded through every pipeline step.
// One run owns one State; nothing is shared between concurrent runs.
//
// History is append-only within a run. Profile is written exactly once,
// before the prompt composer reads it. LastReply is set only by the model
// step, Escalated only by the safety gate.
type State struct {
	UserID    string
	ThreadID  string
	Intent    Intent
	History   []pkg.ChatMessage
	Profile   pkg.Profile
	LastReply string
	Escalated bool
	Stage     Stage
}

// NewState validates caller input and builds a fresh run state. Prior
// history is copied so the caller's slice is never mutated. Validation is
// deliberately minimal: a non-empty user ID and well-formed history
// entries; anything else is the pipeline's job.
func NewState(userID, threadID string, prior []pkg.ChatMessage) (*State, error) {
	if userID == "" {
		return nil, &InvalidInputError{Field: "user_id", Reason: "must not be empty"}
	}
	for i, m := range prior {
		if !m.Role.Known() {
			return nil, &InvalidInputError{
				Field:  "history",
				Reason: fmt.Sprintf("entry %d has unrecognized role %q", i, m.Role),
			}
		}
	}
	history := make([]pkg.ChatMessage, len(prior), len(prior)+2)
	copy(history, prior)
	return &State{
		UserID:   userID,
		ThreadID: threadID,
		History:  history,
		Stage:    StageCreated,
	}, nil
}

// Append adds a message to the history. Appending is the only permitted
// history mutation.
func (s *State) Append(role pkg.Role, text string) {
	s.History = append(s.History, pkg.ChatMessage{Role: role, Text: text})
}
