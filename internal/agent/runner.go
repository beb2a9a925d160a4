package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"careline-chatbot/pkg"
)

// ContextProvider resolves a user identifier into a patient profile. A real
// deployment backs this with a database or ledger client; tests and local
// development use a static provider. The runner calls it at most once per
// run and treats any failure as ContextUnavailable.
type ContextProvider interface {
	Resolve(ctx context.Context, userID string) (pkg.Profile, error)
}

// ModelInvoker sends the composed system prompt plus conversation history
// to a text-generation backend and returns the assistant reply.
type ModelInvoker interface {
	Invoke(ctx context.Context, systemPrompt string, history []pkg.ChatMessage) (string, error)
}

// EscalationGate inspects a completed reply and decides whether a human
// must follow up. Any notification side effect happens before Evaluate
// returns and must never fail the run.
type EscalationGate interface {
	Evaluate(ctx context.Context, run *State) bool
}

// FallbackReply is returned when the generation backend fails. It must not
// contain any escalation trigger phrase: the gate evaluates it like any
// other reply and a backend outage must not page a reviewer.
const FallbackReply = "I'm sorry, I'm having trouble responding right now. " +
	"Please try again in a few minutes, or reach out to your care team directly if you need immediate help."

// DegradedProfile is substituted when the context lookup fails. The run
// proceeds with it rather than aborting: a generic reply beats no reply
// for a patient-facing assistant.
func DegradedProfile(err error) pkg.Profile {
	return pkg.Profile{
		"name":              "Patient",
		"age":               "Unknown",
		"medical_history":   "No data available",
		pkg.ProfileErrorKey: err.Error(),
	}
}

const (
	defaultContextTimeout = 5 * time.Second
	defaultInvokeTimeout  = 60 * time.Second
)

// RunnerConfig bounds the two blocking steps. Zero values take defaults.
type RunnerConfig struct {
	ContextTimeout time.Duration
	InvokeTimeout  time.Duration
}

// Runner executes the fixed pipeline over a fresh State per incoming
// message. It holds no mutable state of its own, so one Runner serves any
// number of concurrent runs.
type Runner struct {
	provider ContextProvider
	invoker  ModelInvoker
	gate     EscalationGate
	cfg      RunnerConfig
	log      *zap.Logger
}

// NewRunner wires the three capabilities into a pipeline runner.
func NewRunner(provider ContextProvider, invoker ModelInvoker, gate EscalationGate, cfg RunnerConfig, log *zap.Logger) *Runner {
	if cfg.ContextTimeout <= 0 {
		cfg.ContextTimeout = defaultContextTimeout
	}
	if cfg.InvokeTimeout <= 0 {
		cfg.InvokeTimeout = defaultInvokeTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{provider: provider, invoker: invoker, gate: gate, cfg: cfg, log: log}
}

// Run executes one full pass: append the incoming message, resolve
// context, compose the prompt, invoke the model, evaluate the safety gate,
// and return the terminal state. The sequence never branches, never
// retries, and never resumes partially. Only input validation can fail;
// every downstream failure is absorbed into a degraded result.
func (r *Runner) Run(ctx context.Context, userID, threadID, message string, prior []pkg.ChatMessage) (*State, error) {
	st, err := NewState(userID, threadID, prior)
	if err != nil {
		return nil, err
	}
	st.Intent = RecognizeIntent(message)
	st.Append(pkg.RoleUser, message)

	st.Profile = r.resolveContext(ctx, userID)
	st.Stage = StageContextResolved

	// Composed exactly once per run; the invoker prepends it exactly once.
	systemPrompt := ComposePrompt(st.Profile)
	st.Stage = StagePromptComposed

	st.LastReply = r.generateReply(ctx, systemPrompt, st.History)
	st.Append(pkg.RoleAssistant, st.LastReply)
	st.Stage = StageReplied

	st.Escalated = r.gate.Evaluate(ctx, st)
	st.Stage = StageGated

	st.Stage = StageDone
	r.log.Info("run complete",
		zap.String("user_id", st.UserID),
		zap.String("thread_id", st.ThreadID),
		zap.String("intent", string(st.Intent)),
		zap.Bool("escalated", st.Escalated),
		zap.Bool("degraded_profile", st.Profile.Degraded()),
	)
	return st, nil
}

func (r *Runner) resolveContext(ctx context.Context, userID string) pkg.Profile {
	cctx, cancel := context.WithTimeout(ctx, r.cfg.ContextTimeout)
	defer cancel()
	profile, err := r.provider.Resolve(cctx, userID)
	if err != nil {
		r.log.Warn("context lookup failed, proceeding with degraded profile",
			zap.String("user_id", userID),
			zap.NamedError("cause", err),
			zap.Error(ErrContextUnavailable),
		)
		return DegradedProfile(err)
	}
	return profile
}

func (r *Runner) generateReply(ctx context.Context, systemPrompt string, history []pkg.ChatMessage) string {
	ictx, cancel := context.WithTimeout(ctx, r.cfg.InvokeTimeout)
	defer cancel()
	reply, err := r.invoker.Invoke(ictx, systemPrompt, history)
	if err != nil {
		r.log.Warn("generation failed, substituting fallback reply",
			zap.NamedError("cause", err),
			zap.Error(ErrGenerationUnavailable),
		)
		return FallbackReply
	}
	if reply == "" {
		// An empty completion reads like a failure to the patient.
		return FallbackReply
	}
	return reply
}
