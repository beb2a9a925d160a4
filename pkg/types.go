package pkg

import "time"

// Role identifies who authored a chat message. The pipeline recognizes
// exactly three roles; anything else is rejected at the boundary.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Known reports whether r is one of the recognized roles.
func (r Role) Known() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// ChatMessage is one turn of a conversation. History is represented as an
// ordered slice of these, oldest first.
type ChatMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Profile maps patient attribute names to their values. Absent keys mean
// "unknown", never an error. The reserved key "error" marks a profile that
// was degraded because the underlying lookup failed.
type Profile map[string]string

// ProfileErrorKey marks a degraded profile. The prompt composer skips it
// when rendering attributes.
const ProfileErrorKey = "error"

// Degraded reports whether the profile carries the lookup-failure marker.
func (p Profile) Degraded() bool {
	_, ok := p[ProfileErrorKey]
	return ok
}

// StoredMessage is a persisted chat message as returned by the history
// repository.
type StoredMessage struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	ThreadID  string    `json:"thread_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	UserID   string `json:"user_id"`
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
}

// ChatResponse carries the terminal pipeline state back to the client.
type ChatResponse struct {
	Reply     string  `json:"reply"`
	Escalated bool    `json:"escalated"`
	UserID    string  `json:"user_id"`
	ThreadID  string  `json:"thread_id"`
	Profile   Profile `json:"profile,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}
