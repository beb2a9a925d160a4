// Package db persists conversation history in Postgres. The pipeline core
// never touches it: the HTTP layer loads prior history before a run and
// stores the appended turns after.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"careline-chatbot/pkg"
)

// Repository wraps history queries over a shared connection pool. The
// caller owns the pool's lifecycle.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a Repository from an existing sql.DB.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// SaveMessage appends one message to a user's history.
func (r *Repository) SaveMessage(ctx context.Context, userID, threadID string, role pkg.Role, content string) (*pkg.StoredMessage, error) {
	var m pkg.StoredMessage
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO messages (user_id, thread_id, role, content)
         VALUES ($1, $2, $3, $4)
         RETURNING id, user_id, thread_id, role, content, created_at`,
		userID, threadID, role, content,
	).Scan(&m.ID, &m.UserID, &m.ThreadID, &m.Role, &m.Text, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	return &m, nil
}

// SaveRun persists the two messages a completed run appended, in order.
func (r *Repository) SaveRun(ctx context.Context, userID, threadID, userText, assistantText string) error {
	if _, err := r.SaveMessage(ctx, userID, threadID, pkg.RoleUser, userText); err != nil {
		return err
	}
	if _, err := r.SaveMessage(ctx, userID, threadID, pkg.RoleAssistant, assistantText); err != nil {
		return err
	}
	return nil
}

// History returns a user's most recent messages in chronological order.
// limit bounds the number of messages; limit <= 0 means no bound.
func (r *Repository) History(ctx context.Context, userID string, limit int) ([]pkg.StoredMessage, error) {
	query := `SELECT id, user_id, thread_id, role, content, created_at
              FROM messages
              WHERE user_id = $1
              ORDER BY created_at DESC, id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []pkg.StoredMessage
	for rows.Next() {
		var m pkg.StoredMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.ThreadID, &m.Role, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// The query walks newest-first for the LIMIT; flip back to oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// PriorHistory loads a user's history in the shape the pipeline consumes.
func (r *Repository) PriorHistory(ctx context.Context, userID string, limit int) ([]pkg.ChatMessage, error) {
	stored, err := r.History(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]pkg.ChatMessage, 0, len(stored))
	for _, m := range stored {
		out = append(out, pkg.ChatMessage{Role: m.Role, Text: m.Text})
	}
	return out, nil
}
