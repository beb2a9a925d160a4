package profile

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"careline-chatbot/pkg"
)

// PostgresProvider resolves patient profiles from the patients table. A
// missing row is a lookup failure like any other: the runner substitutes
// the degraded profile and the patient still gets a reply.
type PostgresProvider struct {
	DB *sql.DB
}

// NewPostgresProvider wraps an existing connection pool. The caller owns
// the pool's lifecycle.
func NewPostgresProvider(db *sql.DB) *PostgresProvider {
	return &PostgresProvider{DB: db}
}

// Resolve loads the patient row for userID and flattens it into a profile.
// Array columns are joined into comma-separated attribute values so the
// prompt composer can render them directly.
func (p *PostgresProvider) Resolve(ctx context.Context, userID string) (pkg.Profile, error) {
	var (
		name        string
		age         sql.NullInt64
		history     sql.NullString
		lastVisit   sql.NullTime
		diagnoses   []string
		medications []string
		allergies   []string
	)
	err := p.DB.QueryRowContext(ctx,
		`SELECT name, age, medical_history, diagnoses, medications, allergies, last_visit
         FROM patients
         WHERE user_id = $1`,
		userID,
	).Scan(&name, &age, &history, pq.Array(&diagnoses), pq.Array(&medications), pq.Array(&allergies), &lastVisit)
	if err != nil {
		return nil, fmt.Errorf("lookup patient %s: %w", userID, err)
	}

	profile := pkg.Profile{"name": name}
	if age.Valid {
		profile["age"] = fmt.Sprintf("%d", age.Int64)
	}
	if history.Valid && history.String != "" {
		profile["medical_history"] = history.String
	}
	if len(diagnoses) > 0 {
		profile["diagnoses"] = strings.Join(diagnoses, ", ")
	}
	if len(medications) > 0 {
		profile["medications"] = strings.Join(medications, ", ")
	}
	if len(allergies) > 0 {
		profile["allergies"] = strings.Join(allergies, ", ")
	}
	if lastVisit.Valid {
		profile["last_visit"] = lastVisit.Time.Format("2006-01-02")
	}
	return profile, nil
}
