// Package profile supplies patient context to the pipeline. Providers
// implement the agent.ContextProvider contract: resolve a user identifier
// into an attribute map, or fail and let the runner degrade.
package profile

import (
	"context"

	"careline-chatbot/pkg"
)

// StaticProvider returns a fixed demo profile for every user. It stands in
// for the patient database and medical-record ledger during local
// development and tests.
type StaticProvider struct{}

// NewStaticProvider constructs the demo provider.
func NewStaticProvider() *StaticProvider { return &StaticProvider{} }

// Resolve returns the demo profile. It never fails.
func (p *StaticProvider) Resolve(_ context.Context, userID string) (pkg.Profile, error) {
	return pkg.Profile{
		"name":            "Jane Doe",
		"age":             "45",
		"email":           "jane.doe@example.com",
		"medical_history": "Type 2 Diabetes diagnosed in 2020",
		"diagnoses":       "Type 2 Diabetes, Hypertension",
		"medications":     "Metformin 500mg twice daily, Lisinopril 10mg daily",
		"allergies":       "Penicillin",
		"last_visit":      "2025-12-01",
	}, nil
}
