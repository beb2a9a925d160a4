package agent

import (
	"fmt"
	"sort"
	"strings"

	"careline-chatbot/pkg"
)

// prompt.go renders the system instruction for the model. Keeping the
// fixed text in one file makes it easy to tweak without touching the
// pipeline.

const (
	// promptHeader opens every system prompt.
	promptHeader = "You are a helpful and empathetic medical assistant AI."

	// guardrails is appended to every system prompt regardless of what the
	// profile contains. The model must never diagnose or prescribe, and
	// urgent matters are always deferred to a human provider.
	guardrails = `**Important Guidelines:**
1. Provide personalized advice based on the patient's specific medical context
2. Always be empathetic and supportive in your tone
3. DO NOT provide medical diagnoses or prescribe medications
4. If the question requires immediate medical attention, advise the patient to contact their healthcare provider
5. Reference their specific conditions and medications when relevant
6. Be clear that you are an AI assistant and not a replacement for professional medical advice

Answer the patient's question based on their medical context while following these guidelines.`

	// attrMissing is rendered for any context attribute with no recorded
	// value, so the model never assumes data exists that was merely absent.
	attrMissing = "None on record"
)

// contextAttrs are the profile attributes rendered in the medical context
// block, in this order. Attributes outside this list appear under
// additional notes, sorted by name.
var contextAttrs = []struct {
	key   string
	label string
}{
	{"medical_history", "Medical History"},
	{"diagnoses", "Current Diagnoses"},
	{"medications", "Current Medications"},
	{"allergies", "Known Allergies"},
}

// ComposePrompt deterministically renders a profile into the system
// instruction. It is a pure function: same profile in, byte-identical
// prompt out, no I/O anywhere.
func ComposePrompt(profile pkg.Profile) string {
	name := profile["name"]
	if name == "" {
		name = "Patient"
	}
	age := profile["age"]
	if age == "" {
		age = "Unknown"
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "You are currently speaking to **%s**, who is **%s years old**.\n\n", name, age)

	b.WriteString("**Patient Medical Context:**\n")
	rendered := map[string]bool{"name": true, "age": true, pkg.ProfileErrorKey: true}
	for _, attr := range contextAttrs {
		value := profile[attr.key]
		if value == "" {
			value = attrMissing
		}
		fmt.Fprintf(&b, "- **%s:** %s\n", attr.label, value)
		rendered[attr.key] = true
	}

	// Any remaining attributes, in sorted order for determinism.
	var extra []string
	for k := range profile {
		if !rendered[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		b.WriteString("\n**Additional Notes:**\n")
		for _, k := range extra {
			fmt.Fprintf(&b, "- **%s:** %s\n", k, profile[k])
		}
	}

	b.WriteString("\n")
	b.WriteString(guardrails)
	return b.String()
}
