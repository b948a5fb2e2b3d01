// Package models defines intake flow types shared across modules.
package models

import (
	"strings"
	"time"
)

// FlowType identifies which intake questionnaire a session runs.
type FlowType string

const (
	// FlowTypeTenant is the tenant case intake flow.
	FlowTypeTenant FlowType = "tenant"
	// FlowTypeAttorney is the attorney application intake flow.
	FlowTypeAttorney FlowType = "attorney"
)

// IsValidFlowType checks if the given flow type is supported.
func IsValidFlowType(ft FlowType) bool {
	switch ft {
	case FlowTypeTenant, FlowTypeAttorney:
		return true
	default:
		return false
	}
}

// InputKind describes how a step expects its answer to be entered.
type InputKind string

const (
	// InputKindText accepts free-form text.
	InputKindText InputKind = "text"
	// InputKindDate accepts a calendar date, optionally the "unknown" sentinel.
	InputKindDate InputKind = "date"
	// InputKindChoice accepts exactly one of the step's enumerated choice values.
	InputKindChoice InputKind = "choice"
)

// Choice represents a selectable option for choice-kind steps.
type Choice struct {
	Label string `json:"label"` // text shown to the user
	Value string `json:"value"` // value stored when selected
}

// Answers is the answer store: a mapping from field name to collected value.
// Values are stored as strings; yes/no gates store the choice values "yes"/"no",
// and dates collected as "unknown" keep that sentinel verbatim. A field is only
// ever overwritten by a later step whose apply targets the same name; changing an
// earlier gate never resets downstream fields.
type Answers map[string]string

// Clone returns a copy of the answer store.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// IsYes reports whether the named field was answered affirmatively.
func (a Answers) IsYes(field string) bool {
	return a[field] == "yes"
}

// Has reports whether the named field has been collected.
func (a Answers) Has(field string) bool {
	_, ok := a[field]
	return ok
}

// ApplyFunc turns a raw answer into one or more answer-store entries.
// It must be pure apart from mutating the passed store.
type ApplyFunc func(raw string, answers Answers)

// Step is one question's complete specification within a catalog build.
// Steps are immutable once built; catalogs are rebuilt from scratch on every
// answer rather than patched in place.
type Step struct {
	ID           string    // unique within one catalog build
	Prompt       string    // assistant prompt text, already parameterized by the answer store
	Kind         InputKind // how the answer is entered
	Choices      []Choice  // required iff Kind == InputKindChoice
	AllowUnknown bool      // date kind only: accept the "unknown" sentinel
	Apply        ApplyFunc // applies the raw answer to the answer store
}

// SetField returns an ApplyFunc that stores the raw answer under a single field.
func SetField(field string) ApplyFunc {
	return func(raw string, answers Answers) {
		answers[field] = strings.TrimSpace(raw)
	}
}

// MessageRole identifies the author of a transcript message.
type MessageRole string

const (
	// RoleAssistant marks prompts emitted by the engine.
	RoleAssistant MessageRole = "assistant"
	// RoleUser marks answers supplied by the user.
	RoleUser MessageRole = "user"
)

// Message is a single transcript entry. Messages are immutable once appended;
// transcript order is insertion order and equals chronological order.
type Message struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp_utc"`
}

// SessionStatus tracks where a session is in its lifecycle.
type SessionStatus string

const (
	// StatusCollecting means the session is still gathering answers.
	StatusCollecting SessionStatus = "collecting"
	// StatusComplete means the catalog is exhausted and the session is submit-eligible.
	StatusComplete SessionStatus = "complete"
	// StatusSubmitting means a two-phase submission is in flight.
	StatusSubmitting SessionStatus = "submitting"
	// StatusSubmitted means the case was created; terminal.
	StatusSubmitted SessionStatus = "submitted"
)

// IntakeSession holds everything one intake interaction owns: the answer store,
// the transcript, and the cursor into the current catalog build. Sessions are
// isolated from each other; abandoning one has no external effect.
type IntakeSession struct {
	ID               string        `json:"id"`
	Flow             FlowType      `json:"flow"`
	Status           SessionStatus `json:"status"`
	Answers          Answers       `json:"answers"`
	Transcript       []Message     `json:"transcript"`
	StepIndex        int           `json:"step_index"`
	CaseNumber       string        `json:"case_number,omitempty"`
	TranscriptStored bool          `json:"transcript_stored"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// LastMessage returns the transcript tail, or nil for an empty transcript.
func (s *IntakeSession) LastMessage() *Message {
	if len(s.Transcript) == 0 {
		return nil
	}
	return &s.Transcript[len(s.Transcript)-1]
}

// SubmissionResult reports the outcome of a successful two-phase submission.
// TranscriptStored is false when the best-effort second phase failed; the case
// itself still exists and TranscriptError carries the reason.
type SubmissionResult struct {
	CaseNumber       string `json:"case_number"`
	TranscriptStored bool   `json:"transcript_stored"`
	TranscriptError  string `json:"transcript_error,omitempty"`
}
