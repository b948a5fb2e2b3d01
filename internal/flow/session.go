package flow

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TenantGuard/intake-engine/internal/models"
	"github.com/TenantGuard/intake-engine/internal/util"
)

// Engine drives a single intake session: it rebuilds the catalog after every
// accepted answer, keeps the step cursor and transcript consistent, and emits
// each prompt exactly once. An Engine holds no locks; callers serialize access
// per session.
type Engine struct {
	session *models.IntakeSession
	catalog []models.Step

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine wraps an existing session in an engine and brings the catalog,
// status and transcript up to date. It returns an error when no builder is
// registered for the session's flow type.
func NewEngine(session *models.IntakeSession) (*Engine, error) {
	if session.Answers == nil {
		session.Answers = make(models.Answers)
	}
	e := &Engine{session: session, now: time.Now}
	if err := e.refresh(); err != nil {
		return nil, fmt.Errorf("NewEngine: %w", err)
	}
	return e, nil
}

// NewSession creates a fresh session for the given flow type and emits the
// first prompt.
func NewSession(flow models.FlowType) (*models.IntakeSession, *Engine, error) {
	if !models.IsValidFlowType(flow) {
		return nil, nil, fmt.Errorf("NewSession: flow type %q: %w", flow, models.ErrInvalidFlowType)
	}
	now := time.Now().UTC()
	session := &models.IntakeSession{
		ID:        util.GenerateSessionID(),
		Flow:      flow,
		Status:    models.StatusCollecting,
		Answers:   make(models.Answers),
		StepIndex: 0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	engine, err := NewEngine(session)
	if err != nil {
		return nil, nil, err
	}
	return session, engine, nil
}

// Session returns the underlying session.
func (e *Engine) Session() *models.IntakeSession {
	return e.session
}

// Catalog returns the catalog from the most recent rebuild.
func (e *Engine) Catalog() []models.Step {
	return e.catalog
}

// IsComplete reports whether the cursor has moved past the final catalog step.
// Completion is purely positional.
func (e *Engine) IsComplete() bool {
	return e.session.StepIndex >= len(e.catalog)
}

// CurrentStep returns the step the cursor points at, or nil when complete.
func (e *Engine) CurrentStep() *models.Step {
	if e.IsComplete() {
		return nil
	}
	return &e.catalog[e.session.StepIndex]
}

// CurrentPrompt returns the prompt text for the current step, or "" when the
// session is complete.
func (e *Engine) CurrentPrompt() string {
	if step := e.CurrentStep(); step != nil {
		return step.Prompt
	}
	return ""
}

// SubmitAnswer validates and applies one answer to the current step, advances
// the cursor, rebuilds the catalog and emits the next prompt. A blank answer is
// a no-op: nothing is recorded and the same step stays current. Validation
// failures leave the session untouched.
func (e *Engine) SubmitAnswer(raw string) error {
	switch e.session.Status {
	case models.StatusCollecting:
	case models.StatusComplete, models.StatusSubmitted:
		return models.ErrSessionComplete
	case models.StatusSubmitting:
		return models.ErrSubmissionInFlight
	default:
		return fmt.Errorf("Engine.SubmitAnswer: unexpected session status %q", e.session.Status)
	}

	answer := strings.TrimSpace(raw)
	if answer == "" {
		slog.Debug("Engine.SubmitAnswer: blank answer ignored", "session", e.session.ID)
		return models.ErrEmptyAnswer
	}
	if len(answer) > models.MaxAnswerLength {
		return models.ErrAnswerTooLong
	}

	step := e.CurrentStep()
	if step == nil {
		return models.ErrSessionComplete
	}
	if err := validateAnswer(step, answer); err != nil {
		return fmt.Errorf("Engine.SubmitAnswer: step %s: %w", step.ID, err)
	}
	// The sentinel matches case-insensitively but is stored in canonical form
	// so downstream consumers compare against a single spelling.
	if step.Kind == models.InputKindDate && strings.EqualFold(answer, models.UnknownDateSentinel) {
		answer = models.UnknownDateSentinel
	}

	e.appendMessage(models.RoleUser, answer)
	step.Apply(answer, e.session.Answers)
	e.session.StepIndex++

	if err := e.refresh(); err != nil {
		return fmt.Errorf("Engine.SubmitAnswer: %w", err)
	}
	slog.Debug("Engine.SubmitAnswer: answer accepted",
		"session", e.session.ID, "step", step.ID, "stepIndex", e.session.StepIndex, "catalogLen", len(e.catalog))
	return nil
}

// validateAnswer enforces per-kind input rules. Text steps accept anything
// non-blank; choice steps accept exactly one of the offered values; date steps
// accept the "unknown" sentinel only when the step allows it.
func validateAnswer(step *models.Step, answer string) error {
	switch step.Kind {
	case models.InputKindChoice:
		for _, c := range step.Choices {
			if answer == c.Value {
				return nil
			}
		}
		return models.ErrInvalidChoice
	case models.InputKindDate:
		if strings.EqualFold(answer, models.UnknownDateSentinel) && !step.AllowUnknown {
			return models.ErrUnknownNotAllowed
		}
		return nil
	default:
		return nil
	}
}

// refresh rebuilds the catalog from the answer store, reconciles the lifecycle
// status with the cursor position, and emits the current prompt if it is not
// already the transcript tail. Safe to call repeatedly; a second refresh with
// no intervening answer changes nothing.
func (e *Engine) refresh() error {
	catalog, err := BuildCatalog(e.session.Flow, e.session.Answers)
	if err != nil {
		return err
	}
	e.catalog = catalog

	switch {
	case e.session.Status == models.StatusSubmitting || e.session.Status == models.StatusSubmitted:
		// Lifecycle is past collecting; leave it alone.
	case e.IsComplete():
		e.session.Status = models.StatusComplete
	default:
		e.session.Status = models.StatusCollecting
		e.emitPrompt(e.catalog[e.session.StepIndex].Prompt)
	}
	e.session.UpdatedAt = e.now().UTC()
	return nil
}

// emitPrompt appends an assistant message unless the transcript already ends
// with the identical prompt. This keeps prompt emission idempotent across
// repeated loads of the same session.
func (e *Engine) emitPrompt(prompt string) {
	if last := e.session.LastMessage(); last != nil &&
		last.Role == models.RoleAssistant && last.Content == prompt {
		return
	}
	e.appendMessage(models.RoleAssistant, prompt)
}

func (e *Engine) appendMessage(role models.MessageRole, content string) {
	e.session.Transcript = append(e.session.Transcript, models.Message{
		ID:        util.GenerateMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: e.now().UTC(),
	})
}
