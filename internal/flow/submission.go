package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/TenantGuard/intake-engine/internal/models"
	"github.com/TenantGuard/intake-engine/internal/util"
)

// transcriptPlatform tags stored conversations with the channel they were
// collected on.
const transcriptPlatform = "web"

// CaseService is the outbound surface of the case-management API used by
// submission. Implementations live in the caseapi package.
type CaseService interface {
	// CreateCase submits a tenant case and returns the assigned case number.
	CreateCase(ctx context.Context, req models.CaseRequest) (*models.CaseCreateResponse, error)
	// CreateAttorneyApplication submits an attorney application and returns the
	// assigned application id.
	CreateAttorneyApplication(ctx context.Context, req models.AttorneyApplicationRequest) (*models.ApplicationCreateResponse, error)
	// StoreConversation attaches a transcript to an already-created case or
	// application, keyed by the identifier that creation returned.
	StoreConversation(ctx context.Context, flow models.FlowType, referenceID string, req models.ConversationRequest) error
}

// SessionSaver persists session lifecycle transitions during submission, so
// the in-flight state is visible to concurrent loads of the same session. A
// nil saver keeps transitions in memory only.
type SessionSaver interface {
	SaveSession(session *models.IntakeSession) error
}

// Submitter runs the two-phase submission protocol for completed sessions:
// an authoritative create call followed by a best-effort transcript store.
type Submitter struct {
	service  CaseService
	sessions SessionSaver

	now func() time.Time
}

// NewSubmitter creates a Submitter backed by the given case service.
func NewSubmitter(service CaseService, sessions SessionSaver) *Submitter {
	return &Submitter{service: service, sessions: sessions, now: time.Now}
}

// Submit runs the submission protocol against the given session.
//
// Phase one (authoritative): translate the answer store and create the case or
// application. On failure the session returns to complete so the caller can
// retry; nothing downstream runs. Phase two (best effort): store the
// transcript keyed by the identifier phase one returned. A phase-two failure
// never undoes the submission; it is reported in the result and the session
// still lands in submitted.
func (s *Submitter) Submit(ctx context.Context, session *models.IntakeSession) (*models.SubmissionResult, error) {
	switch session.Status {
	case models.StatusComplete:
	case models.StatusCollecting:
		return nil, models.ErrSessionIncomplete
	case models.StatusSubmitting:
		return nil, models.ErrSubmissionInFlight
	case models.StatusSubmitted:
		return nil, models.ErrAlreadySubmitted
	default:
		return nil, fmt.Errorf("Submitter.Submit: unexpected session status %q", session.Status)
	}

	// Persist the in-flight status before phase 1 so concurrent loads of the
	// same session are rejected instead of running a second create.
	session.Status = models.StatusSubmitting
	session.UpdatedAt = s.now().UTC()
	if err := s.persist(session); err != nil {
		session.Status = models.StatusComplete
		session.UpdatedAt = s.now().UTC()
		return nil, fmt.Errorf("Submitter.Submit: persist in-flight status: %w", err)
	}

	referenceID, err := s.createPhase(ctx, session)
	if err != nil {
		session.Status = models.StatusComplete
		session.UpdatedAt = s.now().UTC()
		if saveErr := s.persist(session); saveErr != nil {
			slog.Error("Submitter.Submit: failed to persist restored status", "session", session.ID, "error", saveErr)
		}
		slog.Error("Submitter.Submit: creation failed, session returned to complete",
			"session", session.ID, "flow", session.Flow, "error", err)
		return nil, err
	}

	session.CaseNumber = referenceID
	result := &models.SubmissionResult{CaseNumber: referenceID}

	conv := models.ToConversationRequest(util.GenerateConversationID(), transcriptPlatform, session.CreatedAt, session.Transcript)
	if err := s.service.StoreConversation(ctx, session.Flow, referenceID, conv); err != nil {
		result.TranscriptError = err.Error()
		slog.Warn("Submitter.Submit: transcript store failed, case stands",
			"session", session.ID, "reference", referenceID, "error", err)
	} else {
		result.TranscriptStored = true
		session.TranscriptStored = true
	}

	session.Status = models.StatusSubmitted
	session.UpdatedAt = s.now().UTC()
	if err := s.persist(session); err != nil {
		slog.Error("Submitter.Submit: failed to persist submitted status", "session", session.ID, "error", err)
	}
	slog.Info("Submitter.Submit: submission finished",
		"session", session.ID, "flow", session.Flow, "reference", referenceID, "transcriptStored", result.TranscriptStored)
	return result, nil
}

func (s *Submitter) persist(session *models.IntakeSession) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.SaveSession(session)
}

// createPhase performs the authoritative create for the session's flow type
// and returns the external reference identifier.
func (s *Submitter) createPhase(ctx context.Context, session *models.IntakeSession) (string, error) {
	switch session.Flow {
	case models.FlowTypeTenant:
		resp, err := s.service.CreateCase(ctx, models.ToCaseRequest(session.Answers))
		if err != nil {
			return "", fmt.Errorf("create case: %w", err)
		}
		if !resp.Success || resp.Case.CaseNumber == "" {
			return "", fmt.Errorf("create case: %s: %w", resp.Error, models.ErrSubmissionRejected)
		}
		return resp.Case.CaseNumber, nil
	case models.FlowTypeAttorney:
		resp, err := s.service.CreateAttorneyApplication(ctx, models.ToAttorneyApplicationRequest(session.Answers))
		if err != nil {
			return "", fmt.Errorf("create attorney application: %w", err)
		}
		if !resp.Success || resp.Attorney.ApplicationID == "" {
			return "", fmt.Errorf("create attorney application: %s: %w", resp.Error, models.ErrSubmissionRejected)
		}
		return resp.Attorney.ApplicationID, nil
	default:
		return "", fmt.Errorf("flow type %q: %w", session.Flow, models.ErrInvalidFlowType)
	}
}
