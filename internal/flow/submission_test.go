package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TenantGuard/intake-engine/internal/caseapi"
	"github.com/TenantGuard/intake-engine/internal/models"
)

func completedTenantSession() *models.IntakeSession {
	now := time.Now().UTC()
	return &models.IntakeSession{
		ID:     "sess-1",
		Flow:   models.FlowTypeTenant,
		Status: models.StatusComplete,
		Answers: models.Answers{
			"firstName":      "Maria",
			"lastName":       "Lopez",
			"email":          "maria@example.com",
			"phone":          "15550001111",
			"noticeReceived": "no",
			"leaseType":      "verbal",
			"issueType":      "habitability",
		},
		Transcript: []models.Message{
			{ID: "m_1", Role: models.RoleAssistant, Content: "Hi", Timestamp: now},
			{ID: "m_2", Role: models.RoleUser, Content: "Maria", Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func caseCreated(caseNumber string) *models.CaseCreateResponse {
	resp := &models.CaseCreateResponse{Success: true}
	resp.Case.CaseNumber = caseNumber
	return resp
}

func TestSubmitSuccessStoresTranscriptOnce(t *testing.T) {
	client := caseapi.NewMockClient()
	client.CaseResponse = caseCreated("TG-1001")

	session := completedTenantSession()
	result, err := NewSubmitter(client, nil).Submit(context.Background(), session)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if result.CaseNumber != "TG-1001" {
		t.Errorf("expected case number TG-1001, got %q", result.CaseNumber)
	}
	if !result.TranscriptStored {
		t.Error("expected transcript stored")
	}
	if session.Status != models.StatusSubmitted {
		t.Errorf("expected status submitted, got %s", session.Status)
	}
	if session.CaseNumber != "TG-1001" {
		t.Errorf("expected session case number recorded, got %q", session.CaseNumber)
	}

	if len(client.CaseRequests) != 1 {
		t.Fatalf("expected 1 case creation, got %d", len(client.CaseRequests))
	}
	if len(client.ConversationRequests) != 1 {
		t.Fatalf("expected exactly 1 conversation store call, got %d", len(client.ConversationRequests))
	}
	stored := client.ConversationRequests[0]
	if stored.ReferenceID != "TG-1001" {
		t.Errorf("conversation keyed by %q, want TG-1001", stored.ReferenceID)
	}
	if len(stored.Request.Messages) != 2 {
		t.Errorf("expected 2 transcript messages stored, got %d", len(stored.Request.Messages))
	}
}

func TestSubmitCreateFailureSkipsTranscript(t *testing.T) {
	client := caseapi.NewMockClient()
	client.CaseErr = errors.New("connection refused")

	session := completedTenantSession()
	submitter := NewSubmitter(client, nil)

	if _, err := submitter.Submit(context.Background(), session); err == nil {
		t.Fatal("expected error from failed creation")
	}
	if session.Status != models.StatusComplete {
		t.Errorf("expected status restored to complete, got %s", session.Status)
	}
	if len(client.ConversationRequests) != 0 {
		t.Errorf("transcript must not be stored when creation fails, got %d calls", len(client.ConversationRequests))
	}

	// The session is retryable: a second attempt with a healthy backend succeeds.
	client.CaseErr = nil
	client.CaseResponse = caseCreated("TG-1002")
	result, err := submitter.Submit(context.Background(), session)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if result.CaseNumber != "TG-1002" {
		t.Errorf("expected case number TG-1002 on retry, got %q", result.CaseNumber)
	}
}

func TestSubmitRejectionWrapsSentinel(t *testing.T) {
	client := caseapi.NewMockClient()
	client.CaseResponse = &models.CaseCreateResponse{Success: false, Error: "missing email"}

	session := completedTenantSession()
	_, err := NewSubmitter(client, nil).Submit(context.Background(), session)
	if !errors.Is(err, models.ErrSubmissionRejected) {
		t.Errorf("expected ErrSubmissionRejected, got %v", err)
	}
	if session.Status != models.StatusComplete {
		t.Errorf("expected status restored to complete, got %s", session.Status)
	}
}

func TestSubmitTranscriptFailureStillSubmitted(t *testing.T) {
	client := caseapi.NewMockClient()
	client.CaseResponse = caseCreated("TG-1003")
	client.ConversationErr = errors.New("storage unavailable")

	session := completedTenantSession()
	result, err := NewSubmitter(client, nil).Submit(context.Background(), session)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if result.TranscriptStored {
		t.Error("transcript should be reported as not stored")
	}
	if result.TranscriptError == "" {
		t.Error("expected transcript error reported")
	}
	if result.CaseNumber != "TG-1003" {
		t.Errorf("case number missing from result: %q", result.CaseNumber)
	}
	if session.Status != models.StatusSubmitted {
		t.Errorf("transcript failure must not undo submission, status %s", session.Status)
	}
	if session.TranscriptStored {
		t.Error("session should record transcript as not stored")
	}
}

func TestSubmitLifecycleGuards(t *testing.T) {
	client := caseapi.NewMockClient()
	submitter := NewSubmitter(client, nil)

	tests := []struct {
		status models.SessionStatus
		want   error
	}{
		{models.StatusCollecting, models.ErrSessionIncomplete},
		{models.StatusSubmitting, models.ErrSubmissionInFlight},
		{models.StatusSubmitted, models.ErrAlreadySubmitted},
	}
	for _, tt := range tests {
		session := completedTenantSession()
		session.Status = tt.status
		if _, err := submitter.Submit(context.Background(), session); !errors.Is(err, tt.want) {
			t.Errorf("status %s: expected %v, got %v", tt.status, tt.want, err)
		}
		if len(client.CaseRequests) != 0 {
			t.Errorf("status %s: no creation call expected", tt.status)
		}
	}
}

// statusRecorder captures the session status at each save so the persisted
// lifecycle transitions can be asserted in order.
type statusRecorder struct {
	saved []models.SessionStatus
}

func (r *statusRecorder) SaveSession(session *models.IntakeSession) error {
	r.saved = append(r.saved, session.Status)
	return nil
}

func TestSubmitPersistsInFlightStatusBeforeCreate(t *testing.T) {
	recorder := &statusRecorder{}
	client := caseapi.NewMockClient()
	client.CaseResponse = caseCreated("TG-1004")

	session := completedTenantSession()
	if _, err := NewSubmitter(client, recorder).Submit(context.Background(), session); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	want := []models.SessionStatus{models.StatusSubmitting, models.StatusSubmitted}
	if len(recorder.saved) != len(want) {
		t.Fatalf("expected %d saves, got %v", len(want), recorder.saved)
	}
	for i, status := range want {
		if recorder.saved[i] != status {
			t.Errorf("save %d: expected %s, got %s", i, status, recorder.saved[i])
		}
	}
}

func TestSubmitPersistsRestoredStatusOnCreateFailure(t *testing.T) {
	recorder := &statusRecorder{}
	client := caseapi.NewMockClient()
	client.CaseErr = errors.New("connection refused")

	session := completedTenantSession()
	if _, err := NewSubmitter(client, recorder).Submit(context.Background(), session); err == nil {
		t.Fatal("expected error from failed creation")
	}

	want := []models.SessionStatus{models.StatusSubmitting, models.StatusComplete}
	if len(recorder.saved) != len(want) {
		t.Fatalf("expected %d saves, got %v", len(want), recorder.saved)
	}
	for i, status := range want {
		if recorder.saved[i] != status {
			t.Errorf("save %d: expected %s, got %s", i, status, recorder.saved[i])
		}
	}
}

func TestSubmitAttorneyFlow(t *testing.T) {
	client := caseapi.NewMockClient()
	resp := &models.ApplicationCreateResponse{Success: true}
	resp.Attorney.ApplicationID = "APP-42"
	client.ApplicationResponse = resp

	session := completedTenantSession()
	session.Flow = models.FlowTypeAttorney
	session.Answers = models.Answers{
		"firstName":       "Dana",
		"lastName":        "Kim",
		"feeStructure":    "hourly",
		"hourlyRate":      "250",
		"acceptsLegalAid": "yes",
		"referralConsent": "yes",
	}

	result, err := NewSubmitter(client, nil).Submit(context.Background(), session)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if result.CaseNumber != "APP-42" {
		t.Errorf("expected reference APP-42, got %q", result.CaseNumber)
	}
	if len(client.ApplicationRequests) != 1 {
		t.Fatalf("expected 1 application creation, got %d", len(client.ApplicationRequests))
	}
	if got := client.ApplicationRequests[0].HourlyRate; got != "250" {
		t.Errorf("expected hourly rate mapped, got %q", got)
	}
	if len(client.ConversationRequests) != 1 {
		t.Fatalf("expected 1 conversation store call, got %d", len(client.ConversationRequests))
	}
	if client.ConversationRequests[0].Flow != models.FlowTypeAttorney {
		t.Errorf("conversation stored under wrong flow: %s", client.ConversationRequests[0].Flow)
	}
}
