package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TenantGuard/intake-engine/internal/caseapi"
	"github.com/TenantGuard/intake-engine/internal/messaging"
	"github.com/TenantGuard/intake-engine/internal/models"
	"github.com/TenantGuard/intake-engine/internal/store"
)

type testEnv struct {
	server *Server
	client *caseapi.MockClient
	msgs   *messaging.MockService
	st     *store.InMemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client := caseapi.NewMockClient()
	msgs := messaging.NewMockService()
	st := store.NewInMemoryStore()

	server, err := NewServer(
		WithStore(st),
		WithCaseClient(client),
		WithMessagingService(msgs),
	)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return &testEnv{server: server, client: client, msgs: msgs, st: st}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request failed: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, result interface{}) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope failed: %v (body %s)", err, rec.Body.String())
	}
	if result != nil && env.Result != nil {
		if err := json.Unmarshal(env.Result, result); err != nil {
			t.Fatalf("decode result failed: %v", err)
		}
	}
	return env
}

// createSession drives POST /intake/sessions and returns the session view.
func (e *testEnv) createSession(t *testing.T, flow models.FlowType) sessionView {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/intake/sessions", createSessionRequest{Flow: flow})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session returned %d: %s", rec.Code, rec.Body.String())
	}
	var view sessionView
	decodeEnvelope(t, rec, &view)
	return view
}

// answerUntilComplete drives a session to completion with plausible answers:
// the first choice value for choice steps, "unknown" for dates, canned text
// otherwise.
func (e *testEnv) answerUntilComplete(t *testing.T, view sessionView) sessionView {
	t.Helper()
	for i := 0; view.Status == models.StatusCollecting; i++ {
		if i > 100 {
			t.Fatal("session did not complete after 100 answers")
		}
		if view.Step == nil {
			t.Fatalf("collecting session has no current step: %+v", view)
		}
		var answer string
		switch view.Step.Kind {
		case models.InputKindChoice:
			answer = view.Step.Choices[0].Value
		case models.InputKindDate:
			answer = "unknown"
		default:
			answer = "test answer"
		}
		if view.Step.ID == "phone" {
			answer = "+1 (555) 000-1111"
		}
		rec := e.do(t, http.MethodPost, fmt.Sprintf("/intake/sessions/%s/answer", view.ID), answerRequest{Answer: answer})
		if rec.Code != http.StatusOK {
			t.Fatalf("answer %q to step %s returned %d: %s", answer, view.Step.ID, rec.Code, rec.Body.String())
		}
		view = sessionView{}
		decodeEnvelope(t, rec, &view)
	}
	return view
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health returned %d", rec.Code)
	}
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t, models.FlowTypeTenant)

	if view.ID == "" {
		t.Error("session ID missing")
	}
	if view.Status != models.StatusCollecting {
		t.Errorf("expected collecting, got %s", view.Status)
	}
	if view.Step == nil || view.Step.ID != "firstName" {
		t.Errorf("expected firstName as first step, got %+v", view.Step)
	}
	if view.TotalSteps == 0 {
		t.Error("total steps missing")
	}
}

func TestCreateSessionInvalidFlow(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/intake/sessions", createSessionRequest{Flow: "landlord"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid flow, got %d", rec.Code)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/intake/sessions/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	env404 := decodeEnvelope(t, rec, nil)
	if env404.Message != models.ErrSessionNotFound.Error() {
		t.Errorf("expected %q, got %q", models.ErrSessionNotFound.Error(), env404.Message)
	}
}

func TestAnswerAdvancesSession(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t, models.FlowTypeTenant)

	rec := env.do(t, http.MethodPost, "/intake/sessions/"+view.ID+"/answer", answerRequest{Answer: "Maria"})
	if rec.Code != http.StatusOK {
		t.Fatalf("answer returned %d: %s", rec.Code, rec.Body.String())
	}
	var next sessionView
	decodeEnvelope(t, rec, &next)
	if next.StepIndex != 1 {
		t.Errorf("expected stepIndex 1, got %d", next.StepIndex)
	}
	if next.Step == nil || next.Step.ID != "lastName" {
		t.Errorf("expected lastName step, got %+v", next.Step)
	}

	// The advance must be persisted.
	getRec := env.do(t, http.MethodGet, "/intake/sessions/"+view.ID, nil)
	var stored sessionView
	decodeEnvelope(t, getRec, &stored)
	if stored.StepIndex != 1 {
		t.Errorf("advance not persisted, stepIndex %d", stored.StepIndex)
	}
	if len(stored.Transcript) == 0 {
		t.Error("GET should include the transcript")
	}
}

func TestAnswerBlankIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t, models.FlowTypeTenant)

	rec := env.do(t, http.MethodPost, "/intake/sessions/"+view.ID+"/answer", answerRequest{Answer: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank answer returned %d: %s", rec.Code, rec.Body.String())
	}

	// The session must be untouched.
	get := env.do(t, http.MethodGet, "/intake/sessions/"+view.ID, nil)
	var stored sessionView
	decodeEnvelope(t, get, &stored)
	if stored.StepIndex != 0 {
		t.Errorf("blank answer advanced the session to %d", stored.StepIndex)
	}
	if stored.Step == nil || stored.Step.ID != "firstName" {
		t.Errorf("expected firstName still current, got %+v", stored.Step)
	}
	if len(stored.Transcript) != 1 {
		t.Errorf("blank answer changed the transcript: %d messages", len(stored.Transcript))
	}
}

func TestAnswerInvalidJSON(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t, models.FlowTypeTenant)

	req := httptest.NewRequest(http.MethodPost, "/intake/sessions/"+view.ID+"/answer", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", rec.Code)
	}
}

func TestSubmitIncomplete(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t, models.FlowTypeTenant)

	rec := env.do(t, http.MethodPost, "/intake/sessions/"+view.ID+"/submit", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for incomplete session, got %d", rec.Code)
	}
}

func TestSubmitCompleteSession(t *testing.T) {
	env := newTestEnv(t)
	resp := &models.CaseCreateResponse{Success: true}
	resp.Case.CaseNumber = "TG-1001"
	env.client.CaseResponse = resp

	view := env.createSession(t, models.FlowTypeTenant)
	view = env.answerUntilComplete(t, view)
	if view.Status != models.StatusComplete {
		t.Fatalf("expected complete, got %s", view.Status)
	}

	rec := env.do(t, http.MethodPost, "/intake/sessions/"+view.ID+"/submit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit returned %d: %s", rec.Code, rec.Body.String())
	}
	var result models.SubmissionResult
	decodeEnvelope(t, rec, &result)
	if result.CaseNumber != "TG-1001" {
		t.Errorf("expected case number TG-1001, got %q", result.CaseNumber)
	}
	if !result.TranscriptStored {
		t.Error("expected transcript stored")
	}

	if len(env.client.ConversationRequests) != 1 {
		t.Errorf("expected 1 conversation store call, got %d", len(env.client.ConversationRequests))
	}
	if len(env.msgs.SentMessages) != 1 {
		t.Fatalf("expected 1 confirmation message, got %d", len(env.msgs.SentMessages))
	}
	if env.msgs.SentMessages[0].To != "15550001111" {
		t.Errorf("confirmation sent to %q, want canonical phone", env.msgs.SentMessages[0].To)
	}

	// A second submit is rejected.
	again := env.do(t, http.MethodPost, "/intake/sessions/"+view.ID+"/submit", nil)
	if again.Code != http.StatusConflict {
		t.Errorf("expected 409 on repeat submit, got %d", again.Code)
	}
}

func TestSubmitUpstreamFailureIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	env.client.CaseErr = errors.New("connection refused")

	view := env.createSession(t, models.FlowTypeTenant)
	view = env.answerUntilComplete(t, view)

	rec := env.do(t, http.MethodPost, "/intake/sessions/"+view.ID+"/submit", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.client.ConversationRequests) != 0 {
		t.Error("transcript stored despite failed creation")
	}
	if len(env.msgs.SentMessages) != 0 {
		t.Error("confirmation sent despite failed creation")
	}

	// Backend recovers; the retry succeeds.
	env.client.CaseErr = nil
	resp := &models.CaseCreateResponse{Success: true}
	resp.Case.CaseNumber = "TG-1002"
	env.client.CaseResponse = resp

	retry := env.do(t, http.MethodPost, "/intake/sessions/"+view.ID+"/submit", nil)
	if retry.Code != http.StatusOK {
		t.Fatalf("retry returned %d: %s", retry.Code, retry.Body.String())
	}
	var result models.SubmissionResult
	decodeEnvelope(t, retry, &result)
	if result.CaseNumber != "TG-1002" {
		t.Errorf("expected case number TG-1002, got %q", result.CaseNumber)
	}
}

func TestAnswerAfterSubmission(t *testing.T) {
	env := newTestEnv(t)
	resp := &models.ApplicationCreateResponse{Success: true}
	resp.Attorney.ApplicationID = "APP-7"
	env.client.ApplicationResponse = resp

	view := env.createSession(t, models.FlowTypeAttorney)
	view = env.answerUntilComplete(t, view)
	if rec := env.do(t, http.MethodPost, "/intake/sessions/"+view.ID+"/submit", nil); rec.Code != http.StatusOK {
		t.Fatalf("submit returned %d: %s", rec.Code, rec.Body.String())
	}

	rec := env.do(t, http.MethodPost, "/intake/sessions/"+view.ID+"/answer", answerRequest{Answer: "late"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 answering a submitted session, got %d", rec.Code)
	}
}

// blockingCaseClient wraps the mock client and holds the first create call
// open until released, so overlapping submissions of the same session can be
// exercised.
type blockingCaseClient struct {
	*caseapi.MockClient
	entered chan struct{}
	release chan struct{}
}

func (c *blockingCaseClient) CreateCase(ctx context.Context, req models.CaseRequest) (*models.CaseCreateResponse, error) {
	c.entered <- struct{}{}
	<-c.release
	return c.MockClient.CreateCase(ctx, req)
}

func TestConcurrentSubmitCreatesOnce(t *testing.T) {
	client := &blockingCaseClient{
		MockClient: caseapi.NewMockClient(),
		entered:    make(chan struct{}, 2),
		release:    make(chan struct{}),
	}
	resp := &models.CaseCreateResponse{Success: true}
	resp.Case.CaseNumber = "TG-2001"
	client.CaseResponse = resp

	st := store.NewInMemoryStore()
	msgs := messaging.NewMockService()
	server, err := NewServer(
		WithStore(st),
		WithCaseClient(client),
		WithMessagingService(msgs),
	)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	env := &testEnv{server: server, client: client.MockClient, msgs: msgs, st: st}

	view := env.createSession(t, models.FlowTypeTenant)
	view = env.answerUntilComplete(t, view)

	codes := make(chan int, 2)
	submit := func() {
		req := httptest.NewRequest(http.MethodPost, "/intake/sessions/"+view.ID+"/submit", bytes.NewReader(nil))
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		codes <- rec.Code
	}

	go submit()
	<-client.entered
	go submit()
	close(client.release)

	got := map[int]int{}
	for i := 0; i < 2; i++ {
		got[<-codes]++
	}
	if got[http.StatusOK] != 1 || got[http.StatusConflict] != 1 {
		t.Fatalf("expected one 200 and one 409, got %v", got)
	}
	if n := len(client.CaseRequests); n != 1 {
		t.Fatalf("expected exactly 1 case creation, got %d", n)
	}
	if n := len(env.client.ConversationRequests); n != 1 {
		t.Errorf("expected exactly 1 conversation store call, got %d", n)
	}
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t)
	view := env.createSession(t, models.FlowTypeTenant)

	rec := env.do(t, http.MethodDelete, "/intake/sessions/"+view.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete returned %d", rec.Code)
	}

	get := env.do(t, http.MethodGet, "/intake/sessions/"+view.ID, nil)
	if get.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", get.Code)
	}

	missing := env.do(t, http.MethodDelete, "/intake/sessions/"+view.ID, nil)
	if missing.Code != http.StatusNotFound {
		t.Errorf("expected 404 deleting missing session, got %d", missing.Code)
	}
}
