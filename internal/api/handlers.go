// Package api provides HTTP handlers for intake session endpoints.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/TenantGuard/intake-engine/internal/flow"
	"github.com/TenantGuard/intake-engine/internal/models"
)

type createSessionRequest struct {
	Flow models.FlowType `json:"flow"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

// stepView is the client-facing shape of the current step.
type stepView struct {
	ID           string           `json:"id"`
	Kind         models.InputKind `json:"kind"`
	Prompt       string           `json:"prompt"`
	Choices      []models.Choice  `json:"choices,omitempty"`
	AllowUnknown bool             `json:"allow_unknown,omitempty"`
}

// sessionView is the client-facing shape of a session: status, cursor and the
// current step if any. The transcript is included only on explicit GETs.
type sessionView struct {
	ID               string               `json:"id"`
	Flow             models.FlowType      `json:"flow"`
	Status           models.SessionStatus `json:"status"`
	StepIndex        int                  `json:"step_index"`
	TotalSteps       int                  `json:"total_steps"`
	Step             *stepView            `json:"step,omitempty"`
	CaseNumber       string               `json:"case_number,omitempty"`
	TranscriptStored bool                 `json:"transcript_stored"`
	Transcript       []models.Message     `json:"transcript,omitempty"`
}

func buildSessionView(engine *flow.Engine, includeTranscript bool) sessionView {
	session := engine.Session()
	view := sessionView{
		ID:               session.ID,
		Flow:             session.Flow,
		Status:           session.Status,
		StepIndex:        session.StepIndex,
		TotalSteps:       len(engine.Catalog()),
		CaseNumber:       session.CaseNumber,
		TranscriptStored: session.TranscriptStored,
	}
	if step := engine.CurrentStep(); step != nil {
		view.Step = &stepView{
			ID:           step.ID,
			Kind:         step.Kind,
			Prompt:       step.Prompt,
			Choices:      step.Choices,
			AllowUnknown: step.AllowUnknown,
		}
	}
	if includeTranscript {
		view.Transcript = session.Transcript
	}
	return view
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

// createSessionHandler handles POST /intake/sessions
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createSessionHandler: processing create request", "method", r.Method, "path", r.URL.Path)

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if !models.IsValidFlowType(req.Flow) {
		slog.Warn("Server.createSessionHandler: invalid flow type", "flow", req.Flow)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(fmt.Sprintf("Invalid flow type %q", req.Flow)))
		return
	}

	session, engine, err := flow.NewSession(req.Flow)
	if err != nil {
		slog.Error("Server.createSessionHandler: failed to create session", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create session"))
		return
	}
	if err := s.st.SaveSession(session); err != nil {
		slog.Error("Server.createSessionHandler: failed to save session", "error", err, "sessionID", session.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save session"))
		return
	}

	slog.Info("Server.createSessionHandler: session created", "sessionID", session.ID, "flow", session.Flow)
	writeJSONResponse(w, http.StatusCreated, models.Success(buildSessionView(engine, false)))
}

// loadEngine fetches a session by id and wraps it in an engine. It writes the
// error response itself and returns nil when the caller should stop.
func (s *Server) loadEngine(w http.ResponseWriter, id string) *flow.Engine {
	session, err := s.st.GetSession(id)
	if err != nil {
		slog.Error("Server.loadEngine: failed to load session", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return nil
	}
	if session == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrSessionNotFound.Error()))
		return nil
	}
	engine, err := flow.NewEngine(session)
	if err != nil {
		slog.Error("Server.loadEngine: failed to build engine", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return nil
	}
	return engine
}

// getSessionHandler handles GET /intake/sessions/{id}
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	unlock := s.lockSession(id)
	defer unlock()

	engine := s.loadEngine(w, id)
	if engine == nil {
		return
	}
	// Loading may have emitted a prompt the stored copy was missing.
	if err := s.st.SaveSession(engine.Session()); err != nil {
		slog.Error("Server.getSessionHandler: failed to save session", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save session"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(buildSessionView(engine, true)))
}

// answerHandler handles POST /intake/sessions/{id}/answer
func (s *Server) answerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := r.PathValue("id")
	slog.Debug("Server.answerHandler: processing answer", "sessionID", id)

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.answerHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	unlock := s.lockSession(id)
	defer unlock()

	engine := s.loadEngine(w, id)
	if engine == nil {
		return
	}

	if err := engine.SubmitAnswer(req.Answer); err != nil {
		switch {
		case errors.Is(err, models.ErrEmptyAnswer),
			errors.Is(err, models.ErrAnswerTooLong),
			errors.Is(err, models.ErrInvalidChoice),
			errors.Is(err, models.ErrUnknownNotAllowed):
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		case errors.Is(err, models.ErrSessionComplete),
			errors.Is(err, models.ErrSubmissionInFlight):
			writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
		default:
			slog.Error("Server.answerHandler: failed to apply answer", "error", err, "sessionID", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to apply answer"))
		}
		return
	}

	if err := s.st.SaveSession(engine.Session()); err != nil {
		slog.Error("Server.answerHandler: failed to save session", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save session"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(buildSessionView(engine, false)))
}

// submitHandler handles POST /intake/sessions/{id}/submit
func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Debug("Server.submitHandler: processing submission", "sessionID", id)

	unlock := s.lockSession(id)
	defer unlock()

	engine := s.loadEngine(w, id)
	if engine == nil {
		return
	}
	session := engine.Session()

	result, err := s.submitter.Submit(r.Context(), session)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSessionIncomplete),
			errors.Is(err, models.ErrSubmissionInFlight),
			errors.Is(err, models.ErrAlreadySubmitted):
			writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
		default:
			// Creation failed; the session was returned to complete and the
			// client may retry.
			if saveErr := s.st.SaveSession(session); saveErr != nil {
				slog.Error("Server.submitHandler: failed to save session after rejected submission", "error", saveErr, "sessionID", id)
			}
			slog.Error("Server.submitHandler: submission failed", "error", err, "sessionID", id)
			writeJSONResponse(w, http.StatusBadGateway, models.Error("Submission failed; please try again"))
		}
		return
	}

	if err := s.st.SaveSession(session); err != nil {
		slog.Error("Server.submitHandler: failed to save submitted session", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save session"))
		return
	}

	s.sendConfirmation(r, session, result)

	slog.Info("Server.submitHandler: submission succeeded", "sessionID", id, "reference", result.CaseNumber)
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// sendConfirmation delivers a best-effort confirmation message to the phone
// number collected during intake. Failures are logged and never affect the
// submission outcome.
func (s *Server) sendConfirmation(r *http.Request, session *models.IntakeSession, result *models.SubmissionResult) {
	phone := session.Answers["phone"]
	if phone == "" {
		return
	}
	canonical, err := s.msgService.ValidateAndCanonicalizeRecipient(phone)
	if err != nil {
		slog.Debug("Server.sendConfirmation: skipping confirmation, invalid phone", "error", err, "sessionID", session.ID)
		return
	}
	body := fmt.Sprintf("Your intake has been submitted. Reference number: %s. We'll be in touch soon.", result.CaseNumber)
	if err := s.msgService.SendMessage(r.Context(), canonical, body); err != nil {
		slog.Warn("Server.sendConfirmation: confirmation send failed", "error", err, "sessionID", session.ID)
	}
}

// deleteSessionHandler handles DELETE /intake/sessions/{id}
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	unlock := s.lockSession(id)
	defer unlock()

	session, err := s.st.GetSession(id)
	if err != nil {
		slog.Error("Server.deleteSessionHandler: failed to load session", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return
	}
	if session == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrSessionNotFound.Error()))
		return
	}
	if err := s.st.DeleteSession(id); err != nil {
		slog.Error("Server.deleteSessionHandler: failed to delete session", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete session"))
		return
	}
	s.sessionLocks.Delete(id)
	slog.Info("Server.deleteSessionHandler: session deleted", "sessionID", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session deleted", nil))
}
