package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/TenantGuard/intake-engine/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// encodeSessionJSON marshals the answer store and transcript for their TEXT
// columns.
func encodeSessionJSON(session *models.IntakeSession) (answersJSON, transcriptJSON string, err error) {
	if len(session.Answers) > 0 {
		b, err := json.Marshal(session.Answers)
		if err != nil {
			return "", "", fmt.Errorf("marshal answers failed: %w", err)
		}
		answersJSON = string(b)
	}
	if len(session.Transcript) > 0 {
		b, err := json.Marshal(session.Transcript)
		if err != nil {
			return "", "", fmt.Errorf("marshal transcript failed: %w", err)
		}
		transcriptJSON = string(b)
	}
	return answersJSON, transcriptJSON, nil
}

// scanSessionRow scans an IntakeSession from a single sql.Row and decodes the
// JSON columns.
func scanSessionRow(row *sql.Row) (*models.IntakeSession, error) {
	var session models.IntakeSession
	var answersJSON, transcriptJSON, caseNumber sql.NullString
	err := row.Scan(
		&session.ID, &session.Flow, &session.Status, &answersJSON, &transcriptJSON,
		&session.StepIndex, &caseNumber, &session.TranscriptStored,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	session.CaseNumber = caseNumber.String

	session.Answers = make(models.Answers)
	if answersJSON.String != "" {
		if err := json.Unmarshal([]byte(answersJSON.String), &session.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers failed: %w", err)
		}
	}
	if transcriptJSON.String != "" {
		if err := json.Unmarshal([]byte(transcriptJSON.String), &session.Transcript); err != nil {
			return nil, fmt.Errorf("unmarshal transcript failed: %w", err)
		}
	}
	return &session, nil
}
