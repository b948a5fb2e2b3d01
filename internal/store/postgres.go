// Package store provides storage backends for intake sessions.
//
// This file implements the PostgreSQL-backed session store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/TenantGuard/intake-engine/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveSession stores or updates an intake session.
func (s *PostgresStore) SaveSession(session *models.IntakeSession) error {
	answersJSON, transcriptJSON, err := encodeSessionJSON(session)
	if err != nil {
		slog.Error("PostgresStore SaveSession encode failed", "error", err, "sessionID", session.ID)
		return err
	}

	query := `
		INSERT INTO intake_sessions
			(id, flow, status, answers, transcript, step_index, case_number, transcript_stored, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			flow = EXCLUDED.flow,
			status = EXCLUDED.status,
			answers = EXCLUDED.answers,
			transcript = EXCLUDED.transcript,
			step_index = EXCLUDED.step_index,
			case_number = EXCLUDED.case_number,
			transcript_stored = EXCLUDED.transcript_stored,
			updated_at = EXCLUDED.updated_at`

	_, err = s.db.Exec(query, session.ID, session.Flow, session.Status,
		answersJSON, transcriptJSON, session.StepIndex, nilIfEmpty(session.CaseNumber),
		session.TranscriptStored, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "sessionID", session.ID)
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "sessionID", session.ID, "status", session.Status)
	return nil
}

// GetSession retrieves an intake session by id. Returns (nil, nil) when the
// session does not exist.
func (s *PostgresStore) GetSession(id string) (*models.IntakeSession, error) {
	query := `SELECT id, flow, status, answers, transcript, step_index, case_number, transcript_stored, created_at, updated_at
			  FROM intake_sessions WHERE id = $1`

	session, err := scanSessionRow(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSession not found", "sessionID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "sessionID", id)
		return nil, err
	}
	slog.Debug("PostgresStore GetSession found", "sessionID", id, "status", session.Status)
	return session, nil
}

// DeleteSession removes an intake session. Deleting a missing session is not
// an error.
func (s *PostgresStore) DeleteSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM intake_sessions WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "sessionID", id)
		return err
	}
	slog.Debug("PostgresStore DeleteSession succeeded", "sessionID", id)
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	}
	return err
}
