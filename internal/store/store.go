// Package store provides storage backends for intake sessions.
//
// It includes an in-memory store for tests and development, plus SQLite and
// PostgreSQL backed stores for persistent hosting.
package store

import (
	"strings"
	"sync"

	"github.com/TenantGuard/intake-engine/internal/models"
)

// Store persists intake sessions across requests. GetSession returns
// (nil, nil) when the session does not exist.
type Store interface {
	SaveSession(session *models.IntakeSession) error
	GetSession(id string) (*models.IntakeSession, error)
	DeleteSession(id string) error
	Close() error
}

// Opts holds configuration for store construction.
type Opts struct {
	// DSN is the database connection string (file path for SQLite,
	// postgres:// URI or key=value string for PostgreSQL).
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType returns the database driver name a DSN implies: "postgres"
// for PostgreSQL URIs and key=value connection strings, "sqlite3" otherwise.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// InMemoryStore is a map-backed session store. Used in tests and as the
// fallback when no DSN is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.IntakeSession
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*models.IntakeSession)}
}

func (s *InMemoryStore) SaveSession(session *models.IntakeSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *InMemoryStore) GetSession(id string) (*models.IntakeSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return cloneSession(session), nil
}

func (s *InMemoryStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

// cloneSession copies a session so callers cannot mutate stored state through
// shared maps or slices.
func cloneSession(in *models.IntakeSession) *models.IntakeSession {
	out := *in
	out.Answers = in.Answers.Clone()
	out.Transcript = append([]models.Message(nil), in.Transcript...)
	return &out
}
