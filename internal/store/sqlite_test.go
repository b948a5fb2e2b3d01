package store

import (
	"path/filepath"
	"testing"

	"github.com/TenantGuard/intake-engine/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "intaked.db")
	st, err := NewSQLiteStore(WithSQLiteDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)

	session := sampleSession()
	if err := st.SaveSession(session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := st.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil {
		t.Fatal("session not found after save")
	}
	if got.Flow != models.FlowTypeTenant || got.Status != models.StatusCollecting {
		t.Errorf("flow/status not persisted: %s/%s", got.Flow, got.Status)
	}
	if got.Answers["firstName"] != "Maria" {
		t.Errorf("answers not persisted: %v", got.Answers)
	}
	if len(got.Transcript) != 1 || got.Transcript[0].ID != "m_1" {
		t.Errorf("transcript not persisted: %v", got.Transcript)
	}
	if got.StepIndex != 1 {
		t.Errorf("stepIndex not persisted: %d", got.StepIndex)
	}

	// Saving again with the same id must update in place, not duplicate.
	session.Status = models.StatusSubmitted
	session.CaseNumber = "TG-1001"
	session.TranscriptStored = true
	if err := st.SaveSession(session); err != nil {
		t.Fatalf("SaveSession update failed: %v", err)
	}
	got, err = st.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession after update failed: %v", err)
	}
	if got.Status != models.StatusSubmitted {
		t.Errorf("status update not persisted: %s", got.Status)
	}
	if got.CaseNumber != "TG-1001" {
		t.Errorf("case number not persisted: %q", got.CaseNumber)
	}
	if !got.TranscriptStored {
		t.Error("transcript_stored flag not persisted")
	}
}

func TestSQLiteStoreGetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)
	got, err := st.GetSession("nope")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing session, got %+v", got)
	}
}

func TestSQLiteStoreDelete(t *testing.T) {
	st := newTestSQLiteStore(t)
	if err := st.SaveSession(sampleSession()); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := st.DeleteSession("sess-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	got, err := st.GetSession("sess-1")
	if err != nil || got != nil {
		t.Errorf("session still present after delete: %v, %v", got, err)
	}
	// Deleting a missing session is not an error.
	if err := st.DeleteSession("sess-1"); err != nil {
		t.Errorf("DeleteSession of missing session failed: %v", err)
	}
}

func TestSQLiteStoreClearSessions(t *testing.T) {
	st := newTestSQLiteStore(t)

	first := sampleSession()
	second := sampleSession()
	second.ID = "sess-2"
	if err := st.SaveSession(first); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := st.SaveSession(second); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	if err := st.ClearSessions(); err != nil {
		t.Fatalf("ClearSessions failed: %v", err)
	}
	for _, id := range []string{"sess-1", "sess-2"} {
		got, err := st.GetSession(id)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got != nil {
			t.Errorf("session %s survived ClearSessions", id)
		}
	}
}
