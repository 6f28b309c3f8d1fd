package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hmaged/voxline/internal/transcript"
)

func floatPtr(f float64) *float64 { return &f }

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "voxline.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SessionLifecycle(t *testing.T) {
	store := newTestStore(t)

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.CreateSession("20260301120000", started); err != nil {
		t.Fatalf("create session: %v", err)
	}

	sessions, err := store.ListSessions(10)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].EndedAt != nil {
		t.Error("new session already ended")
	}

	ended := started.Add(30 * time.Second)
	if err := store.EndSession("20260301120000", ended); err != nil {
		t.Fatalf("end session: %v", err)
	}

	sessions, _ = store.ListSessions(10)
	if sessions[0].EndedAt == nil || !sessions[0].EndedAt.Equal(ended) {
		t.Errorf("expected ended_at %v, got %v", ended, sessions[0].EndedAt)
	}
}

func TestStore_UnitsRoundTripInSeqOrder(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.CreateSession("s1", now); err != nil {
		t.Fatalf("create session: %v", err)
	}

	units := []transcript.SpeechUnit{
		{Seq: 0, Text: "h", Start: floatPtr(0.0), End: floatPtr(0.1), ReceivedAt: now},
		{Seq: 1, Text: "i", ReceivedAt: now.Add(time.Millisecond)},
	}
	for _, u := range units {
		if err := store.AppendUnit("s1", u); err != nil {
			t.Fatalf("append unit %d: %v", u.Seq, err)
		}
	}

	got, err := store.GetUnits("s1")
	if err != nil {
		t.Fatalf("get units: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 units, got %d", len(got))
	}

	if got[0].Start == nil || *got[0].Start != 0.0 || got[0].End == nil || *got[0].End != 0.1 {
		t.Errorf("unit 0 timing lost: %+v", got[0])
	}
	if got[1].Start != nil || got[1].End != nil {
		t.Errorf("untimed unit grew timing: %+v", got[1])
	}
	if got[0].Seq != 0 || got[1].Seq != 1 {
		t.Errorf("units out of order: %+v", got)
	}
}

func TestStore_ListSessionsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		id := base.Add(time.Duration(i) * time.Minute).Format("20060102150405")
		if err := store.CreateSession(id, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("create session %d: %v", i, err)
		}
	}

	sessions, err := store.ListSessions(2)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected limit of 2 sessions, got %d", len(sessions))
	}
	if !sessions[0].StartedAt.After(sessions[1].StartedAt) {
		t.Errorf("sessions not newest first: %v then %v", sessions[0].StartedAt, sessions[1].StartedAt)
	}
}
