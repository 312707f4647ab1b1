package testutil

import (
	"testing"
	"time"

	"github.com/nhle/mail-timeline/internal/model"
	"github.com/nhle/mail-timeline/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewRun returns a finished run started at startedAt, searching for
// keywords in INBOX over the last 30 days.
func NewRun(startedAt time.Time, keywords ...string) model.Run {
	return model.Run{
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(3 * time.Second),
		Provider:   model.ProviderIMAP,
		Account:    "alice@example.com",
		Keywords:   keywords,
		Folders:    []string{model.DefaultInbox},
		Days:       30,
	}
}
