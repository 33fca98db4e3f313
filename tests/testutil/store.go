package testutil

import (
	"testing"
	"time"

	"bcfeed/internal/store"
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

// NewTestStoreAt is NewTestStore with the store's clock pinned to now, so
// tests control which calendar date counts as today.
func NewTestStoreAt(t *testing.T, now time.Time) *store.SQLiteStore {
	t.Helper()

	s := NewTestStore(t)
	s.SetClock(func() time.Time { return now })
	return s
}
