package testsupport

import (
	"testing"

	"lipsync/internal/config"
	"lipsync/internal/jobs"
)

// MustOpenStore opens the job store named by cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg.Paths.JobsDB)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
