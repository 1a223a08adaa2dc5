package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"aniportrait/internal/catalog"
	"aniportrait/internal/config"
)

// MustOpenCatalog opens the run catalog in the config's output directory and
// registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(context.Background(), filepath.Join(cfg.Paths.OutputDir, catalog.DatabaseName))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
