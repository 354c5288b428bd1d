package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/schemastore/internal/payload"
	"github.com/roach88/schemastore/internal/testutil"
)

// createTestStore loads an empty store bound to a file in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemas.barfi")
	s, err := Load(path, WithLogger(testutil.DiscardLogger()))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return s
}

// doc builds {"v": n}.
func doc(n int64) payload.Map {
	return payload.Map{"v": payload.Int(n)}
}
