package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/schemastore/internal/codec"
	"github.com/roach88/schemastore/internal/payload"
)

// WriteStoreFile encodes records into a store file at path, creating parent
// directories. It fails the test on any error.
func WriteStoreFile(t testing.TB, path string, records map[string]payload.Value) {
	t.Helper()
	data, err := codec.Encode(records)
	if err != nil {
		t.Fatalf("encode store: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write store: %v", err)
	}
}

// ReadStoreFile decodes the store file at path, failing the test on error.
func ReadStoreFile(t testing.TB, path string) map[string]payload.Value {
	t.Helper()
	records, err := codec.ReadFile(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	return records
}

// DiscardLogger returns a logger that drops everything, for quiet tests.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
