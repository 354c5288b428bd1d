package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "schemas.barfi")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "schemas.barfi", entries[0].Name())
}

func TestCopyFileAtomic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "out", "dst.bin")
	content := []byte{0x00, 0x01, 0xff, 'S', 'C', 'H', 'S'}
	require.NoError(t, os.WriteFile(src, content, 0o600))

	require.NoError(t, CopyFileAtomic(src, dst, 0o644))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestCopyFileAtomicMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dst.bin")

	err := CopyFileAtomic(filepath.Join(dir, "nope"), dst, 0o644)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}
