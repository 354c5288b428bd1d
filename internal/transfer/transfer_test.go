package transfer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/schemastore/internal/codec"
	"github.com/roach88/schemastore/internal/payload"
	"github.com/roach88/schemastore/internal/store"
	"github.com/roach88/schemastore/internal/testutil"
)

func newStore(t *testing.T, records map[string]payload.Value) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemas.barfi")
	if records != nil {
		testutil.WriteStoreFile(t, path, records)
	}
	st, err := store.Load(path, store.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)
	return st
}

func foo() payload.Map {
	return payload.Map{"a": payload.Int(1)}
}

func TestImportScenario(t *testing.T) {
	st := newStore(t, nil)

	data, err := codec.EncodeOne("Foo", foo())
	require.NoError(t, err)
	records, err := ReadTransfer(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo"}, Names(records))

	require.NoError(t, Import(st, records, "Foo"))
	assert.Equal(t, map[string]payload.Value{"Foo": foo()}, testutil.ReadStoreFile(t, st.Path()))

	err = Import(st, records, "Foo")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
	assert.Contains(t, err.Error(), `"Foo"`)
	assert.Equal(t, 1, st.Len())
}

func TestImportUnknownName(t *testing.T) {
	st := newStore(t, nil)
	err := Import(st, map[string]payload.Value{"Foo": foo()}, "Bar")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 0, st.Len())
	_, statErr := os.Stat(st.Path())
	assert.True(t, os.IsNotExist(statErr), "nothing persisted")
}

func TestImportSelectsFromMultiRecordFile(t *testing.T) {
	st := newStore(t, map[string]payload.Value{"Keep": payload.Map{}})
	records := map[string]payload.Value{"A": foo(), "B": payload.Map{"b": payload.Bool(true)}}

	require.NoError(t, Import(st, records, "B"))
	assert.Equal(t, []string{"B", "Keep"}, st.List())
}

func TestImportRollsBackOnPersistFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	// The store's parent is a regular file, so the persist cannot succeed.
	st := store.New(filepath.Join(blocker, "schemas.barfi"), nil, store.WithLogger(testutil.DiscardLogger()))
	err := Import(st, map[string]payload.Value{"Foo": foo()}, "Foo")
	require.Error(t, err)
	assert.False(t, store.IsRecoverable(err))
	assert.False(t, st.Has("Foo"))
}

func TestImportFile(t *testing.T) {
	dir := t.TempDir()
	single := filepath.Join(dir, "Foo.barfi")
	testutil.WriteStoreFile(t, single, map[string]payload.Value{"Foo": foo()})
	multi := filepath.Join(dir, "many.barfi")
	testutil.WriteStoreFile(t, multi, map[string]payload.Value{"A": foo(), "B": foo()})

	t.Run("single entry without selection", func(t *testing.T) {
		st := newStore(t, nil)
		name, err := ImportFile(st, single, "")
		require.NoError(t, err)
		assert.Equal(t, "Foo", name)
		assert.True(t, st.Has("Foo"))
	})

	t.Run("several entries without selection", func(t *testing.T) {
		st := newStore(t, nil)
		_, err := ImportFile(st, multi, "")
		assert.ErrorIs(t, err, ErrAmbiguous)
		assert.Contains(t, err.Error(), "A, B")
	})

	t.Run("several entries with selection", func(t *testing.T) {
		st := newStore(t, nil)
		name, err := ImportFile(st, multi, "A")
		require.NoError(t, err)
		assert.Equal(t, "A", name)
	})

	t.Run("missing file", func(t *testing.T) {
		st := newStore(t, nil)
		_, err := ImportFile(st, filepath.Join(dir, "nope.barfi"), "")
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("corrupt file", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.barfi")
		require.NoError(t, os.WriteFile(bad, []byte("not a store"), 0o644))
		st := newStore(t, nil)
		_, err := ImportFile(st, bad, "")
		assert.ErrorIs(t, err, store.ErrCorruptStore)
	})
}

func TestReadTransferCorrupt(t *testing.T) {
	_, err := ReadTransfer(bytes.NewReader([]byte("SCHS\x07")))
	assert.ErrorIs(t, err, codec.ErrCorruptStore)
}

func TestExport(t *testing.T) {
	st := newStore(t, map[string]payload.Value{"Foo": foo(), "Bar": payload.Map{}})

	filename, data, err := Export(st, "Foo", ".barfi")
	require.NoError(t, err)
	assert.Equal(t, "Foo.barfi", filename)

	got, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]payload.Value{"Foo": foo()}, got)
}

func TestExportNotFound(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		st := newStore(t, nil)
		_, _, err := Export(st, "Foo", "")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Contains(t, err.Error(), "store is empty")
	})

	t.Run("unknown name", func(t *testing.T) {
		st := newStore(t, map[string]payload.Value{"Bar": foo()})
		_, _, err := Export(st, "Foo", "")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestExportToRoundTripsThroughImport(t *testing.T) {
	src := newStore(t, map[string]payload.Value{"Foo": foo()})
	dir := t.TempDir()

	path, err := ExportTo(src, "Foo", ".barfi", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Foo.barfi"), path)

	dst := newStore(t, nil)
	name, err := ImportFile(dst, path, "")
	require.NoError(t, err)
	assert.Equal(t, "Foo", name)

	v, ok := dst.Get("Foo")
	require.True(t, ok)
	assert.True(t, payload.Equal(foo(), v))
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name, ext, want string
	}{
		{"Foo", ".barfi", "Foo.barfi"},
		{"Foo", "", "Foo.barfi"},
		{"a/b\\c", ".barfi", "a_b_c.barfi"},
		{"..", ".barfi", "__.barfi"},
		{"with space", ".x", "with space.x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.name, tt.ext))
		})
	}
}

func TestDefaultCopyName(t *testing.T) {
	assert.Equal(t, "X_copy", DefaultCopyName("X", ""))
	assert.Equal(t, "X_dup", DefaultCopyName("X", "_dup"))
}

func TestDuplicate(t *testing.T) {
	st := newStore(t, map[string]payload.Value{"X": foo()})

	name, err := Duplicate(st, "X", "")
	require.NoError(t, err)
	assert.Equal(t, "X_copy", name)
	assert.Equal(t, DefaultCopyName("X", ""), name)

	name, err = Duplicate(st, "X", "Y")
	require.NoError(t, err)
	assert.Equal(t, "Y", name)

	assert.Equal(t, map[string]payload.Value{
		"X":      foo(),
		"X_copy": foo(),
		"Y":      foo(),
	}, testutil.ReadStoreFile(t, st.Path()))
}

func TestDuplicateErrors(t *testing.T) {
	st := newStore(t, map[string]payload.Value{"X": foo(), "X_copy": payload.Map{}})

	_, err := Duplicate(st, "missing", "")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = Duplicate(st, "X", "")
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
	assert.Contains(t, err.Error(), `"X_copy"`)

	v, _ := st.Get("X_copy")
	assert.Equal(t, payload.Map{}, v, "existing record untouched")
}

func TestDuplicateIsolation(t *testing.T) {
	original := payload.Map{
		"nodes": payload.Seq{payload.Map{"id": payload.Int(1)}},
		"name":  payload.String("graph"),
	}
	st := newStore(t, map[string]payload.Value{"X": original})

	_, err := Duplicate(st, "X", "")
	require.NoError(t, err)

	// Mutate X through a fetched copy and write it back.
	v, ok := st.Get("X")
	require.True(t, ok)
	m := v.(payload.Map)
	m["nodes"].(payload.Seq)[0].(payload.Map)["id"] = payload.Int(99)
	m["name"] = payload.String("changed")
	require.NoError(t, st.Put("X", m, true))
	require.NoError(t, st.Persist())

	persisted := testutil.ReadStoreFile(t, st.Path())
	assert.True(t, payload.Equal(original, persisted["X_copy"]))
	assert.False(t, payload.Equal(original, persisted["X"]))
}
