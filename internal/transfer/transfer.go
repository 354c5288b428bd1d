package transfer

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/roach88/schemastore/internal/codec"
	"github.com/roach88/schemastore/internal/fsutil"
	"github.com/roach88/schemastore/internal/payload"
	"github.com/roach88/schemastore/internal/store"
)

// DefaultExtension is appended to exported record names.
const DefaultExtension = ".barfi"

// DefaultSuffix builds the suggested name for a duplicate.
const DefaultSuffix = "_copy"

// ErrAmbiguous is returned by ImportFile when no name was selected and the
// file holds more than one record.
var ErrAmbiguous = errors.New("transfer file holds several records; select one")

// ReadTransfer decodes a transfer file. Transfer files use the store
// encoding; Export writes exactly one entry, but files holding several are
// accepted so a whole store file can serve as an import source.
func ReadTransfer(r io.Reader) (map[string]payload.Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read transfer: %w", err)
	}
	records, err := codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("read transfer: %w", err)
	}
	return records, nil
}

// Names lists the record names of a decoded transfer file in UTF-16 order.
func Names(records map[string]payload.Value) []string {
	return payload.Map(records).SortedKeys()
}

// Import copies the record called name from records into st and persists st.
//
// It fails with ErrNotFound if records has no such entry and with
// ErrAlreadyExists if st already holds the name. On a persist failure the
// in-memory insert is rolled back.
func Import(st *store.Store, records map[string]payload.Value, name string) error {
	v, ok := records[name]
	if !ok {
		return &store.RecordError{Op: "import", Name: name, Err: store.ErrNotFound}
	}
	if st.Has(name) {
		return &store.RecordError{Op: "import", Name: name, Err: store.ErrAlreadyExists}
	}
	if err := st.Put(name, v, false); err != nil {
		return err
	}
	if err := st.Persist(); err != nil {
		_ = st.Delete(name)
		return fmt.Errorf("import %q: %w", name, err)
	}
	return nil
}

// ImportFile reads the transfer file at path and imports the record called
// name. An empty name selects the only record of a single-entry file, and
// fails with ErrAmbiguous otherwise. The imported name is returned.
func ImportFile(st *store.Store, path, name string) (string, error) {
	records, err := codec.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("import: %w", err)
	}
	if name == "" {
		names := Names(records)
		switch len(names) {
		case 0:
			return "", fmt.Errorf("import %s: %w: file holds no records", path, store.ErrNotFound)
		case 1:
			name = names[0]
		default:
			return "", fmt.Errorf("import %s: %w: %s", path, ErrAmbiguous, strings.Join(names, ", "))
		}
	}
	return name, Import(st, records, name)
}

// Export encodes the record called name as a single-entry transfer file.
// It returns the suggested file name, <name><ext>, and the encoded bytes.
// An empty store or an unknown name fails with ErrNotFound.
func Export(st *store.Store, name, ext string) (string, []byte, error) {
	if st.Len() == 0 {
		return "", nil, &store.RecordError{Op: "export", Name: name, Err: fmt.Errorf("%w: store is empty", store.ErrNotFound)}
	}
	v, ok := st.Get(name)
	if !ok {
		return "", nil, &store.RecordError{Op: "export", Name: name, Err: store.ErrNotFound}
	}
	data, err := codec.EncodeOne(name, v)
	if err != nil {
		return "", nil, fmt.Errorf("export %q: %w", name, err)
	}
	return FileName(name, ext), data, nil
}

// ExportTo writes the transfer file for name into dir and returns its path.
func ExportTo(st *store.Store, name, ext, dir string) (string, error) {
	filename, data, err := Export(st, name, ext)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, filename)
	if err := fsutil.WriteFileAtomic(path, data, store.FileMode); err != nil {
		return "", fmt.Errorf("export %q: %w", name, err)
	}
	return path, nil
}

// FileName returns the transfer file name for a record. Path separators and
// NUL bytes, which record names may contain, are replaced with underscores.
func FileName(name, ext string) string {
	if ext == "" {
		ext = DefaultExtension
	}
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, name)
	if clean == "." || clean == ".." {
		clean = strings.Repeat("_", len(clean))
	}
	return clean + ext
}

// DefaultCopyName is the suggested name for a duplicate of name: name with
// suffix appended, or DefaultSuffix when suffix is empty.
func DefaultCopyName(name, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return name + suffix
}

// Duplicate stores a deep copy of src under dst and persists st, returning
// the name used. An empty dst means DefaultCopyName(src, "").
//
// It fails with ErrNotFound if src is absent and with ErrAlreadyExists if
// dst is taken. The copy shares no structure with the source record.
func Duplicate(st *store.Store, src, dst string) (string, error) {
	if dst == "" {
		dst = DefaultCopyName(src, "")
	}
	v, ok := st.Get(src)
	if !ok {
		return "", &store.RecordError{Op: "duplicate", Name: src, Err: store.ErrNotFound}
	}
	if st.Has(dst) {
		return "", &store.RecordError{Op: "duplicate", Name: dst, Err: store.ErrAlreadyExists}
	}
	if err := st.Put(dst, v, false); err != nil {
		return "", err
	}
	if err := st.Persist(); err != nil {
		_ = st.Delete(dst)
		return "", fmt.Errorf("duplicate %q: %w", src, err)
	}
	return dst, nil
}
