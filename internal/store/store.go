package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"unicode/utf8"

	"github.com/roach88/schemastore/internal/codec"
	"github.com/roach88/schemastore/internal/fsutil"
	"github.com/roach88/schemastore/internal/payload"
)

// FileMode is the permission used for store files.
const FileMode fs.FileMode = 0o644

// Store holds the schema records backing one store file.
// It is not safe for concurrent use; callers serialize access.
type Store struct {
	path    string
	records map[string]payload.Value
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Load reads the store file at path.
//
// A missing file is the initial state, not an error: the returned store is
// empty and the file is created on the first Persist. A file that exists
// but does not decode returns an error wrapping ErrCorruptStore.
func Load(path string, opts ...Option) (*Store, error) {
	s := New(path, nil, opts...)

	records, err := codec.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("store file not found, starting empty", slog.String("path", path))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}

	s.records = records
	s.logger.Debug("store loaded",
		slog.String("path", path),
		slog.Int("records", len(records)),
	)
	return s, nil
}

// New creates a store bound to path holding a deep copy of records.
// Nothing is read from or written to disk.
func New(path string, records map[string]payload.Value, opts ...Option) *Store {
	s := &Store{
		path:    path,
		records: payload.CloneMap(records),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Has reports whether a record named name exists.
func (s *Store) Has(name string) bool {
	_, ok := s.records[name]
	return ok
}

// List returns the record names in UTF-16 order. An empty store returns an
// empty, non-nil slice.
func (s *Store) List() []string {
	return payload.Map(s.records).SortedKeys()
}

// Get returns a deep copy of the named payload, or false if absent.
func (s *Store) Get(name string) (payload.Value, bool) {
	v, ok := s.records[name]
	if !ok {
		return nil, false
	}
	return payload.Clone(v), true
}

// Put inserts or replaces a record.
//
// If name exists and overwrite is false, Put fails with ErrDuplicateName and
// the store is unchanged. The payload is deep-copied. Nothing is written to
// disk until Persist.
func (s *Store) Put(name string, v payload.Value, overwrite bool) error {
	return s.put("put", name, v, overwrite)
}

func (s *Store) put(op, name string, v payload.Value, overwrite bool) error {
	if err := ValidateName(name); err != nil {
		return &RecordError{Op: op, Name: name, Err: err}
	}
	if err := payload.Validate(v); err != nil {
		return &RecordError{Op: op, Name: name, Err: fmt.Errorf("%w: %v", ErrPayloadParse, err)}
	}
	if _, exists := s.records[name]; exists && !overwrite {
		return &RecordError{Op: op, Name: name, Err: ErrDuplicateName}
	}
	s.records[name] = payload.Clone(v)
	return nil
}

// Delete removes a record, failing with ErrNotFound if it is absent.
func (s *Store) Delete(name string) error {
	if _, ok := s.records[name]; !ok {
		return &RecordError{Op: "delete", Name: name, Err: ErrNotFound}
	}
	delete(s.records, name)
	return nil
}

// Records returns a deep copy of the full mapping.
func (s *Store) Records() map[string]payload.Value {
	return payload.CloneMap(s.records)
}

// Replace swaps in a new mapping, typically one built from Records and
// modified by a merge. The store takes ownership of records.
func (s *Store) Replace(records map[string]payload.Value) error {
	for name, v := range records {
		if err := ValidateName(name); err != nil {
			return &RecordError{Op: "replace", Name: name, Err: err}
		}
		if err := payload.Validate(v); err != nil {
			return &RecordError{Op: "replace", Name: name, Err: fmt.Errorf("%w: %v", ErrPayloadParse, err)}
		}
	}
	if records == nil {
		records = map[string]payload.Value{}
	}
	s.records = records
	return nil
}

// Persist encodes the full mapping and atomically replaces the store file.
func (s *Store) Persist() error {
	return s.PersistTo(s.path)
}

// PersistTo is like Persist but writes to path. The store stays bound to
// its original path.
func (s *Store) PersistTo(path string) error {
	data, err := codec.Encode(s.records)
	if err != nil {
		return fmt.Errorf("persist store: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, FileMode); err != nil {
		return fmt.Errorf("persist store: %w", err)
	}
	s.logger.Info("store persisted",
		slog.String("path", path),
		slog.Int("records", len(s.records)),
		slog.Int("bytes", len(data)),
	)
	return nil
}

// ValidateName reports whether name can be stored as a record name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: name is not valid UTF-8", ErrInvalidName)
	}
	return nil
}
