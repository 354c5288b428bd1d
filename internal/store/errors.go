package store

import (
	"errors"
	"fmt"

	"github.com/roach88/schemastore/internal/codec"
	"github.com/roach88/schemastore/internal/payload"
)

var (
	// ErrCorruptStore indicates a store file that exists but cannot be decoded.
	ErrCorruptStore = codec.ErrCorruptStore

	// ErrPayloadParse indicates payload input that is not a structured document.
	ErrPayloadParse = payload.ErrParse

	// ErrDuplicateName is returned by Put when the name is taken and
	// overwriting was not requested.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrAlreadyExists is returned by transfers whose target name is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound indicates a record that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidName indicates an empty or non-UTF-8 record name.
	ErrInvalidName = errors.New("invalid name")

	// ErrLocked indicates another process holds the store lock.
	ErrLocked = errors.New("store is locked by another process")
)

// RecordError reports a failed operation on a single named record.
// errors.Is matches the wrapped sentinel.
type RecordError struct {
	Op   string // "put", "delete", "import", ...
	Name string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err is a per-record condition the user can
// fix by choosing another name or input, as opposed to an I/O or corruption
// failure.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrPayloadParse)
}
