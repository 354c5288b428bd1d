package store

import (
	"github.com/roach88/schemastore/internal/payload"
)

// Create adds a record from payload text supplied by a user.
//
// The text must parse to a mapping (see payload.ParseDocument); anything
// else fails with ErrPayloadParse and nothing is stored. An existing name
// fails with ErrDuplicateName.
func (s *Store) Create(name, text string) error {
	if err := ValidateName(name); err != nil {
		return &RecordError{Op: "create", Name: name, Err: err}
	}
	doc, err := payload.ParseDocument(text)
	if err != nil {
		return &RecordError{Op: "create", Name: name, Err: err}
	}
	return s.put("create", name, doc, false)
}
