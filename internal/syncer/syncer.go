package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/schemastore/internal/codec"
	"github.com/roach88/schemastore/internal/payload"
	"github.com/roach88/schemastore/internal/store"
)

// DefaultSuffix is appended to a conflicting name until it is free.
const DefaultSuffix = "_copy"

// DefaultExtension marks files in the auxiliary directory as stores.
const DefaultExtension = ".barfi"

// Synchronizer merges auxiliary store files into a primary store.
type Synchronizer struct {
	// Extension selects auxiliary files by suffix (".barfi").
	Extension string
	// Suffix is appended to conflicting names ("_copy").
	Suffix string
	// Logger receives per-file and per-run events. Nil means slog.Default().
	Logger *slog.Logger
}

// New returns a Synchronizer with the default extension and suffix.
func New(logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		Extension: DefaultExtension,
		Suffix:    DefaultSuffix,
		Logger:    logger,
	}
}

// Rename records an auxiliary record stored under a fresh name.
type Rename struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Source string `json:"source"`
}

// FileError records an auxiliary file that could not be read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("auxiliary store %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error as text next to the path.
func (e FileError) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{e.Path, msg})
}

// Report summarizes one synchronization run.
type Report struct {
	RunID   string      `json:"run_id"`
	Changed bool        `json:"changed"`
	Files   int         `json:"files"`
	Added   []string    `json:"added"`
	Renamed []Rename    `json:"renamed"`
	Skipped int         `json:"skipped"`
	Failed  []FileError `json:"failed,omitempty"`
}

// Sync merges every auxiliary store file in auxDir into st.
//
// For each auxiliary record, in file order then name order:
//   - absent from the primary: inserted under its own name
//   - present with an equal payload: skipped
//   - present with a different payload: inserted under name+suffix, with the
//     suffix repeated until the name is free in the accumulated mapping
//
// Before renaming, the whole name, name+suffix, name+suffix+suffix... chain
// is checked for an equal payload, so a record merged on an earlier run is
// recognised and a second run with unchanged inputs changes nothing. Chain
// entries count whoever created them: a "Foo_copy" added by hand with the
// same payload as an incoming "Foo" also makes the incoming record a skip.
//
// A file that cannot be read, or that holds a record name the primary store
// would reject, is recorded in Report.Failed and skipped; it never aborts
// the run. The primary store is persisted exactly once, and
// only if something changed. Auxiliary files are never written.
func (s *Synchronizer) Sync(ctx context.Context, st *store.Store, auxDir string) (*Report, error) {
	logger := s.logger()
	report := &Report{
		RunID:   uuid.NewString(),
		Added:   []string{},
		Renamed: []Rename{},
	}
	logger = logger.With(slog.String("run_id", report.RunID))

	files, err := s.auxiliaryFiles(auxDir, st.Path())
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	report.Files = len(files)

	working := st.Records()
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sync: %w", err)
		}

		aux, err := codec.ReadFile(path)
		if err == nil {
			err = checkNames(aux)
		}
		if err != nil {
			logger.Warn("auxiliary store skipped",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			report.Failed = append(report.Failed, FileError{Path: path, Err: err})
			continue
		}

		s.mergeFile(working, aux, path, report, logger)
	}

	if !report.Changed {
		logger.Info("sync finished: no changes",
			slog.Int("files", report.Files),
			slog.Int("failed", len(report.Failed)),
		)
		return report, nil
	}

	if err := st.Replace(working); err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	if err := st.Persist(); err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}

	logger.Info("sync finished",
		slog.Int("files", report.Files),
		slog.Int("added", len(report.Added)),
		slog.Int("renamed", len(report.Renamed)),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", len(report.Failed)),
	)
	return report, nil
}

// mergeFile folds one auxiliary mapping into working.
func (s *Synchronizer) mergeFile(working, aux map[string]payload.Value, source string, report *Report, logger *slog.Logger) {
	for _, name := range payload.Map(aux).SortedKeys() {
		incoming := aux[name]

		existing, taken := working[name]
		switch {
		case !taken:
			working[name] = incoming
			report.Added = append(report.Added, name)
			report.Changed = true
			logger.Debug("record added", slog.String("name", name), slog.String("source", source))

		case payload.Equal(existing, incoming):
			report.Skipped++

		default:
			fresh, dup := s.freshName(working, name, incoming)
			if dup {
				report.Skipped++
				continue
			}
			working[fresh] = incoming
			report.Renamed = append(report.Renamed, Rename{From: name, To: fresh, Source: source})
			report.Changed = true
			logger.Info("conflicting record stored under new name",
				slog.String("name", name),
				slog.String("new_name", fresh),
				slog.String("source", source),
			)
		}
	}
}

// checkNames rejects an auxiliary mapping holding a name the primary store
// could not accept, so the file is skipped instead of failing the run.
func checkNames(records map[string]payload.Value) error {
	for _, name := range payload.Map(records).SortedKeys() {
		if err := store.ValidateName(name); err != nil {
			return fmt.Errorf("record %q: %w", name, err)
		}
	}
	return nil
}

// freshName walks name+suffix, name+suffix+suffix, ... against the current
// accumulated mapping. It returns the first free candidate, or dup=true if a
// candidate on the way already holds an equal payload.
func (s *Synchronizer) freshName(working map[string]payload.Value, name string, incoming payload.Value) (string, bool) {
	candidate := name + s.suffix()
	for {
		existing, taken := working[candidate]
		if !taken {
			return candidate, false
		}
		if payload.Equal(existing, incoming) {
			return candidate, true
		}
		candidate += s.suffix()
	}
}

// auxiliaryFiles lists regular files in dir carrying the store extension,
// sorted by name. A missing directory has no files. The primary store file
// is excluded should it live in the same directory.
func (s *Synchronizer) auxiliaryFiles(dir, primary string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read auxiliary dir: %w", err)
	}

	primaryAbs, _ := filepath.Abs(primary)
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), s.extension()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if abs, _ := filepath.Abs(path); abs == primaryAbs {
			continue
		}
		files = append(files, path)
	}
	slices.Sort(files)
	return files, nil
}

func (s *Synchronizer) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Synchronizer) suffix() string {
	if s.Suffix != "" {
		return s.Suffix
	}
	return DefaultSuffix
}

func (s *Synchronizer) extension() string {
	if s.Extension != "" {
		return s.Extension
	}
	return DefaultExtension
}
