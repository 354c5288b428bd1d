package backup

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/schemastore/internal/fsutil"
)

// Defaults matching the store's file layout.
const (
	DefaultInterval  = 15 * time.Minute
	DefaultDir       = "backups"
	DefaultExtension = ".barfi"

	// Prefix starts every backup file name.
	Prefix = "backup_"
	// TimestampLayout renders the capture time with second precision.
	TimestampLayout = "2006-01-02_15-04-05"
)

// Clock abstracts wall time so gating can be tested without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the real wall clock.
var SystemClock Clock = systemClock{}

// State is the gating state of a Policy at a given instant.
type State string

const (
	StateIdle State = "idle" // within Interval of the last backup
	StateDue  State = "due"  // Interval elapsed, or no backup recorded yet
)

// Policy is the time gate for backups. It is a plain value: the caller keeps
// the Policy returned by CheckAndBackup and passes it to the next call.
type Policy struct {
	Interval time.Duration
	// Last is the time of the last backup. The zero time means none yet,
	// which behaves like "now minus Interval": the first check is Due.
	Last time.Time
}

// NewPolicy returns a Policy with no backup recorded.
func NewPolicy(interval time.Duration) Policy {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return Policy{Interval: interval}
}

// State reports whether a backup is due at now.
func (p Policy) State(now time.Time) State {
	if p.Last.IsZero() || now.Sub(p.Last) >= p.Interval {
		return StateDue
	}
	return StateIdle
}

// Outcome describes what a check did.
type Outcome string

const (
	OutcomeCreated Outcome = "created" // a backup file was written
	OutcomeIdle    Outcome = "idle"    // not due yet
	OutcomeSkipped Outcome = "skipped" // due, but there is no store file yet
)

// Result reports the outcome of CheckAndBackup.
type Result struct {
	Outcome Outcome  `json:"outcome"`
	Path    string   `json:"path,omitempty"`
	Pruned  []string `json:"pruned,omitempty"`
}

// Manager writes timestamped copies of a store file into Dir.
type Manager struct {
	// Dir receives the backup files.
	Dir string
	// Ext is the backup file extension, including the dot.
	Ext string
	// Keep, when positive, prunes the oldest backups after each new one so
	// at most Keep remain.
	Keep int
	// Clock defaults to SystemClock.
	Clock Clock
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// CheckAndBackup copies src into the backup directory if p is Due.
//
// In the Idle state it does nothing and returns p unchanged. In the Due
// state it copies src byte for byte and returns p with Last set to the
// current time. A missing src is not an error: nothing is copied and p is
// returned unchanged, so the first real store file is backed up promptly.
func (m *Manager) CheckAndBackup(p Policy, src string) (Policy, Result, error) {
	now := m.clock().Now()
	if p.State(now) == StateIdle {
		return p, Result{Outcome: OutcomeIdle}, nil
	}

	path, err := m.copy(src, now)
	if errors.Is(err, fs.ErrNotExist) {
		m.logger().Debug("backup skipped: store file does not exist", slog.String("src", src))
		return p, Result{Outcome: OutcomeSkipped}, nil
	}
	if err != nil {
		return p, Result{}, err
	}

	p.Last = now
	res := Result{Outcome: OutcomeCreated, Path: path}
	if m.Keep > 0 {
		pruned, err := m.Prune(m.Keep)
		if err != nil {
			// The new backup exists; a failed cleanup is reported but does
			// not roll back the policy.
			return p, res, fmt.Errorf("prune backups: %w", err)
		}
		res.Pruned = pruned
	}
	return p, res, nil
}

// Backup copies src unconditionally and returns the backup path. A missing
// src is returned as an error satisfying errors.Is(err, fs.ErrNotExist).
func (m *Manager) Backup(src string) (string, error) {
	return m.copy(src, m.clock().Now())
}

func (m *Manager) copy(src string, now time.Time) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	path, err := m.freePath(now)
	if err != nil {
		return "", err
	}
	if err := fsutil.CopyFileAtomic(src, path, 0o644); err != nil {
		return "", fmt.Errorf("backup %s: %w", src, err)
	}

	m.logger().Info("backup created",
		slog.String("src", src),
		slog.String("path", path),
	)
	return path, nil
}

// freePath returns backup_<timestamp><ext>, or backup_<timestamp>_<n><ext>
// if a backup was already taken within the same second.
func (m *Manager) freePath(now time.Time) (string, error) {
	stamp := Prefix + now.Format(TimestampLayout)
	for n := 0; ; n++ {
		name := stamp + m.ext()
		if n > 0 {
			name = stamp + "_" + strconv.Itoa(n) + m.ext()
		}
		path := filepath.Join(m.Dir, name)
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	}
}

// Entry is one backup file found in the backup directory.
type Entry struct {
	Path  string    `json:"path"`
	Taken time.Time `json:"taken"`
	Seq   int       `json:"-"`
	Size  int64     `json:"size"`
}

// List returns the backups in Dir, oldest first. Files not following the
// backup naming scheme are ignored. A missing directory has no backups.
func (m *Manager) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(m.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	entries := []Entry{}
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		taken, seq, ok := m.parseName(de.Name())
		if !ok {
			continue
		}
		var size int64
		if info, err := de.Info(); err == nil {
			size = info.Size()
		}
		entries = append(entries, Entry{
			Path:  filepath.Join(m.Dir, de.Name()),
			Taken: taken,
			Seq:   seq,
			Size:  size,
		})
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := a.Taken.Compare(b.Taken); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	return entries, nil
}

// Prune removes the oldest backups so that at most keep remain, returning
// the removed paths. keep <= 0 keeps everything.
func (m *Manager) Prune(keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	entries, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(entries) <= keep {
		return nil, nil
	}

	var removed []string
	for _, e := range entries[:len(entries)-keep] {
		if err := os.Remove(e.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", e.Path, err)
		}
		removed = append(removed, e.Path)
		m.logger().Info("backup pruned", slog.String("path", e.Path))
	}
	return removed, nil
}

// parseName extracts the capture time and same-second sequence number from
// a backup file name.
func (m *Manager) parseName(name string) (time.Time, int, bool) {
	rest, ok := strings.CutPrefix(name, Prefix)
	if !ok {
		return time.Time{}, 0, false
	}
	rest, ok = strings.CutSuffix(rest, m.ext())
	if !ok || len(rest) < len(TimestampLayout) {
		return time.Time{}, 0, false
	}

	taken, err := time.ParseInLocation(TimestampLayout, rest[:len(TimestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}

	seq := 0
	if tail := rest[len(TimestampLayout):]; tail != "" {
		n, ok := strings.CutPrefix(tail, "_")
		if !ok {
			return time.Time{}, 0, false
		}
		seq, err = strconv.Atoi(n)
		if err != nil || seq < 1 {
			return time.Time{}, 0, false
		}
	}
	return taken, seq, true
}

func (m *Manager) clock() Clock {
	if m.Clock != nil {
		return m.Clock
	}
	return SystemClock
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func (m *Manager) ext() string {
	if m.Ext != "" {
		return m.Ext
	}
	return DefaultExtension
}
