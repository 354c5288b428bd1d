package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/schemastore/internal/testutil"
)

var epoch = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func newManager(t *testing.T) (*Manager, *testutil.FakeClock, string) {
	t.Helper()
	dir := t.TempDir()
	clock := testutil.NewFakeClock(epoch)
	m := &Manager{
		Dir:    filepath.Join(dir, "backups"),
		Ext:    ".barfi",
		Clock:  clock,
		Logger: testutil.DiscardLogger(),
	}
	src := filepath.Join(dir, "schemas.barfi")
	return m, clock, src
}

func writeSource(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func backupNames(t *testing.T, m *Manager) []string {
	t.Helper()
	entries, err := m.List()
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, filepath.Base(e.Path))
	}
	return names
}

func TestPolicyState(t *testing.T) {
	p := NewPolicy(10 * time.Minute)
	assert.Equal(t, StateDue, p.State(epoch), "no backup recorded yet")

	p.Last = epoch
	assert.Equal(t, StateIdle, p.State(epoch))
	assert.Equal(t, StateIdle, p.State(epoch.Add(10*time.Minute-time.Second)))
	assert.Equal(t, StateDue, p.State(epoch.Add(10*time.Minute)))
	assert.Equal(t, StateDue, p.State(epoch.Add(time.Hour)))
}

func TestNewPolicyDefaultsInterval(t *testing.T) {
	assert.Equal(t, DefaultInterval, NewPolicy(0).Interval)
	assert.Equal(t, DefaultInterval, NewPolicy(-time.Second).Interval)
}

func TestCheckAndBackupFirstCallCopies(t *testing.T) {
	m, _, src := newManager(t)
	writeSource(t, src, "store-bytes")

	p, res, err := m.CheckAndBackup(NewPolicy(time.Hour), src)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, epoch, p.Last)
	assert.Equal(t, "backup_2024-03-09_14-05-07.barfi", filepath.Base(res.Path))

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "store-bytes", string(data))
}

func TestCheckAndBackupGating(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		want    int
	}{
		{"within interval", 30 * time.Second, 1},
		{"exactly at interval", time.Minute, 2},
		{"past interval", 90 * time.Second, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, clock, src := newManager(t)
			writeSource(t, src, "x")

			p := NewPolicy(time.Minute)
			p, _, err := m.CheckAndBackup(p, src)
			require.NoError(t, err)

			clock.Advance(tt.advance)
			_, _, err = m.CheckAndBackup(p, src)
			require.NoError(t, err)

			assert.Len(t, backupNames(t, m), tt.want)
		})
	}
}

func TestCheckAndBackupIdleLeavesPolicy(t *testing.T) {
	m, clock, src := newManager(t)
	writeSource(t, src, "x")

	p, _, err := m.CheckAndBackup(NewPolicy(time.Minute), src)
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	next, res, err := m.CheckAndBackup(p, src)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, res.Outcome)
	assert.Empty(t, res.Path)
	assert.Equal(t, p, next)
}

func TestCheckAndBackupMissingSource(t *testing.T) {
	m, clock, src := newManager(t)

	p := NewPolicy(time.Minute)
	next, res, err := m.CheckAndBackup(p, src)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Equal(t, p, next, "policy stays due")
	assert.Empty(t, backupNames(t, m))

	_, err = os.Stat(m.Dir)
	assert.True(t, os.IsNotExist(err), "no backup dir created for a missing source")

	// The store appears a moment later and is backed up at once.
	writeSource(t, src, "x")
	clock.Advance(time.Second)
	_, res, err = m.CheckAndBackup(next, src)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
}

func TestBackupSameSecondGetsSuffix(t *testing.T) {
	m, _, src := newManager(t)
	writeSource(t, src, "first")

	first, err := m.Backup(src)
	require.NoError(t, err)

	writeSource(t, src, "second")
	second, err := m.Backup(src)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, "backup_2024-03-09_14-05-07_1.barfi", filepath.Base(second))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data), "earlier backup not overwritten")
}

func TestBackupMissingSourceIsError(t *testing.T) {
	m, _, src := newManager(t)
	_, err := m.Backup(src)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestListOrdersOldestFirstAndIgnoresOthers(t *testing.T) {
	m, clock, src := newManager(t)
	writeSource(t, src, "x")

	for i := 0; i < 3; i++ {
		_, err := m.Backup(src)
		require.NoError(t, err)
	}
	clock.Advance(time.Hour)
	_, err := m.Backup(src)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(m.Dir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir, "backup_garbage.barfi"), nil, 0o644))

	assert.Equal(t, []string{
		"backup_2024-03-09_14-05-07.barfi",
		"backup_2024-03-09_14-05-07_1.barfi",
		"backup_2024-03-09_14-05-07_2.barfi",
		"backup_2024-03-09_15-05-07.barfi",
	}, backupNames(t, m))
}

func TestListMissingDir(t *testing.T) {
	m, _, _ := newManager(t)
	entries, err := m.List()
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestPrune(t *testing.T) {
	m, clock, src := newManager(t)
	writeSource(t, src, "x")

	for i := 0; i < 5; i++ {
		_, err := m.Backup(src)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	removed, err := m.Prune(2)
	require.NoError(t, err)
	assert.Len(t, removed, 3)
	assert.Equal(t, []string{
		"backup_2024-03-09_14-08-07.barfi",
		"backup_2024-03-09_14-09-07.barfi",
	}, backupNames(t, m))

	removed, err = m.Prune(0)
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Len(t, backupNames(t, m), 2)
}

func TestCheckAndBackupKeepPrunes(t *testing.T) {
	m, clock, src := newManager(t)
	m.Keep = 2
	writeSource(t, src, "x")

	p := NewPolicy(time.Minute)
	var err error
	for i := 0; i < 4; i++ {
		p, _, err = m.CheckAndBackup(p, src)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	assert.Len(t, backupNames(t, m), 2)
}
