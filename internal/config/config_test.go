package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvStore, "")
	t.Setenv(EnvAuxDir, "")
	t.Setenv(EnvBackupDir, "")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "schemas.barfi", cfg.StorePath)
	assert.Equal(t, "files", cfg.AuxDir)
	assert.Equal(t, "backups", cfg.BackupDir)
	assert.Equal(t, ".barfi", cfg.Extension)
	assert.Equal(t, 15*time.Minute, cfg.BackupInterval.Std())
	assert.Equal(t, "_copy", cfg.CopySuffix)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "schemastore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store_path: data/main.barfi
backup_interval: 1h30m
backup_keep: 10
lock_timeout: 2
watch:
  debounce: 250ms
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/main.barfi", cfg.StorePath)
	assert.Equal(t, 90*time.Minute, cfg.BackupInterval.Std())
	assert.Equal(t, 10, cfg.BackupKeep)
	assert.Equal(t, 2*time.Second, cfg.LockTimeout.Std(), "bare integers are seconds")
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce.Std())

	// Untouched keys keep their defaults.
	assert.Equal(t, "files", cfg.AuxDir)
	assert.Equal(t, "_copy", cfg.CopySuffix)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad duration", "backup_interval: soon\n"},
		{"mapping as duration", "backup_interval: {a: 1}\n"},
		{"not yaml", "store_path: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), "schemastore.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvStore, "/env/store.barfi")
	t.Setenv(EnvAuxDir, "/env/files")
	t.Setenv(EnvBackupDir, "/env/backups")

	path := filepath.Join(t.TempDir(), "schemastore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_path: file.barfi\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/env/store.barfi", cfg.StorePath)
	assert.Equal(t, "/env/files", cfg.AuxDir)
	assert.Equal(t, "/env/backups", cfg.BackupDir)

	// Also applied when there is no file.
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/env/store.barfi", cfg.StorePath)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "schemastore.yaml")

	cfg := Default()
	cfg.BackupInterval = Duration(42 * time.Second)
	cfg.Extension = ".store"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty store path", func(c *Config) { c.StorePath = "" }, "store_path"},
		{"empty aux dir", func(c *Config) { c.AuxDir = "" }, "aux_dir"},
		{"empty backup dir", func(c *Config) { c.BackupDir = "" }, "backup_dir"},
		{"extension without dot", func(c *Config) { c.Extension = "barfi" }, "extension"},
		{"bare dot extension", func(c *Config) { c.Extension = "." }, "extension"},
		{"zero interval", func(c *Config) { c.BackupInterval = 0 }, "backup_interval"},
		{"negative keep", func(c *Config) { c.BackupKeep = -1 }, "backup_keep"},
		{"empty suffix", func(c *Config) { c.CopySuffix = "" }, "copy_suffix"},
		{"negative lock timeout", func(c *Config) { c.LockTimeout = Duration(-time.Second) }, "lock_timeout"},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = Duration(-time.Second) }, "debounce"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
