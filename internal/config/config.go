package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/schemastore/internal/backup"
	"github.com/roach88/schemastore/internal/syncer"
)

// DefaultFileName is the config file looked up when --config is not given.
const DefaultFileName = "schemastore.yaml"

// Environment variables overriding file values.
const (
	EnvStore     = "SCHEMASTORE_STORE"
	EnvAuxDir    = "SCHEMASTORE_AUX_DIR"
	EnvBackupDir = "SCHEMASTORE_BACKUP_DIR"
)

// Config holds the store layout and the timing of background work.
type Config struct {
	// StorePath is the primary store file.
	StorePath string `yaml:"store_path"`
	// AuxDir holds auxiliary store files merged by sync.
	AuxDir string `yaml:"aux_dir"`
	// BackupDir receives timestamped store copies.
	BackupDir string `yaml:"backup_dir"`
	// Extension marks store, auxiliary, backup and transfer files.
	Extension string `yaml:"extension"`

	BackupInterval Duration `yaml:"backup_interval"`
	BackupKeep     int      `yaml:"backup_keep"` // 0 keeps every backup
	CopySuffix     string   `yaml:"copy_suffix"`
	LockTimeout    Duration `yaml:"lock_timeout"`

	Watch WatchConfig `yaml:"watch"`
}

// WatchConfig tunes the watch command.
type WatchConfig struct {
	// Debounce coalesces bursts of auxiliary-dir events into one sync.
	Debounce Duration `yaml:"debounce"`
}

// Default returns the reference layout: schemas.barfi next to files/ and
// backups/, a 15 minute backup interval and the "_copy" suffix.
func Default() *Config {
	return &Config{
		StorePath:      "schemas" + syncer.DefaultExtension,
		AuxDir:         "files",
		BackupDir:      backup.DefaultDir,
		Extension:      syncer.DefaultExtension,
		BackupInterval: Duration(backup.DefaultInterval),
		BackupKeep:     0,
		CopySuffix:     syncer.DefaultSuffix,
		LockTimeout:    Duration(5 * time.Second),
		Watch: WatchConfig{
			Debounce: Duration(500 * time.Millisecond),
		},
	}
}

// Load reads the YAML config at path over the defaults, then applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvStore); v != "" {
		c.StorePath = v
	}
	if v := os.Getenv(EnvAuxDir); v != "" {
		c.AuxDir = v
	}
	if v := os.Getenv(EnvBackupDir); v != "" {
		c.BackupDir = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.StorePath == "":
		return errors.New("store_path must not be empty")
	case c.AuxDir == "":
		return errors.New("aux_dir must not be empty")
	case c.BackupDir == "":
		return errors.New("backup_dir must not be empty")
	case !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2:
		return fmt.Errorf("extension %q must start with a dot", c.Extension)
	case c.BackupInterval <= 0:
		return fmt.Errorf("backup_interval must be positive, got %s", c.BackupInterval)
	case c.BackupKeep < 0:
		return fmt.Errorf("backup_keep must not be negative, got %d", c.BackupKeep)
	case c.CopySuffix == "":
		return errors.New("copy_suffix must not be empty")
	case c.LockTimeout < 0:
		return fmt.Errorf("lock_timeout must not be negative, got %s", c.LockTimeout)
	case c.Watch.Debounce < 0:
		return fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce)
	}
	return nil
}

// Duration is a time.Duration written as a Go duration string ("15m").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML accepts duration strings ("90s", "15m") and plain integers,
// which are read as seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.ShortTag() == "!!int" {
		var secs int64
		if err := node.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
