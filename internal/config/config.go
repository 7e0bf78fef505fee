package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"rostercal/internal/ics"
	"rostercal/internal/roster"
	"rostercal/internal/shift"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

const (
	defaultListen      = "127.0.0.1:8080"
	defaultRefresh     = "*/5 * * * *"
	defaultConcurrency = 4
	defaultPreset      = "default"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// SourceConfig is a roster published at a URL and pulled into the inbox
// before every scan.
type SourceConfig struct {
	// ID names the inbox file; derived from the URL when empty.
	ID  string `yaml:"id" json:"id"`
	URL string `yaml:"url" json:"url"`
}

// PolicyConfig selects a named roster layout and optionally overrides it.
type PolicyConfig struct {
	// Preset is "default" or "haka".
	Preset string `yaml:"preset" json:"preset"`

	// Custom, when set, replaces the preset entirely.
	Custom *roster.Policy `yaml:"custom,omitempty" json:"custom,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone roster times are written in (e.g. "Pacific/Auckland").
	Timezone string `yaml:"timezone" json:"timezone"`

	// SummaryPrefix precedes the hour count in every event summary.
	SummaryPrefix string `yaml:"summary_prefix" json:"summary_prefix"`

	// InboxDir is scanned for new roster files. Empty disables the scheduler.
	InboxDir string `yaml:"inbox_dir" json:"inbox_dir"`

	// OutputDir receives one .ics per employee for every inbox roster.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Sources are downloaded into InboxDir before each scan.
	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// CacheDir keeps HTTP validators for Sources. Defaults under InboxDir.
	CacheDir string `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`

	// RefreshCron is a cron-style schedule string (e.g. "*/5 * * * *")
	// for the inbox scan.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Concurrency bounds how many employee calendars are built at once.
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	Policy PolicyConfig `yaml:"policy" json:"policy"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        defaultListen,
		Timezone:      shift.DefaultZone,
		SummaryPrefix: ics.DefaultSummaryPrefix,
		RefreshCron:   defaultRefresh,
		Concurrency:   defaultConcurrency,
		Policy:        PolicyConfig{Preset: defaultPreset},
		Sources:       []SourceConfig{},
		BasicAuth:     nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = shift.DefaultZone
	}
	if c.SummaryPrefix == "" {
		c.SummaryPrefix = ics.DefaultSummaryPrefix
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.Policy.Preset == "" {
		c.Policy.Preset = defaultPreset
	}
	if c.Policy.Custom != nil {
		c.Policy.Custom.Normalize()
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	// Outputs and cache default next to the inbox.
	if c.InboxDir != "" && c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.InboxDir, "calendars")
	}
	if c.InboxDir != "" && c.CacheDir == "" {
		c.CacheDir = filepath.Join(c.InboxDir, ".cache")
	}
}

// Validate reports settings that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := shift.LoadZone(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone: %w", err)
	}
	if len(c.Sources) > 0 && c.InboxDir == "" {
		return errors.New("config: sources need inbox_dir")
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		return errors.New("config: basic_auth needs both username and password")
	}
	return nil
}

// RosterPolicy returns the effective normalization policy.
func (c *Config) RosterPolicy() roster.Policy {
	var p roster.Policy
	if c.Policy.Custom != nil {
		p = *c.Policy.Custom
	} else {
		p = roster.PolicyByName(c.Policy.Preset)
	}
	p.Normalize()
	return p
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path, atomically
// via a temp file + rename, with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to a temp file in path's directory and renames
// it over path, so readers never see a partial file. Parent directories are
// created with 0700.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".rostercal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
