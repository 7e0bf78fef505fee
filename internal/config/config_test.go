package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rostercal/internal/roster"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadPartialNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
timezone: Europe/London
inbox_dir: /srv/rosters
policy:
  preset: haka
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", cfg.Timezone)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, "HK Shift", cfg.SummaryPrefix)
	assert.Equal(t, filepath.Join("/srv/rosters", "calendars"), cfg.OutputDir)
	assert.Equal(t, defaultConcurrency, cfg.Concurrency)
	assert.Equal(t, roster.HakaPolicy(), cfg.RosterPolicy())
	require.NoError(t, cfg.Validate())
}

func TestCustomPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
policy:
  preset: haka
  custom:
    columns: 16
    skip_markers: ["Subtotal"]
    off_markers: ["OFF", "AL"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	p := cfg.RosterPolicy()
	assert.Equal(t, 16, p.Columns)
	assert.Equal(t, 0, p.TrailingRows)
	assert.Equal(t, []string{"Subtotal"}, p.SkipMarkers)
	assert.Equal(t, []string{"OFF", "AL"}, p.OffMarkers)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin"}
	assert.Error(t, cfg.Validate())
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [oops"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
	_, err = Load("")
	assert.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "a.ics")

	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
