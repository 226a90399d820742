package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, 9, cfg.DayStartHour)

	// The default file was written with restrictive permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "127.0.0.1:9999"
	cfg.Days = []string{"2026-03-18", "2026-03-19"}
	cfg.Clusters = []ClusterConfig{{Name: "Red River", Venues: []string{"Stubb's", "Mohawk"}}}
	cfg.Recurring = []RecurringConfig{{Name: "Day Party", Venue: "Patio", RRule: "FREQ=DAILY", StartTime: "12:00"}}
	cfg.ImportPMCutoffHour = 8
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Listen, loaded.Listen)
	assert.Equal(t, cfg.Days, loaded.Days)
	assert.Equal(t, cfg.Clusters, loaded.Clusters)
	assert.Equal(t, cfg.Recurring, loaded.Recurring)
	assert.Equal(t, 8, loaded.ImportPMCutoffHour)
}

func TestNormalizeFillsDefaults(t *testing.T) {
	var cfg Config
	cfg.Normalize()

	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, 9, cfg.DayStartHour)
	assert.Equal(t, 9, cfg.ImportPMCutoffHour)
	assert.Equal(t, 3, cfg.FeedMinRating)
	assert.NotEmpty(t, cfg.RefreshCron)
	assert.NotNil(t, cfg.Days)
	assert.NotNil(t, cfg.Clusters)
	assert.NotNil(t, cfg.Recurring)

	// Out-of-range values are clamped back to defaults.
	cfg.DayStartHour = 30
	cfg.FeedMinRating = 9
	cfg.Normalize()
	assert.Equal(t, 9, cfg.DayStartHour)
	assert.Equal(t, 3, cfg.FeedMinRating)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n\t- nope"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}
