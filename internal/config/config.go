package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CatalogConfig describes the festival's remote data collections. Any URL
// may be empty; a missing or failing optional source is treated as an empty
// collection.
type CatalogConfig struct {
	// ArtistsURL serves the official artist catalog (JSON array).
	ArtistsURL string `yaml:"artists_url" json:"artists_url"`
	// EventsURL serves the official event catalog (JSON array).
	EventsURL string `yaml:"events_url" json:"events_url"`
	// UnofficialURL serves the curated unofficial show list (JSON array).
	UnofficialURL string `yaml:"unofficial_url" json:"unofficial_url"`
}

// ClusterConfig groups physically adjacent venues that should stay visually
// together in grid display.
type ClusterConfig struct {
	Name   string   `yaml:"name" json:"name"`
	Venues []string `yaml:"venues" json:"venues"`
}

// RecurringConfig is a curated series that repeats across the festival (e.g.
// a day party running every day). RRule is an RFC 5545 recurrence rule
// evaluated over the festival window.
type RecurringConfig struct {
	Name      string `yaml:"name" json:"name"`
	Venue     string `yaml:"venue" json:"venue"`
	RRule     string `yaml:"rrule" json:"rrule"`
	StartTime string `yaml:"start_time" json:"start_time"`
	EndTime   string `yaml:"end_time,omitempty" json:"end_time,omitempty"`
	Admission string `yaml:"admission,omitempty" json:"admission,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone the festival runs in (e.g. "America/Chicago").
	Timezone string `yaml:"timezone" json:"timezone"`

	// Days are the festival days as ISO dates, in order.
	Days []string `yaml:"days" json:"days"`

	// DayStartHour is the wall-clock hour a festival day begins; times
	// earlier than this belong to the previous night. Default 9.
	DayStartHour int `yaml:"day_start_hour" json:"day_start_hour"`

	// ImportPMCutoffHour: a bare (HHMM) time override in imported grids with
	// an hour below this is read as PM. Default 9.
	ImportPMCutoffHour int `yaml:"import_pm_cutoff_hour" json:"import_pm_cutoff_hour"`

	// RefreshCron is a cron-style schedule string (e.g. "*/30 * * * *")
	// used for periodic catalog refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// StatePath is the JSON file holding ratings and user-added events.
	StatePath string `yaml:"state_path" json:"state_path"`

	// CacheDir is the base directory for the catalog HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// FeedMinRating is the minimum rating an event needs to appear in the
	// exported ICS feed.
	FeedMinRating int `yaml:"feed_min_rating" json:"feed_min_rating"`

	Catalog   CatalogConfig     `yaml:"catalog" json:"catalog"`
	Clusters  []ClusterConfig   `yaml:"clusters" json:"clusters"`
	Recurring []RecurringConfig `yaml:"recurring" json:"recurring"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:             "127.0.0.1:8080",
		Timezone:           "America/Chicago",
		Days:               []string{},
		DayStartHour:       9,
		ImportPMCutoffHour: 9,
		RefreshCron:        "*/30 * * * *",
		StatePath:          "/var/lib/festwiz/state.json",
		CacheDir:           "/var/lib/festwiz/catalog-cache",
		FeedMinRating:      3,
		Catalog:            CatalogConfig{},
		Clusters:           []ClusterConfig{},
		Recurring:          []RecurringConfig{},
		BasicAuth:          nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Chicago"
	}
	if c.Days == nil {
		c.Days = []string{}
	}
	if c.DayStartHour <= 0 || c.DayStartHour > 23 {
		c.DayStartHour = 9
	}
	if c.ImportPMCutoffHour <= 0 || c.ImportPMCutoffHour > 23 {
		c.ImportPMCutoffHour = 9
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/30 * * * *"
	}
	if c.StatePath == "" {
		c.StatePath = "/var/lib/festwiz/state.json"
	}
	if c.CacheDir == "" {
		c.CacheDir = "/var/lib/festwiz/catalog-cache"
	}
	if c.FeedMinRating <= 0 || c.FeedMinRating > 4 {
		c.FeedMinRating = 3
	}
	if c.Clusters == nil {
		c.Clusters = []ClusterConfig{}
	}
	if c.Recurring == nil {
		c.Recurring = []RecurringConfig{}
	}
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
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".festwiz-config-*.tmp")
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

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
