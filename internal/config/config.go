package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// OrganizerConfig is the identity written into exported ICS files.
type OrganizerConfig struct {
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email" json:"email"`
}

// CalendarConfig seeds a personal calendar at startup.
type CalendarConfig struct {
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

// SubscriptionConfig describes a public source the user can follow.
type SubscriptionConfig struct {
	Name string `yaml:"name" json:"name"`
	// URL is an optional ICS feed refreshed into the public catalog.
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`
	Followed bool   `yaml:"followed" json:"followed"`
	// Color overrides the display colour of events linked from this source.
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// PublicEventConfig seeds one catalog entry. Date is RFC 3339.
type PublicEventConfig struct {
	Title     string `yaml:"title" json:"title"`
	Date      string `yaml:"date" json:"date"`
	Source    string `yaml:"source" json:"source"`
	Type      string `yaml:"type" json:"type"`
	Location  string `yaml:"location,omitempty" json:"location,omitempty"`
	WebLink   string `yaml:"web_link,omitempty" json:"web_link,omitempty"`
	DateAdded string `yaml:"date_added,omitempty" json:"date_added,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used for CSV import and floating ICS times.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is the cron schedule for refreshing subscription feeds.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds the feed cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ShareBaseURL prefixes share links.
	ShareBaseURL string `yaml:"share_base_url" json:"share_base_url"`

	// MaxCalendars caps the number of personal calendars.
	MaxCalendars int `yaml:"max_calendars" json:"max_calendars"`

	Organizer     OrganizerConfig      `yaml:"organizer" json:"organizer"`
	Calendars     []CalendarConfig     `yaml:"calendars" json:"calendars"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions" json:"subscriptions"`
	PublicEvents  []PublicEventConfig  `yaml:"public_events" json:"public_events"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "UTC"
	defaultLogLevel     = "info"
	defaultRefreshCron  = "0 * * * *"
	defaultCacheDir     = "./var/feed-cache"
	defaultShareBaseURL = "https://yourapp.com"
	defaultMaxCalendars = 5
)

// DefaultConfig returns the built-in configuration: three personal
// calendars, three followed sources and a small public catalog.
func DefaultConfig() *Config {
	return &Config{
		Listen:       defaultListen,
		Timezone:     defaultTimezone,
		LogLevel:     defaultLogLevel,
		RefreshCron:  defaultRefreshCron,
		CacheDir:     defaultCacheDir,
		ShareBaseURL: defaultShareBaseURL,
		MaxCalendars: defaultMaxCalendars,
		Organizer:    OrganizerConfig{Name: "Your Name", Email: "your@email.com"},
		Calendars: []CalendarConfig{
			{Name: "Work", Color: "#2196F3"},
			{Name: "Personal", Color: "#4CAF50"},
			{Name: "Family", Color: "#FF9800"},
		},
		Subscriptions: []SubscriptionConfig{
			{Name: "Liverpool FC", Followed: true, Color: "#C8102E"},
			{Name: "TechEvents", Followed: true, Color: "#C8102E"},
			{Name: "GlobalDays", Followed: true, Color: "#4CAF50"},
		},
		PublicEvents: []PublicEventConfig{
			{Title: "Tech Conference", Date: "2024-10-15T09:00:00Z", Source: "TechEvents", Type: "post", Location: "San Francisco, CA", WebLink: "https://techconference.com", DateAdded: "2024-09-01T00:00:00Z"},
			{Title: "Social Media Day", Date: "2024-10-16T10:30:00Z", Source: "GlobalDays", Type: "post", DateAdded: "2024-09-05T00:00:00Z"},
			{Title: "Liverpool vs Manchester United", Date: "2024-10-20T15:00:00Z", Source: "Liverpool FC", Type: "post", Location: "Anfield, Liverpool", WebLink: "https://www.liverpoolfc.com/match/2024-25/men/fixtures-results", DateAdded: "2024-09-10T00:00:00Z"},
			{Title: "Liverpool vs Everton", Date: "2024-11-05T15:00:00Z", Source: "Liverpool FC", Type: "post", Location: "Anfield, Liverpool", WebLink: "https://www.liverpoolfc.com/match/2024-25/men/fixtures-results", DateAdded: "2024-09-15T00:00:00Z"},
			{Title: "Arsenal vs Liverpool", Date: "2024-11-12T17:30:00Z", Source: "Liverpool FC", Type: "post", Location: "Emirates Stadium, London", WebLink: "https://www.liverpoolfc.com/match/2024-25/men/fixtures-results", DateAdded: "2024-09-20T00:00:00Z"},
		},
	}
}

// Normalize fills zero values with defaults so partial files still work.
// Seed lists are left alone: an explicit empty list means "none".
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.ShareBaseURL == "" {
		c.ShareBaseURL = defaultShareBaseURL
	}
	if c.MaxCalendars <= 0 {
		c.MaxCalendars = defaultMaxCalendars
	}
	if c.Organizer.Email == "" {
		c.Organizer = OrganizerConfig{Name: "Your Name", Email: "your@email.com"}
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarConfig{}
	}
	if c.Subscriptions == nil {
		c.Subscriptions = []SubscriptionConfig{}
	}
	if c.PublicEvents == nil {
		c.PublicEvents = []PublicEventConfig{}
	}
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads the YAML file at path. On first run (file missing) the
// default configuration is written there with 0600 permissions and
// returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, errors.Wrap(err, "config: write default")
			}
			return cfg, nil
		}
		return nil, errors.Wrap(err, "config: read")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg atomically (temp file in the same directory, then
// rename) with 0600 permissions.
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

	tmp, err := os.CreateTemp(dir, ".socialcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
