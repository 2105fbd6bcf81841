package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/TanaroSch/multi-capture/internal/logging"
)

var log = logging.For("config")

const (
	DefaultHotkeyA   = "ctrl+alt+1"
	DefaultHotkeyB   = "ctrl+alt+2"
	DefaultHotkeyC   = "ctrl+alt+s"
	DefaultOutputDir = "./screenshots"
)

// Environment variables that override values read from the config file.
const (
	EnvHotkeyA       = "MULTICAPTURE_HOTKEY_A"
	EnvHotkeyB       = "MULTICAPTURE_HOTKEY_B"
	EnvHotkeyC       = "MULTICAPTURE_HOTKEY_C"
	EnvOutputDir     = "MULTICAPTURE_OUTPUT_DIR"
	EnvHotkeyBackend = "MULTICAPTURE_HOTKEY_BACKEND"
)

var (
	ErrEmptyRegionName = errors.New("region name is empty")
	ErrEmptyRegion     = errors.New("region has zero width or height")
	ErrDuplicateRegion = errors.New("a region with this name already exists")
	ErrRegionNotFound  = errors.New("region not found")
)

// Region is a named screen rectangle. Corners may be stored in any order.
type Region struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	X1        int    `json:"x1"`
	Y1        int    `json:"y1"`
	X2        int    `json:"x2"`
	Y2        int    `json:"y2"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Rect returns the normalized rectangle of the region.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Config holds the application configuration
type Config struct {
	OutputDir string `json:"output_dir"`
	HotkeyA   string `json:"hotkey_a"`
	HotkeyB   string `json:"hotkey_b"`
	HotkeyC   string `json:"hotkey_c"`
	// ScreenshotInterval is the timer period in seconds, 0 disables the timer.
	ScreenshotInterval int  `json:"screenshot_interval"`
	UseNotifications   bool `json:"use_notifications"`
	// HotkeyBackend is auto, hook, native, listener or disabled.
	HotkeyBackend     string   `json:"hotkey_backend,omitempty"`
	ListenerCancelKey string   `json:"listener_cancel_key,omitempty"`
	Debug             bool     `json:"debug,omitempty"`
	Regions           []Region `json:"regions"`

	// Non-JSON fields (runtime state)
	configPath string
	// fileValues holds the file's value of every field replaced from the
	// environment, keyed by variable name, so Save never persists overrides.
	fileValues map[string]string
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		OutputDir:        DefaultOutputDir,
		HotkeyA:          DefaultHotkeyA,
		HotkeyB:          DefaultHotkeyB,
		HotkeyC:          DefaultHotkeyC,
		UseNotifications: true,
		HotkeyBackend:    "auto",
		Regions:          []Region{},
	}
}

// GetConfigPath returns the path to the configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Interval returns the screenshot timer period.
func (c *Config) Interval() time.Duration {
	if c.ScreenshotInterval <= 0 {
		return 0
	}
	return time.Duration(c.ScreenshotInterval) * time.Second
}

// Overridden returns the names of the environment variables applied at load.
func (c *Config) Overridden() []string {
	names := make([]string, 0, len(c.fileValues))
	for _, f := range envFields {
		if _, ok := c.fileValues[f.env]; ok {
			names = append(names, f.env)
		}
	}
	return names
}

// LoadDotEnv loads dir/.env into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat '%s': %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load '%s': %w", path, err)
	}
	log.Info().Str("path", path).Msg("Loaded environment file")
	return nil
}

// Load reads and parses the configuration file, creating it with defaults
// when missing, then applies environment overrides. Hotkey strings are not
// validated here; the hotkey service reports bad ones on registration.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
		}
		log.Info().Str("path", configPath).Msg("Config file not found, creating default")
		if createErr := CreateDefaultConfig(configPath); createErr != nil {
			return nil, fmt.Errorf("config file not found and failed to create default '%s': %w", configPath, createErr)
		}
		data, err = os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s' even after creating default: %w", configPath, err)
		}
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", configPath, err)
	}
	if cfg.Regions == nil {
		cfg.Regions = []Region{}
	}
	if cfg.ScreenshotInterval < 0 {
		log.Warn().Int("interval", cfg.ScreenshotInterval).Msg("Negative screenshot interval, timer disabled")
		cfg.ScreenshotInterval = 0
	}
	cfg.configPath = configPath
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

type envField struct {
	env   string
	field func(c *Config) *string
}

var envFields = []envField{
	{EnvHotkeyA, func(c *Config) *string { return &c.HotkeyA }},
	{EnvHotkeyB, func(c *Config) *string { return &c.HotkeyB }},
	{EnvHotkeyC, func(c *Config) *string { return &c.HotkeyC }},
	{EnvOutputDir, func(c *Config) *string { return &c.OutputDir }},
	{EnvHotkeyBackend, func(c *Config) *string { return &c.HotkeyBackend }},
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	c.fileValues = make(map[string]string)
	for _, f := range envFields {
		v, ok := lookup(f.env)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			continue
		}
		p := f.field(c)
		c.fileValues[f.env] = *p
		*p = v
		log.Info().Str("var", f.env).Str("value", v).Msg("Config value overridden from environment")
	}
}

// Save writes the configuration back to its file. Values that came from the
// environment are written with their file values.
func (c *Config) Save() error {
	out := *c
	out.Regions = append([]Region{}, c.Regions...)
	for _, f := range envFields {
		if v, ok := c.fileValues[f.env]; ok {
			*f.field(&out) = v
		}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.configPath, data, 0600)
}

// Region edits below never write into the existing Regions array: they build
// a new slice, so a slice taken earlier stays valid for its reader.

// AddRegion appends a named region and saves the configuration.
func (c *Config) AddRegion(name string, r image.Rectangle) (Region, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Region{}, ErrEmptyRegionName
	}
	r = r.Canon()
	if r.Empty() {
		return Region{}, fmt.Errorf("%w: %v", ErrEmptyRegion, r)
	}
	for _, existing := range c.Regions {
		if strings.EqualFold(existing.Name, name) {
			return Region{}, fmt.Errorf("%w: '%s'", ErrDuplicateRegion, name)
		}
	}

	now := time.Now()
	region := Region{
		ID:        c.newRegionID(now),
		Name:      name,
		X1:        r.Min.X,
		Y1:        r.Min.Y,
		X2:        r.Max.X,
		Y2:        r.Max.Y,
		CreatedAt: now.Format(time.RFC3339),
	}
	regions := make([]Region, 0, len(c.Regions)+1)
	regions = append(append(regions, c.Regions...), region)
	if err := c.replaceRegions(regions); err != nil {
		return Region{}, err
	}
	log.Info().Str("name", name).Str("rect", r.String()).Msg("Region added")
	return region, nil
}

// newRegionID derives an ID from t, stepping past IDs already in use.
func (c *Config) newRegionID(t time.Time) string {
	n := t.UnixNano()
	for {
		id := strconv.FormatInt(n, 36)
		if _, taken := c.FindRegion(id); !taken {
			return id
		}
		n++
	}
}

// FindRegion returns the region with the given ID.
func (c *Config) FindRegion(id string) (Region, bool) {
	for _, r := range c.Regions {
		if r.ID == id {
			return r, true
		}
	}
	return Region{}, false
}

// DeleteRegion removes the region with the given ID and saves the
// configuration.
func (c *Config) DeleteRegion(id string) (Region, error) {
	regions := make([]Region, 0, len(c.Regions))
	var removed *Region
	for i := range c.Regions {
		if c.Regions[i].ID == id && removed == nil {
			removed = &c.Regions[i]
			continue
		}
		regions = append(regions, c.Regions[i])
	}
	if removed == nil {
		return Region{}, fmt.Errorf("%w: '%s'", ErrRegionNotFound, id)
	}
	region := *removed
	if err := c.replaceRegions(regions); err != nil {
		return Region{}, err
	}
	log.Info().Str("name", region.Name).Msg("Region deleted")
	return region, nil
}

// UpdateRegionRect moves the region with the given ID to r and saves the
// configuration. Name, ID and creation time are kept.
func (c *Config) UpdateRegionRect(id string, r image.Rectangle) (Region, error) {
	r = r.Canon()
	if r.Empty() {
		return Region{}, fmt.Errorf("%w: %v", ErrEmptyRegion, r)
	}
	regions := append([]Region(nil), c.Regions...)
	for i := range regions {
		if regions[i].ID != id {
			continue
		}
		regions[i].X1, regions[i].Y1 = r.Min.X, r.Min.Y
		regions[i].X2, regions[i].Y2 = r.Max.X, r.Max.Y
		region := regions[i]
		if err := c.replaceRegions(regions); err != nil {
			return Region{}, err
		}
		log.Info().Str("name", region.Name).Str("rect", r.String()).Msg("Region updated")
		return region, nil
	}
	return Region{}, fmt.Errorf("%w: '%s'", ErrRegionNotFound, id)
}

// replaceRegions saves regions as the new region list. On failure the old
// list is kept.
func (c *Config) replaceRegions(regions []Region) error {
	old := c.Regions
	c.Regions = regions
	if err := c.Save(); err != nil {
		c.Regions = old
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// ValidateOutputDir checks that dir exists, or can be created, and that
// files can be written to it.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("output directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create output directory '%s': %w", dir, err)
	}
	f, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		return fmt.Errorf("output directory '%s' is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return nil
}

// CreateDefaultConfig creates a default configuration file if none exists
func CreateDefaultConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("error checking config path '%s': %w", configPath, err)
	}

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory '%s': %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default config to JSON: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write default config file '%s': %w", configPath, err)
	}
	log.Info().Str("path", configPath).Msg("Default configuration file created")
	return nil
}
