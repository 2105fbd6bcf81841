package config

import (
	"encoding/json"
	"errors"
	"image"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, v any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, f := range envFields {
		t.Setenv(f.env, "")
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HotkeyA != "ctrl+alt+1" || cfg.HotkeyB != "ctrl+alt+2" || cfg.HotkeyC != "ctrl+alt+s" {
		t.Errorf("hotkeys = %q %q %q", cfg.HotkeyA, cfg.HotkeyB, cfg.HotkeyC)
	}
	if cfg.OutputDir != DefaultOutputDir || cfg.ScreenshotInterval != 0 || !cfg.UseNotifications {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Regions == nil || len(cfg.Regions) != 0 {
		t.Errorf("regions = %#v, want empty slice", cfg.Regions)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default file not written: %v", err)
	}
	if cfg.GetConfigPath() != path {
		t.Errorf("config path = %q", cfg.GetConfigPath())
	}
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, map[string]any{"hotkey_a": "f7", "screenshot_interval": 30})

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HotkeyA != "f7" || cfg.HotkeyB != DefaultHotkeyB {
		t.Errorf("hotkeys = %q %q", cfg.HotkeyA, cfg.HotkeyB)
	}
	if !cfg.UseNotifications {
		t.Error("use_notifications should default to true")
	}
	if cfg.Interval() != 30*time.Second {
		t.Errorf("interval = %v", cfg.Interval())
	}
}

func TestLoadAcceptsMalformedHotkeys(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, map[string]any{"hotkey_a": "ctrl+", "hotkey_b": "ctrl+a+b"})
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("malformed hotkeys must not fail loading: %v", err)
	}
	if cfg.HotkeyA != "ctrl+" {
		t.Errorf("hotkey_a = %q", cfg.HotkeyA)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestNegativeIntervalDisablesTimer(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, map[string]any{"screenshot_interval": -5}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Interval() != 0 {
		t.Errorf("interval = %v, want 0", cfg.Interval())
	}
}

func TestEnvOverridesAreNotSaved(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvHotkeyC, "ctrl+shift+p")
	t.Setenv(EnvOutputDir, "/tmp/shots")
	path := writeConfig(t, map[string]any{"hotkey_c": "f12"})

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HotkeyC != "ctrl+shift+p" || cfg.OutputDir != "/tmp/shots" {
		t.Fatalf("overrides not applied: %q %q", cfg.HotkeyC, cfg.OutputDir)
	}
	if got := cfg.Overridden(); !reflect.DeepEqual(got, []string{EnvHotkeyC, EnvOutputDir}) {
		t.Errorf("Overridden() = %v", got)
	}

	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}
	clearEnv(t)
	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.HotkeyC != "f12" || reloaded.OutputDir != DefaultOutputDir {
		t.Errorf("override persisted: %q %q", reloaded.HotkeyC, reloaded.OutputDir)
	}
	if cfg.HotkeyC != "ctrl+shift+p" {
		t.Error("Save changed the in-memory value")
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := LoadDotEnv(dir); err != nil {
		t.Fatalf("missing .env: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvHotkeyA+"=alt+f1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvHotkeyA, "")
	os.Unsetenv(EnvHotkeyA)
	if err := LoadDotEnv(dir); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv(EnvHotkeyA); got != "alt+f1" {
		t.Errorf("%s = %q", EnvHotkeyA, got)
	}
}

func TestAddRegion(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	r, err := cfg.AddRegion(" chart ", image.Rect(300, 200, 100, 50))
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "chart" || r.Rect() != image.Rect(100, 50, 300, 200) || r.ID == "" {
		t.Errorf("region = %+v", r)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Regions) != 1 || reloaded.Regions[0].Name != "chart" {
		t.Errorf("regions after reload = %+v", reloaded.Regions)
	}

	for _, tt := range []struct {
		name string
		rect image.Rectangle
		want error
	}{
		{"", image.Rect(0, 0, 10, 10), ErrEmptyRegionName},
		{"flat", image.Rect(0, 5, 10, 5), ErrEmptyRegion},
		{"CHART", image.Rect(0, 0, 10, 10), ErrDuplicateRegion},
	} {
		if _, err := cfg.AddRegion(tt.name, tt.rect); !errors.Is(err, tt.want) {
			t.Errorf("AddRegion(%q) = %v, want %v", tt.name, err, tt.want)
		}
	}
	if len(cfg.Regions) != 1 {
		t.Errorf("rejected regions were appended: %+v", cfg.Regions)
	}
}

func loadWithRegions(t *testing.T, names ...string) (*Config, string) {
	t.Helper()
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	for i, name := range names {
		if _, err := cfg.AddRegion(name, image.Rect(0, 0, 10*(i+1), 10*(i+1))); err != nil {
			t.Fatal(err)
		}
	}
	return cfg, path
}

func TestRegionIDsAreUnique(t *testing.T) {
	cfg, _ := loadWithRegions(t, "a", "b", "c")
	seen := make(map[string]bool)
	for _, r := range cfg.Regions {
		if seen[r.ID] {
			t.Errorf("duplicate region id %q", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestDeleteRegion(t *testing.T) {
	cfg, path := loadWithRegions(t, "chart", "ticker")
	id := cfg.Regions[0].ID

	removed, err := cfg.DeleteRegion(id)
	if err != nil {
		t.Fatal(err)
	}
	if removed.Name != "chart" {
		t.Errorf("removed %q, want %q", removed.Name, "chart")
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Regions) != 1 || reloaded.Regions[0].Name != "ticker" {
		t.Errorf("regions after reload = %+v", reloaded.Regions)
	}

	if _, err := cfg.DeleteRegion(id); !errors.Is(err, ErrRegionNotFound) {
		t.Errorf("second DeleteRegion = %v, want %v", err, ErrRegionNotFound)
	}
}

func TestUpdateRegionRect(t *testing.T) {
	cfg, path := loadWithRegions(t, "chart")
	orig := cfg.Regions[0]

	got, err := cfg.UpdateRegionRect(orig.ID, image.Rect(400, 300, 200, 100))
	if err != nil {
		t.Fatal(err)
	}
	if got.Rect() != image.Rect(200, 100, 400, 300) || got.Name != orig.Name || got.CreatedAt != orig.CreatedAt {
		t.Errorf("updated region = %+v", got)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Regions[0].Rect() != image.Rect(200, 100, 400, 300) {
		t.Errorf("rect after reload = %v", reloaded.Regions[0].Rect())
	}

	if _, err := cfg.UpdateRegionRect(orig.ID, image.Rect(0, 0, 0, 10)); !errors.Is(err, ErrEmptyRegion) {
		t.Errorf("flat rect = %v, want %v", err, ErrEmptyRegion)
	}
	if _, err := cfg.UpdateRegionRect("missing", image.Rect(0, 0, 10, 10)); !errors.Is(err, ErrRegionNotFound) {
		t.Errorf("unknown id = %v, want %v", err, ErrRegionNotFound)
	}
}

func TestRegionEditsRollBackOnSaveFailure(t *testing.T) {
	cfg, _ := loadWithRegions(t, "chart")
	before := append([]Region(nil), cfg.Regions...)
	cfg.configPath = filepath.Join(t.TempDir(), "missing", "config.json")

	if _, err := cfg.AddRegion("ticker", image.Rect(0, 0, 5, 5)); err == nil {
		t.Error("AddRegion succeeded without a writable config file")
	}
	if _, err := cfg.DeleteRegion(before[0].ID); err == nil {
		t.Error("DeleteRegion succeeded without a writable config file")
	}
	if _, err := cfg.UpdateRegionRect(before[0].ID, image.Rect(0, 0, 5, 5)); err == nil {
		t.Error("UpdateRegionRect succeeded without a writable config file")
	}
	if !reflect.DeepEqual(cfg.Regions, before) {
		t.Errorf("regions = %+v, want %+v", cfg.Regions, before)
	}
}

func TestRegionEditsLeaveEarlierSlicesIntact(t *testing.T) {
	cfg, _ := loadWithRegions(t, "chart", "ticker")
	held := cfg.Regions
	want := append([]Region(nil), held...)

	if _, err := cfg.UpdateRegionRect(held[0].ID, image.Rect(1, 1, 2, 2)); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.DeleteRegion(held[1].ID); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.AddRegion("volume", image.Rect(0, 0, 3, 3)); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(held, want) {
		t.Errorf("earlier slice changed to %+v, want %+v", held, want)
	}
}

func TestValidateOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := ValidateOutputDir(dir); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("probe file left behind: %v", entries)
	}
	if err := ValidateOutputDir(" "); err == nil {
		t.Error("expected error for empty dir")
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if err := ValidateOutputDir(file); err == nil {
		t.Error("expected error when path is a file")
	}
}
