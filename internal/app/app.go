package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/TanaroSch/multi-capture/internal/capture"
	"github.com/TanaroSch/multi-capture/internal/clipboard"
	"github.com/TanaroSch/multi-capture/internal/config"
	"github.com/TanaroSch/multi-capture/internal/diffutil"
	"github.com/TanaroSch/multi-capture/internal/hotkey"
	"github.com/TanaroSch/multi-capture/internal/logging"
	"github.com/TanaroSch/multi-capture/internal/pointer"
	"github.com/TanaroSch/multi-capture/internal/resources"
	"github.com/TanaroSch/multi-capture/internal/ui"
)

const appName = "Multi Capture"

// diffLimit caps the changed lines listed after a reload.
const diffLimit = 12

var log = logging.For("app")

// Application represents the main application
type Application struct {
	version string

	mu     sync.RWMutex
	config *config.Config

	hotkeys          *hotkey.Service
	locator          *pointer.Locator
	sweeper          *capture.Sweeper
	clipboardManager *clipboard.Manager
	systrayManager   *ui.SystrayManager
	notifications    *ui.NotificationManager

	paused      bool
	stopTimer   context.CancelFunc
	timerDone   chan struct{}
	quitOnce    sync.Once
	hotkeyNames [3]string
}

// New creates a new application instance
func New(cfg *config.Config, version string) *Application {
	icon, err := resources.GetIcon()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load embedded icon")
	}

	a := &Application{
		version:          version,
		config:           cfg,
		locator:          pointer.New(),
		clipboardManager: clipboard.NewManager(),
		notifications:    ui.InitGlobalNotifications(cfg.UseNotifications, appName, icon),
	}

	preferred, hasPreference, err := hotkey.ParseKind(cfg.HotkeyBackend)
	if err != nil {
		log.Warn().Err(err).Msg("Falling back to automatic hotkey backend selection")
	}
	a.hotkeys = hotkey.NewService(hotkey.Options{
		Preferred:     preferred,
		HasPreference: hasPreference,
		CancelKey:     cfg.ListenerCancelKey,
	})
	a.sweeper = capture.NewSweeper(a.outputDir)

	a.systrayManager = ui.NewSystrayManager(appName, version, icon, ui.Actions{
		SaveRegion:    a.onSaveRegion,
		CaptureRegion: a.onCaptureRegion,
		UpdateRegion:  a.onUpdateRegion,
		DeleteRegion:  a.onDeleteRegion,
		CopyCoords:    a.onCopyCoords,
		ClearCoords:   a.onClearCoords,
		CaptureNow:    a.onCaptureNow,
		TogglePause:   a.onTogglePause,
		Diagnostics:   a.onDiagnostics,
		ReloadConfig:  a.onReloadConfig,
		OpenConfig:    a.onOpenConfigFile,
		OpenOutputDir: a.onOpenOutputDir,
		Quit:          a.onQuit,
	})
	return a
}

// Run registers the hotkeys, starts listening and the interval timer, and
// blocks in the tray until the user quits.
func (a *Application) Run() {
	cfg := a.currentConfig()
	a.applyHotkeys(nil, cfg)
	if err := a.hotkeys.Start(); err != nil {
		log.Error().Err(err).Msg("Failed to start hotkey listening")
		ui.ShowAdminNotification(ui.LevelError, "Hotkey Error", fmt.Sprintf("Hotkeys are not active: %v", err))
	}
	a.restartTimer(cfg)
	a.refreshStatus()

	log.Info().Str("version", a.version).Str("backend", a.hotkeys.BackendName()).Msg("Application running")
	a.systrayManager.Run()
	a.shutdown()
}

func (a *Application) currentConfig() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

func (a *Application) outputDir() string {
	return a.currentConfig().OutputDir
}

// regions returns a copy of the saved regions.
func (a *Application) regions() []config.Region {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]config.Region(nil), a.config.Regions...)
}

func (a *Application) addRegion(name string, rect image.Rectangle) (config.Region, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config.AddRegion(name, rect)
}

func (a *Application) updateRegion(id string, rect image.Rectangle) (config.Region, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config.UpdateRegionRect(id, rect)
}

func (a *Application) deleteRegion(id string) (config.Region, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config.DeleteRegion(id)
}

func (a *Application) findRegion(id string) (config.Region, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config.FindRegion(id)
}

// applyHotkeys replaces the hotkeys of prev (nil at startup) with those of
// next. Problems are reported but never stop the application.
func (a *Application) applyHotkeys(prev, next *config.Config) {
	if prev != nil {
		for _, hk := range []string{prev.HotkeyA, prev.HotkeyB, prev.HotkeyC} {
			if err := a.hotkeys.Unregister(hk); err != nil && !errors.Is(err, hotkey.ErrNotRegistered) {
				log.Warn().Err(err).Str("hotkey", hk).Msg("Failed to unregister hotkey")
			}
		}
	}

	var problems []string
	if err := checkDistinctHotkeys(next); err != nil {
		problems = append(problems, err.Error())
	}
	bindings := []struct {
		hotkey string
		fn     hotkey.Callback
	}{
		{next.HotkeyA, a.anchor(hotkey.SlotTopLeft)},
		{next.HotkeyB, a.anchor(hotkey.SlotBottomRight)},
		{next.HotkeyC, a.onCaptureHotkey},
	}
	for _, b := range bindings {
		if err := a.hotkeys.Unregister(b.hotkey); err != nil && !errors.Is(err, hotkey.ErrNotRegistered) {
			log.Warn().Err(err).Str("hotkey", b.hotkey).Msg("Failed to unregister hotkey")
		}
		if err := a.hotkeys.Register(b.hotkey, b.fn); err != nil {
			problems = append(problems, fmt.Sprintf("'%s': %v", b.hotkey, err))
		}
	}

	a.mu.Lock()
	a.hotkeyNames = [3]string{displayHotkey(next.HotkeyA), displayHotkey(next.HotkeyB), displayHotkey(next.HotkeyC)}
	a.mu.Unlock()

	if len(problems) > 0 {
		msg := strings.Join(problems, "\n")
		log.Warn().Str("problems", msg).Msg("Some hotkeys could not be registered")
		ui.ShowAdminNotification(ui.LevelWarn, "Hotkey Registration Issue", msg)
	} else {
		log.Info().Str("a", next.HotkeyA).Str("b", next.HotkeyB).Str("c", next.HotkeyC).Msg("Hotkeys registered")
	}
}

// checkDistinctHotkeys reports hotkeys configured for more than one action.
// A repeated string would silently replace the earlier binding.
func checkDistinctHotkeys(cfg *config.Config) error {
	named := []struct{ name, hotkey string }{
		{"hotkey_a", cfg.HotkeyA},
		{"hotkey_b", cfg.HotkeyB},
		{"hotkey_c", cfg.HotkeyC},
	}
	seen := make(map[string]string, len(named))
	for _, n := range named {
		d, err := hotkey.Parse(n.hotkey)
		if err != nil {
			continue
		}
		key := d.String()
		if first, ok := seen[key]; ok {
			return fmt.Errorf("%s and %s are both '%s'", first, n.name, key)
		}
		seen[key] = n.name
	}
	return nil
}

func (a *Application) anchor(slot hotkey.Slot) hotkey.Callback {
	store := a.hotkeys.AnchorCallback(slot, a.locator.Position)
	return func() {
		store()
		c := a.hotkeys.CapturedCoords()
		a.refreshStatus()
		ui.ShowNotification("Position Captured", fmt.Sprintf("%s: %s", slot, coordsSummary(c)))
	}
}

func (a *Application) onCaptureHotkey() {
	a.captureAll("hotkey")
}

func (a *Application) captureAll(trigger string) {
	targets := a.regionTargets()
	if len(targets) == 0 {
		log.Info().Str("trigger", trigger).Msg("Capture requested but no regions are configured")
		ui.ShowNotification("Nothing to Capture", "Save a region first: anchor two corners with hotkeys A and B.")
		return
	}
	a.sweep(trigger, targets)
}

func (a *Application) sweep(trigger string, targets []capture.Target) {
	res := a.sweeper.Sweep(targets)
	log.Info().Str("trigger", trigger).Int("ok", res.Succeeded()).Int("failed", res.Failed()).Msg("Capture finished")
	if res.Failed() > 0 {
		ui.ShowAdminNotification(ui.LevelWarn, "Capture Incomplete", sweepMessage(res))
		return
	}
	ui.ShowNotification("Capture Complete", sweepMessage(res))
}

func (a *Application) regionTargets() []capture.Target {
	return regionTargets(a.regions())
}

// restartTimer stops a running interval timer and starts one for cfg.
func (a *Application) restartTimer(cfg *config.Config) {
	a.stopIntervalTimer()

	interval := cfg.Interval()
	if interval <= 0 {
		log.Info().Msg("Interval capture disabled")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.mu.Lock()
	a.stopTimer = cancel
	a.timerDone = done
	a.mu.Unlock()

	go func() {
		defer close(done)
		a.sweeper.Run(ctx, interval, a.regionTargets)
	}()
}

func (a *Application) stopIntervalTimer() {
	a.mu.Lock()
	cancel, done := a.stopTimer, a.timerDone
	a.stopTimer, a.timerDone = nil, nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (a *Application) refreshStatus() {
	a.mu.RLock()
	names := a.hotkeyNames
	paused := a.paused
	regions := regionEntries(a.config.Regions)
	a.mu.RUnlock()

	c := a.hotkeys.CapturedCoords()
	a.systrayManager.Update(ui.Status{
		Backend:        a.hotkeys.BackendName(),
		Listening:      a.hotkeys.IsListening(),
		Paused:         paused,
		Coords:         coordsSummary(c),
		CoordsComplete: c.Complete(),
		Regions:        regions,
		HotkeyA:        names[0],
		HotkeyB:        names[1],
		HotkeyC:        names[2],
	})
}

func (a *Application) onSaveRegion() {
	c := a.hotkeys.CapturedCoords()
	rect, ok := c.Rect()
	if !ok {
		ui.ShowAdminNotification(ui.LevelInfo, "Region Incomplete", "Anchor both corners with hotkeys A and B first.")
		return
	}

	name, err := ui.PromptRegionName(appName, rect.String())
	if err != nil {
		if errors.Is(err, ui.ErrCanceled) {
			log.Info().Msg("Save region canceled by user")
		} else {
			ui.ShowAdminNotification(ui.LevelWarn, "Input Error", "Failed to get the region name.")
		}
		return
	}

	// The corners may have moved while the dialog was open.
	rect, ok = a.hotkeys.TakeRegion()
	if !ok {
		ui.ShowAdminNotification(ui.LevelWarn, "Region Incomplete", "The captured coordinates were cleared before saving.")
		return
	}

	region, err := a.addRegion(name, rect)
	a.refreshStatus()
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("Failed to save region")
		ui.ShowError(appName, "Save Error", fmt.Sprintf("Region '%s' was not saved: %v", name, err))
		return
	}
	ui.ShowAdminNotification(ui.LevelInfo, "Region Saved", fmt.Sprintf("Region '%s' %v saved.", region.Name, region.Rect()))
}

func (a *Application) onCaptureRegion(id string) {
	region, ok := a.findRegion(id)
	if !ok {
		log.Warn().Str("id", id).Msg("Capture requested for unknown region")
		return
	}
	targets := regionTargets([]config.Region{region})
	if len(targets) == 0 {
		ui.ShowAdminNotification(ui.LevelWarn, "Nothing to Capture", fmt.Sprintf("Region '%s' is empty.", region.Name))
		return
	}
	a.sweep("menu:"+region.Name, targets)
}

// onUpdateRegion moves a region to the anchored rectangle, consuming it like
// Save Captured Region does.
func (a *Application) onUpdateRegion(id string) {
	region, ok := a.findRegion(id)
	if !ok {
		return
	}
	rect, ok := a.hotkeys.TakeRegion()
	if !ok {
		ui.ShowAdminNotification(ui.LevelInfo, "Region Incomplete", "Anchor both corners with hotkeys A and B first.")
		return
	}
	updated, err := a.updateRegion(id, rect)
	a.refreshStatus()
	if err != nil {
		log.Error().Err(err).Str("name", region.Name).Msg("Failed to update region")
		ui.ShowError(appName, "Save Error", fmt.Sprintf("Region '%s' was not updated: %v", region.Name, err))
		return
	}
	ui.ShowAdminNotification(ui.LevelInfo, "Region Updated", fmt.Sprintf("Region '%s' is now %v.", updated.Name, updated.Rect()))
}

func (a *Application) onDeleteRegion(id string) {
	region, ok := a.findRegion(id)
	if !ok {
		return
	}
	if !ui.Confirm(appName, "Delete Region", fmt.Sprintf("Delete region '%s' %v?", region.Name, region.Rect())) {
		return
	}
	if _, err := a.deleteRegion(id); err != nil {
		log.Error().Err(err).Str("name", region.Name).Msg("Failed to delete region")
		ui.ShowError(appName, "Save Error", fmt.Sprintf("Region '%s' was not deleted: %v", region.Name, err))
		return
	}
	a.refreshStatus()
	ui.ShowAdminNotification(ui.LevelInfo, "Region Deleted", fmt.Sprintf("Region '%s' deleted.", region.Name))
}

func (a *Application) onCopyCoords() {
	text, err := a.clipboardManager.CopyCoords(a.hotkeys.CapturedCoords())
	if err != nil {
		if errors.Is(err, clipboard.ErrNothingCaptured) {
			ui.ShowAdminNotification(ui.LevelInfo, "Nothing Captured", "Anchor a position with hotkey A or B first.")
			return
		}
		log.Error().Err(err).Msg("Failed to copy coordinates")
		ui.ShowAdminNotification(ui.LevelError, "Clipboard Error", err.Error())
		return
	}
	ui.ShowNotification("Coordinates Copied", text)
}

func (a *Application) onClearCoords() {
	a.hotkeys.ClearCapturedCoords()
	a.refreshStatus()
}

func (a *Application) onCaptureNow() {
	a.captureAll("menu")
}

func (a *Application) onTogglePause() {
	a.mu.Lock()
	pause := !a.paused
	a.paused = pause
	a.mu.Unlock()

	var err error
	if pause {
		err = a.hotkeys.Stop()
	} else {
		err = a.hotkeys.Start()
	}
	if err != nil {
		log.Error().Err(err).Bool("pause", pause).Msg("Failed to toggle hotkey listening")
		ui.ShowAdminNotification(ui.LevelError, "Hotkey Error", err.Error())
	} else {
		log.Info().Bool("paused", pause).Msg("Hotkey listening toggled")
	}
	a.refreshStatus()
}

func (a *Application) onDiagnostics() {
	text := diagnosticsText(a.hotkeys.BackendName(), a.hotkeys.IsListening(), a.hotkeys.Registrations())
	log.Debug().Str("diagnostics", text).Msg("Hotkey diagnostics requested")
	ui.ShowInfo(appName, "Hotkey Diagnostics", text)
}

// onReloadConfig reloads config.json, re-registers the hotkeys and restarts
// the interval timer. The hotkey backend is fixed for the process lifetime.
func (a *Application) onReloadConfig() {
	old := a.currentConfig()
	configPath := old.GetConfigPath()
	if configPath == "" {
		configPath = "config.json"
	}

	newConfig, err := config.Load(configPath)
	if err != nil {
		errMsg := fmt.Sprintf("Failed to reload configuration. Check %s. Error: %v", configPath, err)
		log.Error().Err(err).Str("path", configPath).Msg("Error reloading configuration")
		ui.ShowAdminNotification(ui.LevelError, "Configuration Error", errMsg)
		return
	}

	a.mu.RLock()
	oldSnapshot := configSnapshot(old)
	a.mu.RUnlock()
	changes := diffutil.LineChanges(oldSnapshot, configSnapshot(newConfig))
	summary := diffutil.Summary(changes, diffLimit)
	log.Info().Int("changes", len(changes)).Msg("Configuration reloaded")

	a.mu.Lock()
	a.config = newConfig
	a.mu.Unlock()

	a.notifications.SetEnabled(newConfig.UseNotifications)
	if err := config.ValidateOutputDir(newConfig.OutputDir); err != nil {
		log.Warn().Err(err).Msg("Output directory is not usable")
		ui.ShowAdminNotification(ui.LevelWarn, "Output Directory", err.Error())
	}
	a.applyHotkeys(old, newConfig)
	a.restartTimer(newConfig)
	a.refreshStatus()

	if !strings.EqualFold(strings.TrimSpace(old.HotkeyBackend), strings.TrimSpace(newConfig.HotkeyBackend)) {
		ui.ShowAdminNotification(ui.LevelWarn, "Configuration Reloaded", "The hotkey backend changes after a restart.")
	}
	ui.ShowAdminNotification(ui.LevelInfo, "Configuration Reloaded", summary)
}

func (a *Application) onOpenConfigFile() {
	configPath := a.currentConfig().GetConfigPath()
	if configPath == "" {
		configPath = "config.json"
	}
	a.openPath(configPath, "Error Opening File")
}

func (a *Application) onOpenOutputDir() {
	dir := a.outputDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		ui.ShowAdminNotification(ui.LevelWarn, "Error Opening Folder", err.Error())
		return
	}
	a.openPath(dir, "Error Opening Folder")
}

func (a *Application) openPath(path, errTitle string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to resolve absolute path")
		absPath = path
	}
	if _, err := os.Stat(absPath); err != nil {
		log.Error().Err(err).Str("path", absPath).Msg("Cannot open path")
		ui.ShowAdminNotification(ui.LevelWarn, errTitle, fmt.Sprintf("Not found: %s", absPath))
		return
	}
	if err := ui.OpenFileInDefaultApp(absPath); err != nil {
		log.Error().Err(err).Str("path", absPath).Msg("Failed to open path")
		ui.ShowAdminNotification(ui.LevelWarn, errTitle, err.Error())
	}
}

// onQuit is called when the quit menu item is clicked
func (a *Application) onQuit() {
	log.Info().Msg("Quit requested")
	a.shutdown()
}

func (a *Application) shutdown() {
	a.quitOnce.Do(func() {
		a.stopIntervalTimer()
		if err := a.hotkeys.Stop(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop hotkey listening")
		}
		log.Info().Msg("Application stopped")
	})
}

// coordsSummary renders the captured slots for the tray, e.g.
// "(10, 20) → (300, 400)". Unset slots show as "?".
func coordsSummary(c hotkey.CapturedCoords) string {
	if c.TopLeft == nil && c.BottomRight == nil {
		return ""
	}
	corner := func(p *hotkey.Point) string {
		if p == nil {
			return "?"
		}
		return p.String()
	}
	return corner(c.TopLeft) + " → " + corner(c.BottomRight)
}

// displayHotkey renders a configured hotkey for the tray, keeping strings that
// do not parse as they are.
func displayHotkey(s string) string {
	d, err := hotkey.Parse(s)
	if err != nil {
		return s
	}
	return d.Display()
}

func regionEntries(regions []config.Region) []ui.RegionEntry {
	entries := make([]ui.RegionEntry, 0, len(regions))
	for _, r := range regions {
		entries = append(entries, ui.RegionEntry{ID: r.ID, Name: r.Name, Rect: r.Rect().String()})
	}
	return entries
}

func regionTargets(regions []config.Region) []capture.Target {
	targets := make([]capture.Target, 0, len(regions))
	for _, r := range regions {
		rect := r.Rect()
		if rect.Empty() {
			log.Warn().Str("region", r.Name).Msg("Skipping empty region")
			continue
		}
		targets = append(targets, capture.Target{Name: r.Name, Rect: rect})
	}
	return targets
}

func sweepMessage(res capture.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d regions saved.", res.Succeeded(), len(res.Shots))
	for _, s := range res.Shots {
		if s.Err != nil {
			fmt.Fprintf(&b, "\n%s: %v", s.Name, s.Err)
		}
	}
	return b.String()
}

func diagnosticsText(backend string, listening bool, regs []hotkey.Registration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Backend: %s\nListening: %t\n", backend, listening)
	if len(regs) == 0 {
		b.WriteString("\nNo hotkeys registered.")
		return b.String()
	}
	for _, r := range regs {
		state := "inactive"
		if r.Active {
			state = "active"
		}
		fmt.Fprintf(&b, "\n%s [%s] %s, fired %d", r.Hotkey, r.Handle, state, r.Fired)
		if r.Err != "" {
			fmt.Fprintf(&b, "\n    error: %s", r.Err)
		}
	}
	return b.String()
}

// configSnapshot renders cfg as indented JSON, one field per line.
func configSnapshot(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to render configuration")
		return ""
	}
	return string(data)
}
