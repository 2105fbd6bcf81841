package ui

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// RegionEntry is one saved region in the Regions submenu.
type RegionEntry struct {
	ID   string
	Name string
	// Rect is the rectangle as shown, e.g. "(10,20)-(300,400)".
	Rect string
}

func (r RegionEntry) title() string {
	if r.Rect == "" {
		return r.Name
	}
	return r.Name + "  " + r.Rect
}

// Status is what the tray menu shows about the running application.
type Status struct {
	Backend   string
	Listening bool
	Paused    bool
	// Coords describes the captured coordinates, e.g. "(10, 20) → (300, 400)".
	Coords         string
	CoordsComplete bool
	Regions        []RegionEntry
	HotkeyA        string
	HotkeyB        string
	HotkeyC        string
}

func (st Status) statusTitle() string {
	state := "listening"
	switch {
	case st.Paused:
		state = "paused"
	case !st.Listening:
		state = "not listening"
	}
	return fmt.Sprintf("Hotkeys: %s (%s)", state, st.Backend)
}

func (st Status) coordsTitle() string {
	if st.Coords == "" {
		return "Captured: none"
	}
	return "Captured: " + st.Coords
}

func (st Status) captureTitle() string {
	return fmt.Sprintf("Capture All Regions Now (%d)", len(st.Regions))
}

func (st Status) regionsTitle() string {
	return fmt.Sprintf("Regions (%d)", len(st.Regions))
}

func (st Status) pauseTitle() string {
	if st.Paused {
		return "Resume Hotkeys"
	}
	return "Pause Hotkeys"
}

func (st Status) hotkeysTooltip() string {
	return fmt.Sprintf("A (top-left): %s\nB (bottom-right): %s\nC (capture): %s", st.HotkeyA, st.HotkeyB, st.HotkeyC)
}

// Actions are the handlers behind the tray menu items. Each runs on its own
// goroutine; nil handlers leave the item inert. Region handlers receive the
// region ID.
type Actions struct {
	SaveRegion    func()
	CaptureRegion func(id string)
	UpdateRegion  func(id string)
	DeleteRegion  func(id string)
	CopyCoords    func()
	ClearCoords   func()
	CaptureNow    func()
	TogglePause   func()
	Diagnostics   func()
	ReloadConfig  func()
	OpenConfig    func()
	OpenOutputDir func()
	Quit          func()
}

// SystrayManager handles the system tray icon and menu
type SystrayManager struct {
	appName      string
	version      string
	embeddedIcon []byte
	actions      Actions

	mu       sync.Mutex
	ready    bool
	status   Status
	miStatus *systray.MenuItem
	miCoords *systray.MenuItem
	miSave   *systray.MenuItem
	miCopy   *systray.MenuItem
	miClear  *systray.MenuItem
	miCap    *systray.MenuItem
	miPause  *systray.MenuItem

	miRegions   *systray.MenuItem
	regionMenus []*regionMenu
}

// regionMenu is one reusable entry of the Regions submenu. Entries are never
// removed; surplus ones are hidden.
type regionMenu struct {
	item    *systray.MenuItem
	capture *systray.MenuItem
	update  *systray.MenuItem
	remove  *systray.MenuItem
	// id of the region shown, empty while hidden. Guarded by
	// SystrayManager.mu.
	id string
}

// NewSystrayManager creates a new system tray manager
func NewSystrayManager(appName, version string, embeddedIcon []byte, actions Actions) *SystrayManager {
	return &SystrayManager{
		appName:      appName,
		version:      version,
		embeddedIcon: embeddedIcon,
		actions:      actions,
	}
}

// Run initializes and starts the system tray. It blocks until Quit.
func (s *SystrayManager) Run() {
	systray.Run(s.onReady, s.onExit)
}

// Update refreshes the menu. Before the tray is ready the status is kept and
// applied in onReady.
func (s *SystrayManager) Update(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
	if !s.ready {
		return
	}
	s.applyLocked()
}

func (s *SystrayManager) applyLocked() {
	st := s.status
	s.miStatus.SetTitle(st.statusTitle())
	s.miStatus.SetTooltip(st.hotkeysTooltip())
	s.miCoords.SetTitle(st.coordsTitle())
	s.miCap.SetTitle(st.captureTitle())
	s.miPause.SetTitle(st.pauseTitle())
	if st.CoordsComplete {
		s.miSave.Enable()
	} else {
		s.miSave.Disable()
	}
	if st.Coords != "" {
		s.miCopy.Enable()
		s.miClear.Enable()
	} else {
		s.miCopy.Disable()
		s.miClear.Disable()
	}
	if len(st.Regions) > 0 {
		s.miCap.Enable()
		s.miRegions.Enable()
	} else {
		s.miCap.Disable()
		s.miRegions.Disable()
	}
	s.miRegions.SetTitle(st.regionsTitle())
	s.applyRegionsLocked(st)
	systray.SetTooltip(fmt.Sprintf("%s %s\n%s", s.appName, s.version, st.statusTitle()))
}

func (s *SystrayManager) applyRegionsLocked(st Status) {
	for i, r := range st.Regions {
		if i == len(s.regionMenus) {
			s.regionMenus = append(s.regionMenus, s.newRegionMenu())
		}
		m := s.regionMenus[i]
		m.id = r.ID
		m.item.SetTitle(r.title())
		m.item.Show()
		if st.CoordsComplete {
			m.update.Enable()
		} else {
			m.update.Disable()
		}
	}
	for _, m := range s.regionMenus[len(st.Regions):] {
		m.id = ""
		m.item.Hide()
	}
}

// newRegionMenu requires mu.
func (s *SystrayManager) newRegionMenu() *regionMenu {
	m := &regionMenu{item: s.miRegions.AddSubMenuItem("", "Saved region")}
	m.capture = m.item.AddSubMenuItem("Capture", "Take a screenshot of this region")
	m.update = m.item.AddSubMenuItem("Replace with Captured Region", "Move this region to the anchored rectangle")
	m.remove = m.item.AddSubMenuItem("Delete", "Remove this region")
	s.handleRegion(m, m.capture, "Capture Region", s.actions.CaptureRegion)
	s.handleRegion(m, m.update, "Replace Region", s.actions.UpdateRegion)
	s.handleRegion(m, m.remove, "Delete Region", s.actions.DeleteRegion)
	return m
}

func (s *SystrayManager) handleRegion(m *regionMenu, item *systray.MenuItem, name string, fn func(string)) {
	if fn == nil {
		item.Disable()
		return
	}
	go func() {
		for range item.ClickedCh {
			s.mu.Lock()
			id := m.id
			s.mu.Unlock()
			if id == "" {
				continue
			}
			log.Debug().Str("item", name).Str("region", id).Msg("Menu item clicked")
			fn(id)
		}
	}()
}

// onReady is called by systray once the tray is ready.
func (s *SystrayManager) onReady() {
	title := fmt.Sprintf("%s %s", s.appName, s.version)
	systray.SetTitle(s.appName)
	systray.SetTooltip(title)
	if len(s.embeddedIcon) > 0 {
		systray.SetIcon(s.embeddedIcon)
	} else {
		log.Warn().Msg("No embedded icon data to set for systray")
	}

	miVersion := systray.AddMenuItem(fmt.Sprintf("Version: %s", s.version), s.appName+" version")
	miVersion.Disable()
	systray.AddSeparator()

	s.mu.Lock()
	s.miStatus = systray.AddMenuItem("Hotkeys: starting", "Configured hotkeys")
	s.miStatus.Disable()
	s.miCoords = systray.AddMenuItem("Captured: none", "Pointer positions anchored with hotkeys A and B")
	s.miCoords.Disable()
	systray.AddSeparator()

	s.miSave = systray.AddMenuItem("Save Captured Region...", "Add the anchored rectangle as a new region")
	s.miCopy = systray.AddMenuItem("Copy Captured Coordinates", "Copy the anchored coordinates to the clipboard")
	s.miClear = systray.AddMenuItem("Clear Captured Coordinates", "Forget both anchored positions")
	systray.AddSeparator()

	s.miCap = systray.AddMenuItem("Capture All Regions Now", "Take a screenshot of every region")
	s.miRegions = systray.AddMenuItem("Regions", "Capture, move or delete a saved region")
	miOpenOutput := systray.AddMenuItem("Open Screenshot Folder", "Open the output directory")
	systray.AddSeparator()

	s.miPause = systray.AddMenuItem("Pause Hotkeys", "Stop or resume listening for hotkeys")
	miDiagnostics := systray.AddMenuItem("Hotkey Diagnostics...", "Show backend and registration details")
	miReload := systray.AddMenuItem("Reload Configuration", "Reload config.json and re-register hotkeys")
	miOpenConfig := systray.AddMenuItem("Open Config File", "Open config.json in default editor")
	systray.AddSeparator()
	miQuit := systray.AddMenuItem("Quit", "Exit the application")

	s.ready = true
	s.applyLocked()
	s.mu.Unlock()

	s.handle(s.miSave, "Save Captured Region", s.actions.SaveRegion)
	s.handle(s.miCopy, "Copy Captured Coordinates", s.actions.CopyCoords)
	s.handle(s.miClear, "Clear Captured Coordinates", s.actions.ClearCoords)
	s.handle(s.miCap, "Capture All Regions Now", s.actions.CaptureNow)
	s.handle(miOpenOutput, "Open Screenshot Folder", s.actions.OpenOutputDir)
	s.handle(s.miPause, "Pause/Resume Hotkeys", s.actions.TogglePause)
	s.handle(miDiagnostics, "Hotkey Diagnostics", s.actions.Diagnostics)
	s.handle(miReload, "Reload Configuration", s.actions.ReloadConfig)
	s.handle(miOpenConfig, "Open Config File", s.actions.OpenConfig)

	go func() {
		<-miQuit.ClickedCh
		log.Info().Msg("Quit menu item clicked")
		if s.actions.Quit != nil {
			s.actions.Quit()
		}
		systray.Quit()
	}()

	log.Info().Msg("Systray ready and menu configured")
}

func (s *SystrayManager) handle(item *systray.MenuItem, name string, fn func()) {
	if fn == nil {
		item.Disable()
		return
	}
	go func() {
		for range item.ClickedCh {
			log.Debug().Str("item", name).Msg("Menu item clicked")
			fn()
		}
	}()
}

func (s *SystrayManager) onExit() {
	log.Info().Msg("Systray exiting")
}
