package hotkey

import (
	"os"
	"runtime"
)

// DisplayServer represents the type of display server in use
type DisplayServer int

const (
	DisplayServerUnknown DisplayServer = iota
	DisplayServerWindows
	DisplayServerMacOS
	DisplayServerX11
	DisplayServerWayland
)

func (ds DisplayServer) String() string {
	switch ds {
	case DisplayServerWindows:
		return "Windows"
	case DisplayServerMacOS:
		return "macOS"
	case DisplayServerX11:
		return "X11"
	case DisplayServerWayland:
		return "Wayland"
	default:
		return "Unknown"
	}
}

// DetectDisplayServer determines which display server is currently in use.
// This function is safe to call on any platform.
func DetectDisplayServer() DisplayServer {
	return detectDisplayServer(runtime.GOOS, os.Getenv)
}

func detectDisplayServer(goos string, getenv func(string) string) DisplayServer {
	switch goos {
	case "windows":
		return DisplayServerWindows
	case "darwin":
		return DisplayServerMacOS
	}
	// Wayland first: XWayland sessions set DISPLAY too.
	if getenv("WAYLAND_DISPLAY") != "" {
		return DisplayServerWayland
	}
	if getenv("DISPLAY") != "" {
		return DisplayServerX11
	}
	return DisplayServerUnknown
}

// Capabilities lists which hotkey mechanisms are usable in this process.
type Capabilities struct {
	DisplayServer DisplayServer
	// HookLibrary: golang.design/x/hotkey is compiled in and supports the
	// display server.
	HookLibrary bool
	// NativeHotkeys: the Win32 RegisterHotKey API can be loaded.
	NativeHotkeys bool
	// InputListener: the gohook event listener is compiled in and can see
	// key events on this display server.
	InputListener bool
	// Portal: an XDG desktop portal is reachable on the session bus. Only
	// reported; no backend uses it.
	Portal bool
}

// DetectCapabilities probes the environment once.
func DetectCapabilities() Capabilities {
	ds := DetectDisplayServer()
	caps := Capabilities{
		DisplayServer: ds,
		NativeHotkeys: nativeAPIAvailable(),
	}
	switch ds {
	case DisplayServerWindows, DisplayServerMacOS, DisplayServerX11:
		caps.HookLibrary = hookLibraryCompiled
		caps.InputListener = listenerCompiled
	case DisplayServerWayland:
		caps.Portal = hasPortalSupport()
	}
	log.Info().
		Str("display_server", ds.String()).
		Bool("hook_library", caps.HookLibrary).
		Bool("native", caps.NativeHotkeys).
		Bool("listener", caps.InputListener).
		Bool("portal", caps.Portal).
		Msg("Detected hotkey capabilities")
	return caps
}

func (c Capabilities) has(k Kind) bool {
	switch k {
	case KindHook:
		return c.HookLibrary
	case KindNative:
		return c.NativeHotkeys
	case KindListener:
		return c.InputListener
	case KindDisabled:
		return true
	}
	return false
}

// SelectKind picks the backend, first match wins: hook library, native
// message loop, input listener, disabled. A preferred kind is honoured when
// its capability is present.
func SelectKind(c Capabilities, preferred Kind, hasPreference bool) Kind {
	if hasPreference && c.has(preferred) {
		return preferred
	}
	switch {
	case c.HookLibrary:
		return KindHook
	case c.NativeHotkeys:
		return KindNative
	case c.InputListener:
		return KindListener
	}
	return KindDisabled
}
