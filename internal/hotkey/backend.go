package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBackendUnavailable is returned when no global hotkey mechanism can be
	// used on the current system.
	ErrBackendUnavailable = errors.New("no hotkey backend available on this system")
	// ErrNotRegistered is returned when unregistering an unknown hotkey.
	ErrNotRegistered = errors.New("hotkey not registered")
	// ErrUnsupportedKey is returned when a backend has no mapping for the
	// primary key of a hotkey.
	ErrUnsupportedKey = errors.New("key not supported by backend")
)

// RegistrationError is returned when the OS or hook library refuses a
// hotkey, e.g. because another process already owns the combination.
type RegistrationError struct {
	Hotkey  string
	Backend string
	// Code is the OS error code, when there is one.
	Code uint32
	Err  error
}

func (e *RegistrationError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: failed to register hotkey '%s' (code %d): %v", e.Backend, e.Hotkey, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: failed to register hotkey '%s': %v", e.Backend, e.Hotkey, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// Kind identifies a backend implementation.
type Kind int

const (
	KindDisabled Kind = iota
	KindHook
	KindNative
	KindListener
)

func (k Kind) String() string {
	switch k {
	case KindHook:
		return "hook"
	case KindNative:
		return "native"
	case KindListener:
		return "listener"
	default:
		return "disabled"
	}
}

// ParseKind parses a backend preference. Empty and "auto" yield ok=false,
// meaning no preference.
func ParseKind(s string) (kind Kind, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return KindDisabled, false, nil
	case "hook":
		return KindHook, true, nil
	case "native", "win32":
		return KindNative, true, nil
	case "listener":
		return KindListener, true, nil
	case "disabled", "off":
		return KindDisabled, true, nil
	}
	return KindDisabled, false, fmt.Errorf("unknown hotkey backend '%s'", s)
}

// Dispatcher is called by a backend, on a thread the backend owns, whenever
// a registered hotkey fires.
type Dispatcher func(hotkeyStr string)

// Backend abstracts one global hotkey mechanism. Backends hold only the
// technical handle of each hotkey; callbacks live in the Service and are
// reached through the Dispatcher the backend was built with.
type Backend interface {
	// Name returns a human-readable name for logs and diagnostics.
	Name() string
	Kind() Kind

	// Register binds hotkeyStr (the lookup key) to the parsed descriptor.
	Register(hotkeyStr string, d Descriptor) error
	// Unregister removes a hotkey. Unknown hotkeys yield ErrNotRegistered.
	Unregister(hotkeyStr string) error

	Start() error
	Stop() error

	// Registrations reports the backend-side state of every hotkey.
	Registrations() []Registration
}

// Registration is a diagnostics snapshot of one registered hotkey.
type Registration struct {
	Hotkey string `json:"hotkey"`
	// Handle is the backend handle: a numeric ID for the native backend, the
	// normalized string for the hook backend, key tokens for the listener.
	Handle string `json:"handle"`
	// Active is true when the hotkey is live at OS level.
	Active bool   `json:"active"`
	Fired  uint64 `json:"fired"`
	Err    string `json:"error,omitempty"`
}

// disabledBackend is used when no mechanism is usable. It never fails startup.
type disabledBackend struct{}

func (disabledBackend) Name() string { return "disabled" }
func (disabledBackend) Kind() Kind   { return KindDisabled }

func (disabledBackend) Register(hotkeyStr string, d Descriptor) error {
	return ErrBackendUnavailable
}

func (disabledBackend) Unregister(hotkeyStr string) error { return ErrNotRegistered }
func (disabledBackend) Start() error                      { return nil }
func (disabledBackend) Stop() error                       { return nil }
func (disabledBackend) Registrations() []Registration     { return nil }
