package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Callback is the application work bound to a hotkey. It runs on the
// backend's thread and must not call Register, Unregister, Start or Stop
// directly: the native backend serves those on that same thread, so the call
// would block until the loop timeout. Hand such work to a new goroutine.
type Callback func()

// CallbackFault is a panic recovered from a callback at the dispatch boundary.
type CallbackFault struct {
	Hotkey string
	Value  any
}

func (f *CallbackFault) Error() string {
	return fmt.Sprintf("callback for hotkey '%s' panicked: %v", f.Hotkey, f.Value)
}

// Options configures backend selection.
type Options struct {
	// Preferred is used when HasPreference is set and the matching
	// capability is present.
	Preferred     Kind
	HasPreference bool
	// CancelKey, when set, stops the input listener backend on release.
	CancelKey string
}

// selfStopping is implemented by backends that can stop on their own.
type selfStopping interface {
	Running() bool
}

type binding struct {
	fn    Callback
	fired atomic.Uint64
	fault atomic.Pointer[string]
}

// Service is the single entry point to global hotkeys. It picks one backend
// at construction, owns every callback and the captured coordinates.
type Service struct {
	backend Backend

	// regMu serializes Register, Unregister and Start/Stop. It is never held
	// while a callback runs.
	regMu     sync.Mutex
	listening atomic.Bool

	mu       sync.RWMutex
	bindings map[string]*binding

	coords coordStore
}

// NewService probes the environment and builds the service on the selected
// backend. It never fails: without a usable mechanism the service is
// disabled and Register reports ErrBackendUnavailable.
func NewService(opts Options) *Service {
	caps := DetectCapabilities()
	kind := SelectKind(caps, opts.Preferred, opts.HasPreference)
	if opts.HasPreference && kind != opts.Preferred {
		log.Warn().Str("preferred", opts.Preferred.String()).Str("selected", kind.String()).Msg("Preferred hotkey backend not available")
	}

	cancelKey := ""
	if opts.CancelKey != "" {
		if d, err := Parse(opts.CancelKey); err != nil {
			log.Warn().Err(err).Msg("Ignoring invalid listener cancel key")
		} else {
			cancelKey = d.Key
		}
	}

	return newService(func(dispatch Dispatcher) Backend {
		return newBackend(kind, dispatch, cancelKey)
	})
}

func newBackend(kind Kind, dispatch Dispatcher, cancelKey string) Backend {
	var b Backend
	switch kind {
	case KindHook:
		b = newHookBackend(dispatch)
	case KindNative:
		if api := newNativeAPI(); api != nil {
			b = newNativeBackend(api, dispatch)
		}
	case KindListener:
		b = newListenerBackend(dispatch, cancelKey)
	}
	if b == nil {
		return disabledBackend{}
	}
	return b
}

func newService(factory func(Dispatcher) Backend) *Service {
	s := &Service{bindings: make(map[string]*binding)}
	s.backend = factory(s.dispatch)
	log.Info().Str("backend", s.backend.Name()).Str("kind", s.backend.Kind().String()).Msg("Hotkey service created")
	return s
}

// Kind returns the kind of the active backend.
func (s *Service) Kind() Kind { return s.backend.Kind() }

// BackendName returns the name of the active backend.
func (s *Service) BackendName() string { return s.backend.Name() }

// Register binds fn to hotkeyStr. The string is parsed before anything is
// touched, so a malformed hotkey leaves the service unchanged. Registering
// a string that is already bound replaces the old binding.
func (s *Service) Register(hotkeyStr string, fn Callback) error {
	if fn == nil {
		return fmt.Errorf("hotkey '%s': nil callback", hotkeyStr)
	}
	d, err := Parse(hotkeyStr)
	if err != nil {
		log.Warn().Err(err).Msg("Hotkey not registered")
		return err
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()

	s.mu.RLock()
	_, exists := s.bindings[hotkeyStr]
	s.mu.RUnlock()
	if exists {
		if err := s.unregisterLocked(hotkeyStr); err != nil {
			return err
		}
	}

	if err := s.backend.Register(hotkeyStr, d); err != nil {
		log.Error().Err(err).Str("hotkey", hotkeyStr).Str("backend", s.backend.Name()).Msg("Failed to register hotkey")
		return err
	}

	s.mu.Lock()
	s.bindings[hotkeyStr] = &binding{fn: fn}
	s.mu.Unlock()
	return nil
}

// Unregister removes the hotkey. Unknown strings yield ErrNotRegistered.
func (s *Service) Unregister(hotkeyStr string) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	s.mu.RLock()
	_, exists := s.bindings[hotkeyStr]
	s.mu.RUnlock()
	if !exists {
		return ErrNotRegistered
	}
	return s.unregisterLocked(hotkeyStr)
}

// unregisterLocked requires regMu.
func (s *Service) unregisterLocked(hotkeyStr string) error {
	if err := s.backend.Unregister(hotkeyStr); err != nil && !errors.Is(err, ErrNotRegistered) {
		return err
	}
	s.mu.Lock()
	delete(s.bindings, hotkeyStr)
	s.mu.Unlock()
	return nil
}

// Start begins listening. It is a no-op when already listening and when the
// service is disabled.
func (s *Service) Start() error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	if s.IsListening() {
		return nil
	}
	if s.backend.Kind() == KindDisabled {
		log.Warn().Msg("Hotkey service disabled, not listening")
		return nil
	}
	if err := s.backend.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.backend.Name(), err)
	}
	s.listening.Store(true)
	log.Info().Str("backend", s.backend.Name()).Msg("Hotkey listening started")
	return nil
}

// Stop ends listening. It may be called from any goroutine, and before Start.
func (s *Service) Stop() error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	if !s.listening.Load() {
		return nil
	}
	if err := s.backend.Stop(); err != nil {
		return fmt.Errorf("stop %s: %w", s.backend.Name(), err)
	}
	s.listening.Store(false)
	log.Info().Str("backend", s.backend.Name()).Msg("Hotkey listening stopped")
	return nil
}

// IsListening reports whether hotkeys are live.
func (s *Service) IsListening() bool {
	if !s.listening.Load() {
		return false
	}
	if r, ok := s.backend.(selfStopping); ok {
		return r.Running()
	}
	return true
}

// Registrations returns a diagnostics snapshot sorted by hotkey string.
func (s *Service) Registrations() []Registration {
	regs := s.backend.Registrations()

	s.mu.RLock()
	for i := range regs {
		if b, ok := s.bindings[regs[i].Hotkey]; ok {
			regs[i].Fired = b.fired.Load()
			if f := b.fault.Load(); f != nil && regs[i].Err == "" {
				regs[i].Err = *f
			}
		}
	}
	s.mu.RUnlock()

	sort.Slice(regs, func(i, j int) bool { return regs[i].Hotkey < regs[j].Hotkey })
	return regs
}

// dispatch runs on the backend's goroutine. A panicking callback is logged
// and recorded; the backend keeps running.
func (s *Service) dispatch(hotkeyStr string) {
	s.mu.RLock()
	b, ok := s.bindings[hotkeyStr]
	s.mu.RUnlock()
	if !ok {
		log.Warn().Str("hotkey", hotkeyStr).Msg("Hotkey fired without a bound callback")
		return
	}

	b.fired.Add(1)
	defer func() {
		if r := recover(); r != nil {
			fault := &CallbackFault{Hotkey: hotkeyStr, Value: r}
			msg := fault.Error()
			b.fault.Store(&msg)
			log.Error().Err(fault).Msg("Recovered from panic in hotkey callback")
		}
	}()
	log.Debug().Str("hotkey", hotkeyStr).Msg("Dispatching hotkey")
	b.fn()
}

// SetCapturedCoord stores (x, y) in the named slot.
func (s *Service) SetCapturedCoord(slot string, x, y int) error {
	sl, err := ParseSlot(slot)
	if err != nil {
		return err
	}
	s.coords.set(sl, x, y)
	return nil
}

// CapturedCoords returns a snapshot of both slots.
func (s *Service) CapturedCoords() CapturedCoords { return s.coords.get() }

// ClearCapturedCoords empties both slots.
func (s *Service) ClearCapturedCoords() {
	s.coords.clear()
	log.Debug().Msg("Cleared captured coordinates")
}
