//go:build (windows || linux || darwin) && !noxhotkey

package hotkey

import (
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

const hookLibraryCompiled = true

// xhotkeyBackend wraps the golang.design/x/hotkey library. The library runs
// its own event dispatch; each installed hook gets one converter goroutine
// that forwards Keydown events to the dispatcher.
type xhotkeyBackend struct {
	mu        sync.Mutex
	dispatch  Dispatcher
	entries   map[string]*xhotkeyEntry
	listening bool
}

type xhotkeyEntry struct {
	hotkeyStr string
	desc      Descriptor
	key       hotkey.Key
	hooks     []*hotkey.Hotkey
	stopCh    chan struct{}
	err       error
}

func newHookBackend(dispatch Dispatcher) Backend {
	return &xhotkeyBackend{
		dispatch: dispatch,
		entries:  make(map[string]*xhotkeyEntry),
	}
}

func (b *xhotkeyBackend) Name() string { return "golang.design/x/hotkey" }
func (b *xhotkeyBackend) Kind() Kind   { return KindHook }

// Register installs the hook immediately, whether or not the backend is
// listening. An existing hook for the same string is replaced.
func (b *xhotkeyBackend) Register(hotkeyStr string, d Descriptor) error {
	key, ok := KeyMap[d.Key]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrUnsupportedKey, d.Key)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, exists := b.entries[hotkeyStr]; exists {
		log.Debug().Str("hotkey", hotkeyStr).Msg("Hook backend: replacing existing hook")
		existing.uninstall()
		delete(b.entries, hotkeyStr)
	}

	entry := &xhotkeyEntry{hotkeyStr: hotkeyStr, desc: d, key: key}
	if err := entry.install(b.dispatch); err != nil {
		return &RegistrationError{Hotkey: hotkeyStr, Backend: b.Name(), Err: err}
	}
	b.entries[hotkeyStr] = entry
	log.Info().Str("hotkey", hotkeyStr).Str("normalized", d.String()).Msg("Hook backend: registered hotkey")
	return nil
}

func (b *xhotkeyBackend) Unregister(hotkeyStr string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, exists := b.entries[hotkeyStr]
	if !exists {
		return ErrNotRegistered
	}
	entry.uninstall()
	delete(b.entries, hotkeyStr)
	log.Info().Str("hotkey", hotkeyStr).Msg("Hook backend: unregistered hotkey")
	return nil
}

// Start re-installs hooks removed by a previous Stop.
func (b *xhotkeyBackend) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listening = true
	for hotkeyStr, entry := range b.entries {
		if entry.installed() {
			continue
		}
		if err := entry.install(b.dispatch); err != nil {
			entry.err = err
			log.Warn().Err(err).Str("hotkey", hotkeyStr).Msg("Hook backend: failed to re-install hook")
		}
	}
	return nil
}

// Stop removes every installed hook. Entries are kept and re-installed by
// the next Start.
func (b *xhotkeyBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listening = false
	log.Info().Int("count", len(b.entries)).Msg("Hook backend: removing all hooks")
	for _, entry := range b.entries {
		entry.uninstall()
	}
	return nil
}

func (b *xhotkeyBackend) Registrations() []Registration {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := make([]Registration, 0, len(b.entries))
	for hotkeyStr, entry := range b.entries {
		r := Registration{Hotkey: hotkeyStr, Handle: entry.desc.String(), Active: entry.installed()}
		if entry.err != nil {
			r.Err = entry.err.Error()
		}
		regs = append(regs, r)
	}
	return regs
}

func (e *xhotkeyEntry) installed() bool { return e.stopCh != nil }

// install registers the hook and every lock-modifier variant the platform
// needs. Only a failure of the base combination is an error.
func (e *xhotkeyEntry) install(dispatch Dispatcher) error {
	variants := xhotkeyVariants(e.desc.Modifiers)
	var hooks []*hotkey.Hotkey
	for i, mods := range variants {
		hk := hotkey.New(mods, e.key)
		if err := hk.Register(); err != nil {
			if i == 0 {
				for _, h := range hooks {
					h.Unregister()
				}
				return err
			}
			log.Debug().Err(err).Str("hotkey", e.hotkeyStr).Int("variant", i).Msg("Hook backend: lock-modifier variant not registered")
			continue
		}
		hooks = append(hooks, hk)
	}

	e.hooks = hooks
	e.stopCh = make(chan struct{})
	e.err = nil
	for _, hk := range hooks {
		go e.convert(hk, e.stopCh, dispatch)
	}
	return nil
}

// convert forwards Keydown events of one hook until stopCh is closed.
func (e *xhotkeyEntry) convert(hk *hotkey.Hotkey, stopCh chan struct{}, dispatch Dispatcher) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("hotkey", e.hotkeyStr).Msg("Recovered from panic in hook converter")
		}
	}()

	for {
		select {
		case <-stopCh:
			return
		case _, ok := <-hk.Keydown():
			if !ok {
				return
			}
			dispatch(e.hotkeyStr)
		}
	}
}

func (e *xhotkeyEntry) uninstall() {
	if e.stopCh == nil {
		return
	}
	close(e.stopCh)
	e.stopCh = nil
	for _, hk := range e.hooks {
		if err := hk.Unregister(); err != nil {
			log.Warn().Err(err).Str("hotkey", e.hotkeyStr).Msg("Hook backend: error unregistering hook")
		}
	}
	e.hooks = nil
}
