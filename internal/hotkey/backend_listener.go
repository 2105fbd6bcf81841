package hotkey

import (
	"strings"
	"sync"
	"time"
)

// inputHook is the part of an input-event listener library the listener
// backend drives. Combination matching is done by the library.
type inputHook interface {
	// Start begins the event stream. The returned channel is closed when
	// event processing has ended.
	Start() <-chan struct{}
	// OnKeyDown calls fn whenever all tokens are held.
	OnKeyDown(tokens []string, fn func())
	// OnKeyUp calls fn when the combination is released.
	OnKeyUp(tokens []string, fn func())
	// End stops the event stream and drops every handler.
	End()
}

type listenerEntry struct {
	tokens []string
	// gen identifies the handler installed for this entry. Handlers of older
	// generations stay inside the library until End and must be ignored.
	gen    uint64
	active bool
}

// listenerBackend turns a raw key event stream into hotkeys. It is the
// fallback when neither the hook library nor the native API can be used.
type listenerBackend struct {
	hook      inputHook
	dispatch  Dispatcher
	cancelKey string

	opMu sync.Mutex

	mu      sync.Mutex
	gen     uint64
	entries map[string]*listenerEntry
	// done is non-nil while the event stream runs. Written under opMu and mu.
	done <-chan struct{}
}

func newInputListener(hook inputHook, dispatch Dispatcher, cancelKey string) *listenerBackend {
	return &listenerBackend{
		hook:      hook,
		dispatch:  dispatch,
		cancelKey: cancelKey,
		entries:   make(map[string]*listenerEntry),
	}
}

func (b *listenerBackend) Name() string { return "input listener (gohook)" }
func (b *listenerBackend) Kind() Kind   { return KindListener }

func (b *listenerBackend) Register(hotkeyStr string, d Descriptor) error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.mu.Lock()
	if _, exists := b.entries[hotkeyStr]; exists {
		log.Debug().Str("hotkey", hotkeyStr).Msg("Listener backend: superseding existing combination")
	}
	b.gen++
	entry := &listenerEntry{tokens: d.Tokens(), gen: b.gen}
	b.entries[hotkeyStr] = entry
	listening := b.done != nil
	b.mu.Unlock()

	if listening {
		b.install(hotkeyStr, entry)
	}
	log.Info().Str("hotkey", hotkeyStr).Strs("tokens", entry.tokens).Bool("pending", !listening).Msg("Listener backend: registered combination")
	return nil
}

func (b *listenerBackend) Unregister(hotkeyStr string) error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.entries[hotkeyStr]; !exists {
		return ErrNotRegistered
	}
	delete(b.entries, hotkeyStr)
	log.Info().Str("hotkey", hotkeyStr).Msg("Listener backend: unregistered combination")
	return nil
}

// install requires opMu.
func (b *listenerBackend) install(hotkeyStr string, entry *listenerEntry) {
	gen := entry.gen
	b.hook.OnKeyDown(entry.tokens, func() { b.trigger(hotkeyStr, gen) })
	b.mu.Lock()
	entry.active = true
	b.mu.Unlock()
}

func (b *listenerBackend) trigger(hotkeyStr string, gen uint64) {
	b.mu.Lock()
	entry, ok := b.entries[hotkeyStr]
	live := ok && entry.gen == gen && b.done != nil
	b.mu.Unlock()
	if !live {
		return
	}
	log.Debug().Str("hotkey", hotkeyStr).Msg("Listener backend: combination matched")
	b.dispatch(hotkeyStr)
}

func (b *listenerBackend) Start() error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.mu.Lock()
	if b.done != nil {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	done := b.hook.Start()

	b.mu.Lock()
	b.done = done
	entries := make(map[string]*listenerEntry, len(b.entries))
	for hotkeyStr, entry := range b.entries {
		entries[hotkeyStr] = entry
	}
	b.mu.Unlock()

	for hotkeyStr, entry := range entries {
		b.install(hotkeyStr, entry)
	}
	if b.cancelKey != "" {
		b.hook.OnKeyUp([]string{b.cancelKey}, func() {
			log.Info().Str("key", b.cancelKey).Msg("Listener backend: cancel key released, stopping")
			// Stop waits for event processing, which is running this handler.
			go b.Stop()
		})
	}
	log.Info().Int("count", len(entries)).Msg("Listener backend: event stream started")
	return nil
}

// Running reports whether the event stream is up. The cancel key ends it
// without going through the service.
func (b *listenerBackend) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done != nil
}

func (b *listenerBackend) Stop() error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.mu.Lock()
	done := b.done
	b.done = nil
	for _, entry := range b.entries {
		entry.active = false
	}
	b.mu.Unlock()
	if done == nil {
		return nil
	}

	b.hook.End()
	select {
	case <-done:
		log.Info().Msg("Listener backend: event stream ended")
	case <-time.After(loopTimeout):
		log.Warn().Msg("Listener backend: timeout waiting for event stream to end")
	}
	return nil
}

func (b *listenerBackend) Registrations() []Registration {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := make([]Registration, 0, len(b.entries))
	for hotkeyStr, entry := range b.entries {
		regs = append(regs, Registration{
			Hotkey: hotkeyStr,
			Handle: strings.Join(entry.tokens, "+"),
			Active: entry.active,
		})
	}
	return regs
}
