package hotkey

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	wmHotkey = 0x0312
	wmQuit   = 0x0012

	pollInterval = 10 * time.Millisecond
	loopTimeout  = 2 * time.Second
)

var errLoopNotRunning = errors.New("message loop not running")

// winMsg is the part of a Win32 MSG the loop looks at.
type winMsg struct {
	Message uint32
	WParam  uintptr
	raw     any
}

// winAPI is the slice of user32 the message loop needs. Every method except
// PostQuit must be called from the loop's locked OS thread.
type winAPI interface {
	CreateMessageWindow() (uintptr, error)
	DestroyWindow(hwnd uintptr)
	CurrentThreadID() uint32
	RegisterHotKey(hwnd uintptr, id int, mods, vk uint32) error
	UnregisterHotKey(hwnd uintptr, id int) error
	// PeekMessage removes and returns the next message of the calling
	// thread's queue without blocking.
	PeekMessage() (winMsg, bool)
	TranslateDispatch(msg *winMsg)
	PostQuit(threadID uint32) error
}

// OSError carries the Win32 error code of a failed call.
type OSError interface {
	error
	Code() uint32
}

type nativeEntry struct {
	hotkeyStr string
	mods, vk  uint32
	active    bool
	err       error
}

type nativeOp struct {
	register bool
	id       int
	reply    chan error
}

// nativeBackend registers OS-level hotkeys with RegisterHotKey and pumps the
// message queue of one dedicated OS thread. Hotkeys registered while stopped
// are pending until Start; the loop thread owns every OS registration and
// releases all of them before it exits.
type nativeBackend struct {
	api      winAPI
	dispatch Dispatcher

	// opMu serializes Register, Unregister, Start and Stop.
	opMu sync.Mutex

	// mu guards the tables, which the loop reads on every hotkey message.
	mu      sync.Mutex
	nextID  int
	ids     map[string]int
	entries map[int]*nativeEntry

	// run is the current message loop, nil when stopped. Guarded by opMu.
	run *nativeRun
	// current mirrors run for Running, which callbacks may call while Stop
	// holds opMu.
	current atomic.Pointer[nativeRun]
}

// nativeRun is the state of one message loop goroutine.
type nativeRun struct {
	listening atomic.Bool
	ops       chan nativeOp
	done      chan struct{}
	threadID  uint32
}

func newNativeBackend(api winAPI, dispatch Dispatcher) *nativeBackend {
	return &nativeBackend{
		api:      api,
		dispatch: dispatch,
		nextID:   1,
		ids:      make(map[string]int),
		entries:  make(map[int]*nativeEntry),
	}
}

func (b *nativeBackend) Name() string { return "Win32 RegisterHotKey" }
func (b *nativeBackend) Kind() Kind   { return KindNative }

func (b *nativeBackend) Register(hotkeyStr string, d Descriptor) error {
	mods, vk, ok := d.VirtualKey()
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrUnsupportedKey, d.Key)
	}

	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.mu.Lock()
	oldID, exists := b.ids[hotkeyStr]
	b.mu.Unlock()
	if exists {
		log.Debug().Str("hotkey", hotkeyStr).Int("id", oldID).Msg("Win32 backend: superseding existing registration")
		if err := b.unregisterLocked(hotkeyStr, oldID); err != nil {
			return err
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	entry := &nativeEntry{hotkeyStr: hotkeyStr, mods: mods | win32ModNoRepeat, vk: vk}
	b.entries[id] = entry
	b.mu.Unlock()

	if b.run != nil {
		if err := b.send(nativeOp{register: true, id: id}); err != nil && !errors.Is(err, errLoopNotRunning) {
			b.mu.Lock()
			delete(b.entries, id)
			b.mu.Unlock()
			return b.registrationError(hotkeyStr, err)
		}
	}

	b.mu.Lock()
	b.ids[hotkeyStr] = id
	b.mu.Unlock()

	log.Info().Str("hotkey", hotkeyStr).Int("id", id).
		Str("mods", fmt.Sprintf("0x%x", mods)).Str("vk", fmt.Sprintf("0x%x", vk)).
		Bool("pending", b.run == nil).
		Msg("Win32 backend: registered hotkey")
	return nil
}

func (b *nativeBackend) Unregister(hotkeyStr string) error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.mu.Lock()
	id, exists := b.ids[hotkeyStr]
	b.mu.Unlock()
	if !exists {
		return ErrNotRegistered
	}
	return b.unregisterLocked(hotkeyStr, id)
}

// unregisterLocked requires opMu.
func (b *nativeBackend) unregisterLocked(hotkeyStr string, id int) error {
	if b.run != nil {
		if err := b.send(nativeOp{register: false, id: id}); err != nil && !errors.Is(err, errLoopNotRunning) {
			log.Warn().Err(err).Str("hotkey", hotkeyStr).Int("id", id).Msg("Win32 backend: UnregisterHotKey failed")
		}
	}

	b.mu.Lock()
	delete(b.entries, id)
	delete(b.ids, hotkeyStr)
	b.mu.Unlock()

	log.Info().Str("hotkey", hotkeyStr).Int("id", id).Msg("Win32 backend: unregistered hotkey")
	return nil
}

// send hands an operation to the loop thread and waits for its result.
// Requires opMu and a running loop.
func (b *nativeBackend) send(op nativeOp) error {
	op.reply = make(chan error, 1)
	timeout := time.NewTimer(loopTimeout)
	defer timeout.Stop()

	select {
	case b.run.ops <- op:
	case <-b.run.done:
		return errLoopNotRunning
	case <-timeout.C:
		return fmt.Errorf("message loop did not accept request within %s", loopTimeout)
	}

	select {
	case err := <-op.reply:
		return err
	case <-timeout.C:
		return fmt.Errorf("message loop did not answer within %s", loopTimeout)
	}
}

func (b *nativeBackend) registrationError(hotkeyStr string, err error) error {
	regErr := &RegistrationError{Hotkey: hotkeyStr, Backend: b.Name(), Err: err}
	var osErr OSError
	if errors.As(err, &osErr) {
		regErr.Code = osErr.Code()
	}
	return regErr
}

// Start spawns the message loop and waits until pending hotkeys have been
// handed to the OS.
func (b *nativeBackend) Start() error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	if b.run != nil {
		select {
		case <-b.run.done:
			// The loop quit on its own (stray WM_QUIT); start a new one.
		default:
			return nil
		}
	}

	run := &nativeRun{
		ops:  make(chan nativeOp),
		done: make(chan struct{}),
	}
	run.listening.Store(true)
	b.run = run
	b.current.Store(run)

	ready := make(chan struct{})
	go b.loop(run, ready)
	<-ready
	log.Info().Uint32("thread", run.threadID).Msg("Win32 backend: message loop started")
	return nil
}

// Stop posts WM_QUIT to the loop thread, then clears the running flag. The
// loop observes either within one poll interval and drains its queue, the
// WM_QUIT included, before it exits; Stop waits for that.
func (b *nativeBackend) Stop() error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	run := b.run
	if run == nil {
		return nil
	}
	b.run = nil
	b.current.CompareAndSwap(run, nil)

	if err := b.api.PostQuit(run.threadID); err != nil {
		log.Debug().Err(err).Msg("Win32 backend: PostThreadMessage(WM_QUIT) failed")
	}
	run.listening.Store(false)

	select {
	case <-run.done:
		log.Info().Msg("Win32 backend: message loop exited cleanly")
	case <-time.After(loopTimeout):
		log.Warn().Msg("Win32 backend: message loop did not exit within timeout")
	}
	return nil
}

func (b *nativeBackend) loop(run *nativeRun, ready chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(run.done)

	run.threadID = b.api.CurrentThreadID()
	hwnd, err := b.api.CreateMessageWindow()
	if err != nil {
		log.Warn().Err(err).Msg("Win32 backend: message window creation failed, using thread queue")
		hwnd = 0
	}

	b.registerPending(hwnd)
	close(ready)

	defer func() {
		run.listening.Store(false)
		b.releaseAll(hwnd)
		if n := b.drain(); n > 0 {
			log.Debug().Int("messages", n).Msg("Win32 backend: discarded queued messages")
		}
		if hwnd != 0 {
			b.api.DestroyWindow(hwnd)
		}
		log.Info().Msg("Win32 backend: message loop ended")
	}()

	for run.listening.Load() {
		select {
		case op := <-run.ops:
			op.reply <- b.apply(hwnd, op)
			continue
		default:
		}

		msg, ok := b.api.PeekMessage()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		switch msg.Message {
		case wmHotkey:
			b.fire(int(msg.WParam))
		case wmQuit:
			return
		default:
			b.api.TranslateDispatch(&msg)
		}
	}
}

// drain empties the thread queue so no message, a late WM_QUIT in particular,
// survives into the next loop on this thread.
func (b *nativeBackend) drain() int {
	n := 0
	for {
		if _, ok := b.api.PeekMessage(); !ok {
			return n
		}
		n++
	}
}

// Running reports whether a message loop is up. It turns false when the loop
// ends on its own, e.g. after a WM_QUIT from another source.
func (b *nativeBackend) Running() bool {
	run := b.current.Load()
	if run == nil {
		return false
	}
	select {
	case <-run.done:
		return false
	default:
		return true
	}
}

// registerPending hands every inactive entry to the OS. Failures are kept on
// the entry for diagnostics.
func (b *nativeBackend) registerPending(hwnd uintptr) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, entry := range b.entries {
		if entry.active {
			continue
		}
		if err := b.api.RegisterHotKey(hwnd, id, entry.mods, entry.vk); err != nil {
			entry.err = b.registrationError(entry.hotkeyStr, err)
			log.Error().Err(err).Str("hotkey", entry.hotkeyStr).Int("id", id).Msg("Win32 backend: RegisterHotKey failed")
			continue
		}
		entry.active = true
		entry.err = nil
	}
}

func (b *nativeBackend) apply(hwnd uintptr, op nativeOp) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[op.id]
	if !ok {
		return ErrNotRegistered
	}
	if op.register {
		if err := b.api.RegisterHotKey(hwnd, op.id, entry.mods, entry.vk); err != nil {
			return err
		}
		entry.active = true
		return nil
	}
	if !entry.active {
		return nil
	}
	entry.active = false
	return b.api.UnregisterHotKey(hwnd, op.id)
}

func (b *nativeBackend) releaseAll(hwnd uintptr) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, entry := range b.entries {
		if !entry.active {
			continue
		}
		if err := b.api.UnregisterHotKey(hwnd, id); err != nil {
			log.Warn().Err(err).Str("hotkey", entry.hotkeyStr).Int("id", id).Msg("Win32 backend: UnregisterHotKey failed")
		}
		entry.active = false
	}
}

func (b *nativeBackend) fire(id int) {
	b.mu.Lock()
	entry, ok := b.entries[id]
	b.mu.Unlock()
	if !ok {
		log.Warn().Int("id", id).Msg("Win32 backend: WM_HOTKEY for unknown id")
		return
	}
	log.Debug().Int("id", id).Str("hotkey", entry.hotkeyStr).Msg("Win32 backend: WM_HOTKEY received")
	b.dispatch(entry.hotkeyStr)
}

func (b *nativeBackend) Registrations() []Registration {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := make([]Registration, 0, len(b.ids))
	for hotkeyStr, id := range b.ids {
		entry := b.entries[id]
		r := Registration{Hotkey: hotkeyStr, Handle: "id=" + strconv.Itoa(id), Active: entry.active}
		if entry.err != nil {
			r.Err = entry.err.Error()
		}
		regs = append(regs, r)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Hotkey < regs[j].Hotkey })
	return regs
}
