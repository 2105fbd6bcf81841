package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeOSError uint32

func (e fakeOSError) Error() string { return fmt.Sprintf("os error %d", uint32(e)) }
func (e fakeOSError) Code() uint32  { return uint32(e) }

const errHotkeyAlreadyRegistered = fakeOSError(1409)

// fakeWinAPI emulates one thread message queue and the OS hotkey table.
type fakeWinAPI struct {
	mu         sync.Mutex
	queue      []winMsg
	active     map[int]uint32 // id -> vk
	conflicts  map[uint32]bool
	windowFail bool
	destroyed  int
	registered []int
}

func newFakeWinAPI() *fakeWinAPI {
	return &fakeWinAPI{active: make(map[int]uint32), conflicts: make(map[uint32]bool)}
}

func (f *fakeWinAPI) CreateMessageWindow() (uintptr, error) {
	if f.windowFail {
		return 0, errors.New("no window")
	}
	return 0xbeef, nil
}

func (f *fakeWinAPI) DestroyWindow(hwnd uintptr) {
	f.mu.Lock()
	f.destroyed++
	f.mu.Unlock()
}

func (f *fakeWinAPI) CurrentThreadID() uint32 { return 42 }

func (f *fakeWinAPI) RegisterHotKey(hwnd uintptr, id int, mods, vk uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflicts[vk] {
		return errHotkeyAlreadyRegistered
	}
	if _, dup := f.active[id]; dup {
		return fakeOSError(1409)
	}
	if mods&win32ModNoRepeat == 0 {
		return fmt.Errorf("MOD_NOREPEAT missing for id %d", id)
	}
	f.active[id] = vk
	f.registered = append(f.registered, id)
	return nil
}

func (f *fakeWinAPI) UnregisterHotKey(hwnd uintptr, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.active[id]; !ok {
		return fakeOSError(1419)
	}
	delete(f.active, id)
	return nil
}

func (f *fakeWinAPI) PeekMessage() (winMsg, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return winMsg{}, false
	}
	m := f.queue[0]
	f.queue = f.queue[1:]
	return m, true
}

func (f *fakeWinAPI) TranslateDispatch(msg *winMsg) {}

func (f *fakeWinAPI) PostQuit(threadID uint32) error {
	f.post(winMsg{Message: wmQuit})
	return nil
}

func (f *fakeWinAPI) post(m winMsg) {
	f.mu.Lock()
	f.queue = append(f.queue, m)
	f.mu.Unlock()
}

func (f *fakeWinAPI) pressID(id int) {
	f.post(winMsg{Message: wmHotkey, WParam: uintptr(id)})
}

func (f *fakeWinAPI) activeIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.active))
	for id := range f.active {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 2s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func handleOf(t *testing.T, regs []Registration, hotkeyStr string) string {
	t.Helper()
	for _, r := range regs {
		if r.Hotkey == hotkeyStr {
			return r.Handle
		}
	}
	t.Fatalf("%q not in registrations %+v", hotkeyStr, regs)
	return ""
}

func TestNativeIDsNeverReused(t *testing.T) {
	api := newFakeWinAPI()
	b := newNativeBackend(api, func(string) {})

	for _, s := range []string{"ctrl+alt+1", "ctrl+alt+2"} {
		if err := b.Register(s, MustParse(s)); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Unregister("ctrl+alt+1"); err != nil {
		t.Fatal(err)
	}
	if err := b.Register("ctrl+alt+1", MustParse("ctrl+alt+1")); err != nil {
		t.Fatal(err)
	}

	regs := b.Registrations()
	if got := handleOf(t, regs, "ctrl+alt+2"); got != "id=2" {
		t.Errorf("ctrl+alt+2 handle = %s, want id=2", got)
	}
	if got := handleOf(t, regs, "ctrl+alt+1"); got != "id=3" {
		t.Errorf("re-registered handle = %s, want id=3", got)
	}
}

func TestNativePendingUntilStart(t *testing.T) {
	api := newFakeWinAPI()
	b := newNativeBackend(api, func(string) {})

	if err := b.Register("ctrl+alt+s", MustParse("ctrl+alt+s")); err != nil {
		t.Fatal(err)
	}
	if ids := api.activeIDs(); len(ids) != 0 {
		t.Fatalf("registered with OS before Start: %v", ids)
	}
	if regs := b.Registrations(); len(regs) != 1 || regs[0].Active {
		t.Fatalf("want one pending registration, got %+v", regs)
	}

	if err := b.Start(); err != nil {
		t.Fatal(err)
	}
	defer b.Stop()

	if ids := api.activeIDs(); len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("active ids = %v, want [1]", ids)
	}
	if regs := b.Registrations(); !regs[0].Active {
		t.Errorf("registration not active after Start: %+v", regs[0])
	}
}

func TestNativeSupersedeLeavesNoOrphans(t *testing.T) {
	api := newFakeWinAPI()
	b := newNativeBackend(api, func(string) {})
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}

	d := MustParse("ctrl+alt+1")
	for i := 0; i < 3; i++ {
		if err := b.Register("ctrl+alt+1", d); err != nil {
			t.Fatalf("register #%d: %v", i+1, err)
		}
		if ids := api.activeIDs(); len(ids) != 1 {
			t.Fatalf("after register #%d active ids = %v, want exactly one", i+1, ids)
		}
	}
	if ids := api.activeIDs(); ids[0] != 3 {
		t.Errorf("active id = %d, want 3", ids[0])
	}

	if err := b.Stop(); err != nil {
		t.Fatal(err)
	}
	if ids := api.activeIDs(); len(ids) != 0 {
		t.Errorf("orphaned OS registrations after Stop: %v", ids)
	}
	if api.destroyed != 1 {
		t.Errorf("message window destroyed %d times, want 1", api.destroyed)
	}
}

func TestNativeConflictReportsOSCode(t *testing.T) {
	api := newFakeWinAPI()
	api.conflicts[0x53] = true
	b := newNativeBackend(api, func(string) {})
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}
	defer b.Stop()

	err := b.Register("ctrl+alt+s", MustParse("ctrl+alt+s"))
	var regErr *RegistrationError
	if !errors.As(err, &regErr) {
		t.Fatalf("want *RegistrationError, got %v", err)
	}
	if regErr.Code != 1409 {
		t.Errorf("code = %d, want 1409", regErr.Code)
	}
	if regs := b.Registrations(); len(regs) != 0 {
		t.Errorf("failed registration left state behind: %+v", regs)
	}
}

func TestNativeConflictAtStartIsRecorded(t *testing.T) {
	api := newFakeWinAPI()
	api.conflicts[0x53] = true
	b := newNativeBackend(api, func(string) {})

	if err := b.Register("ctrl+alt+s", MustParse("ctrl+alt+s")); err != nil {
		t.Fatal(err)
	}
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}
	defer b.Stop()

	regs := b.Registrations()
	if len(regs) != 1 || regs[0].Active || regs[0].Err == "" {
		t.Errorf("want inactive registration with error, got %+v", regs)
	}
}

func TestNativeUnsupportedKey(t *testing.T) {
	b := newNativeBackend(newFakeWinAPI(), func(string) {})
	if err := b.Register("ctrl+mediaplay", MustParse("ctrl+mediaplay")); !errors.Is(err, ErrUnsupportedKey) {
		t.Errorf("got %v, want ErrUnsupportedKey", err)
	}
}

func TestNativeUnregisterUnknown(t *testing.T) {
	b := newNativeBackend(newFakeWinAPI(), func(string) {})
	if err := b.Unregister("ctrl+x"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("got %v, want ErrNotRegistered", err)
	}
}

func TestNativeStopBeforeStart(t *testing.T) {
	b := newNativeBackend(newFakeWinAPI(), func(string) {})
	if err := b.Stop(); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
}

func TestNativeStopIsBounded(t *testing.T) {
	api := newFakeWinAPI()
	b := newNativeBackend(api, func(string) {})
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := b.Stop(); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > loopTimeout {
		t.Errorf("Stop took %v", elapsed)
	}
}

func TestNativeFallsBackToThreadQueue(t *testing.T) {
	api := newFakeWinAPI()
	api.windowFail = true
	fired := make(chan string, 1)
	b := newNativeBackend(api, func(s string) { fired <- s })
	if err := b.Register("f9", MustParse("f9")); err != nil {
		t.Fatal(err)
	}
	if err := b.Start(); err != nil {
		t.Fatal(err)
	}
	defer b.Stop()

	api.pressID(1)
	select {
	case got := <-fired:
		if got != "f9" {
			t.Errorf("fired %q, want f9", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hotkey did not fire")
	}
	if api.destroyed != 0 {
		t.Error("DestroyWindow called without a window")
	}
}

func TestNativeRestartReregisters(t *testing.T) {
	api := newFakeWinAPI()
	b := newNativeBackend(api, func(string) {})
	if err := b.Register("ctrl+alt+2", MustParse("ctrl+alt+2")); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := b.Start(); err != nil {
			t.Fatal(err)
		}
		if ids := api.activeIDs(); len(ids) != 1 {
			t.Fatalf("cycle %d: active ids = %v", i, ids)
		}
		if err := b.Stop(); err != nil {
			t.Fatal(err)
		}
		if ids := api.activeIDs(); len(ids) != 0 {
			t.Fatalf("cycle %d: orphaned ids %v", i, ids)
		}
	}
}
