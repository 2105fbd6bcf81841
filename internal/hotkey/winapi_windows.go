//go:build windows

package hotkey

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procRegisterHotKey     = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey   = user32.NewProc("UnregisterHotKey")
	procPeekMessageW       = user32.NewProc("PeekMessageW")
	procTranslateMessage   = user32.NewProc("TranslateMessage")
	procDispatchMessageW   = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
	procCreateWindowExW    = user32.NewProc("CreateWindowExW")
	procDestroyWindow      = user32.NewProc("DestroyWindow")
)

const (
	pmRemove = 0x0001
	// HWND_MESSAGE, (HWND)-3: parent of message-only windows.
	hwndMessage = ^uintptr(2)
)

type win32Msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

type win32Error struct {
	call  string
	errno windows.Errno
}

func (e *win32Error) Error() string { return fmt.Sprintf("%s: %v", e.call, e.errno) }
func (e *win32Error) Code() uint32  { return uint32(e.errno) }
func (e *win32Error) Unwrap() error { return e.errno }

func lastError(call string, err error) error {
	var errno windows.Errno
	if errors.As(err, &errno) && errno != 0 {
		return &win32Error{call: call, errno: errno}
	}
	return fmt.Errorf("%s failed", call)
}

func nativeAPIAvailable() bool {
	return procRegisterHotKey.Find() == nil && procPeekMessageW.Find() == nil
}

func newNativeAPI() winAPI { return user32API{} }

type user32API struct{}

// CreateMessageWindow creates a hidden message-only window of the predefined
// STATIC class, so no window class has to be registered.
func (user32API) CreateMessageWindow() (uintptr, error) {
	className, err := windows.UTF16PtrFromString("STATIC")
	if err != nil {
		return 0, err
	}
	hwnd, _, callErr := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		0, 0,
		0, 0, 0, 0,
		hwndMessage,
		0, 0, 0,
	)
	if hwnd == 0 {
		return 0, lastError("CreateWindowExW", callErr)
	}
	return hwnd, nil
}

func (user32API) DestroyWindow(hwnd uintptr) {
	procDestroyWindow.Call(hwnd)
}

func (user32API) CurrentThreadID() uint32 {
	return windows.GetCurrentThreadId()
}

func (user32API) RegisterHotKey(hwnd uintptr, id int, mods, vk uint32) error {
	ret, _, err := procRegisterHotKey.Call(hwnd, uintptr(id), uintptr(mods), uintptr(vk))
	if ret == 0 {
		return lastError("RegisterHotKey", err)
	}
	return nil
}

func (user32API) UnregisterHotKey(hwnd uintptr, id int) error {
	ret, _, err := procUnregisterHotKey.Call(hwnd, uintptr(id))
	if ret == 0 {
		return lastError("UnregisterHotKey", err)
	}
	return nil
}

// PeekMessage reads the whole thread queue (hwnd 0), so WM_HOTKEY for the
// message window and thread messages such as WM_QUIT are both seen.
func (user32API) PeekMessage() (winMsg, bool) {
	m := &win32Msg{}
	ret, _, _ := procPeekMessageW.Call(uintptr(unsafe.Pointer(m)), 0, 0, 0, pmRemove)
	if ret == 0 {
		return winMsg{}, false
	}
	return winMsg{Message: m.message, WParam: m.wParam, raw: m}, true
}

func (user32API) TranslateDispatch(msg *winMsg) {
	m, ok := msg.raw.(*win32Msg)
	if !ok {
		return
	}
	procTranslateMessage.Call(uintptr(unsafe.Pointer(m)))
	procDispatchMessageW.Call(uintptr(unsafe.Pointer(m)))
}

func (user32API) PostQuit(threadID uint32) error {
	ret, _, err := procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
	if ret == 0 {
		return lastError("PostThreadMessageW", err)
	}
	return nil
}
