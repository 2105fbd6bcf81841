//go:build windows

package pointer

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var procGetCursorPos = windows.NewLazySystemDLL("user32.dll").NewProc("GetCursorPos")

type point struct {
	x, y int32
}

func cursorProvider() (Provider, bool) {
	if procGetCursorPos.Find() != nil {
		return Provider{}, false
	}
	return Provider{
		Name: "GetCursorPos",
		Position: func() (int, int, error) {
			var pt point
			ret, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
			if ret == 0 {
				return 0, 0, fmt.Errorf("GetCursorPos: %w", err)
			}
			return int(pt.x), int(pt.y), nil
		},
	}, true
}
