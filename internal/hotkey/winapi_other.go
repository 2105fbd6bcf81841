//go:build !windows

package hotkey

func nativeAPIAvailable() bool { return false }

func newNativeAPI() winAPI { return nil }
