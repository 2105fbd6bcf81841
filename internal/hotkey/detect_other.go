//go:build !linux

package hotkey

func hasPortalSupport() bool { return false }
