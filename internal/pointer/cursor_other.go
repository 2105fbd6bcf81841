//go:build !windows

package pointer

func cursorProvider() (Provider, bool) { return Provider{}, false }
