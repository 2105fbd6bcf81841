//go:build !cgo

package pointer

func robotgoProvider() (Provider, bool) { return Provider{}, false }
