//go:build !((windows || linux || darwin) && cgo) || nogohook

package hotkey

const listenerCompiled = false

func newListenerBackend(dispatch Dispatcher, cancelKey string) Backend { return nil }
