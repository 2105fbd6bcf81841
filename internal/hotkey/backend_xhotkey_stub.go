//go:build !(windows || linux || darwin) || noxhotkey

package hotkey

const hookLibraryCompiled = false

func newHookBackend(dispatch Dispatcher) Backend { return nil }
