//go:build (windows || linux || darwin) && cgo && !nogohook

package hotkey

import (
	gohook "github.com/robotn/gohook"
)

const listenerCompiled = true

func newListenerBackend(dispatch Dispatcher, cancelKey string) Backend {
	return newInputListener(gohookInput{}, dispatch, cancelKey)
}

// gohookInput binds inputHook to the process-wide gohook event loop.
type gohookInput struct{}

func (gohookInput) Start() <-chan struct{} {
	evChan := gohook.Start()
	done := make(chan struct{})
	go func() {
		<-gohook.Process(evChan)
		close(done)
	}()
	return done
}

func (gohookInput) OnKeyDown(tokens []string, fn func()) {
	gohook.Register(gohook.KeyDown, tokens, func(gohook.Event) { fn() })
}

func (gohookInput) OnKeyUp(tokens []string, fn func()) {
	gohook.Register(gohook.KeyUp, tokens, func(gohook.Event) { fn() })
}

func (gohookInput) End() {
	gohook.End()
}
