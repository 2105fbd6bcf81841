// Package pointer reads the mouse position, trying several providers.
package pointer

import (
	"errors"
	"fmt"

	"github.com/TanaroSch/multi-capture/internal/logging"
)

var log = logging.For("pointer")

var errNoProvider = errors.New("no pointer provider succeeded")

// Provider reads the pointer position from one source.
type Provider struct {
	Name     string
	Position func() (x, y int, err error)
}

// Locator tries its providers in order.
type Locator struct {
	providers []Provider
}

// New returns a Locator over the platform providers: robotgo first, then the
// OS cursor API where there is one.
func New() *Locator {
	return NewLocator(platformProviders()...)
}

func NewLocator(providers ...Provider) *Locator {
	return &Locator{providers: providers}
}

// Locate returns the position from the first provider that succeeds.
func (l *Locator) Locate() (x, y int, err error) {
	for _, p := range l.providers {
		px, py, perr := safeCall(p)
		if perr == nil {
			log.Debug().Str("provider", p.Name).Int("x", px).Int("y", py).Msg("Pointer position")
			return px, py, nil
		}
		log.Warn().Err(perr).Str("provider", p.Name).Msg("Pointer provider failed")
	}
	return 0, 0, errNoProvider
}

// Position always returns a coordinate: (0, 0) when every provider fails.
func (l *Locator) Position() (x, y int) {
	x, y, err := l.Locate()
	if err != nil {
		log.Error().Err(err).Msg("Falling back to (0, 0)")
		return 0, 0
	}
	return x, y
}

func safeCall(p Provider) (x, y int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", p.Name, r)
		}
	}()
	return p.Position()
}

func platformProviders() []Provider {
	var providers []Provider
	if p, ok := robotgoProvider(); ok {
		providers = append(providers, p)
	}
	if p, ok := cursorProvider(); ok {
		providers = append(providers, p)
	}
	return providers
}
