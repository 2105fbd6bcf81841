package pointer

import (
	"errors"
	"testing"
)

func fixed(name string, x, y int) Provider {
	return Provider{Name: name, Position: func() (int, int, error) { return x, y, nil }}
}

func failing(name string) Provider {
	return Provider{Name: name, Position: func() (int, int, error) { return 0, 0, errors.New("unavailable") }}
}

func TestLocatorFirstSuccessWins(t *testing.T) {
	l := NewLocator(failing("a"), fixed("b", 10, 20), fixed("c", 99, 99))
	x, y := l.Position()
	if x != 10 || y != 20 {
		t.Errorf("got (%d, %d), want (10, 20)", x, y)
	}
}

func TestLocatorRecoversPanickingProvider(t *testing.T) {
	boom := Provider{Name: "boom", Position: func() (int, int, error) { panic("no display") }}
	l := NewLocator(boom, fixed("ok", 3, 4))
	x, y, err := l.Locate()
	if err != nil || x != 3 || y != 4 {
		t.Errorf("got (%d, %d, %v)", x, y, err)
	}
}

func TestLocatorFallsBackToOrigin(t *testing.T) {
	for _, l := range []*Locator{NewLocator(), NewLocator(failing("a"), failing("b"))} {
		if _, _, err := l.Locate(); err == nil {
			t.Error("Locate should fail")
		}
		x, y := l.Position()
		if x != 0 || y != 0 {
			t.Errorf("got (%d, %d), want (0, 0)", x, y)
		}
	}
}
