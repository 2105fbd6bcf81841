package hotkey

import (
	"errors"
	"fmt"
	"image"
	"sync"
)

// Slot names one of the two capture buffers.
type Slot int

const (
	SlotTopLeft Slot = iota
	SlotBottomRight
)

var ErrUnknownSlot = errors.New("unknown capture slot")

func (s Slot) String() string {
	switch s {
	case SlotTopLeft:
		return "top_left"
	case SlotBottomRight:
		return "bottom_right"
	}
	return fmt.Sprintf("Slot(%d)", int(s))
}

func ParseSlot(s string) (Slot, error) {
	switch s {
	case "top_left":
		return SlotTopLeft, nil
	case "bottom_right":
		return SlotBottomRight, nil
	}
	return 0, fmt.Errorf("%w: '%s'", ErrUnknownSlot, s)
}

// Point is a screen coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string { return fmt.Sprintf("(%d, %d)", p.X, p.Y) }

// CapturedCoords is a snapshot of both slots. A nil slot is empty.
type CapturedCoords struct {
	TopLeft     *Point `json:"top_left"`
	BottomRight *Point `json:"bottom_right"`
}

// Complete reports whether both slots are set.
func (c CapturedCoords) Complete() bool {
	return c.TopLeft != nil && c.BottomRight != nil
}

// Rect returns the rectangle spanned by both slots, normalized so Min is the
// upper-left corner whichever slot holds it.
func (c CapturedCoords) Rect() (image.Rectangle, bool) {
	if !c.Complete() {
		return image.Rectangle{}, false
	}
	return image.Rect(c.TopLeft.X, c.TopLeft.Y, c.BottomRight.X, c.BottomRight.Y), true
}

// coordStore holds the captured coordinates. Writes come from backend
// threads, reads from the UI. Stored points are never mutated, so snapshots
// can share them.
type coordStore struct {
	mu     sync.RWMutex
	coords CapturedCoords
}

func (s *coordStore) set(slot Slot, x, y int) {
	p := &Point{X: x, Y: y}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch slot {
	case SlotTopLeft:
		s.coords.TopLeft = p
	case SlotBottomRight:
		s.coords.BottomRight = p
	}
}

func (s *coordStore) get() CapturedCoords {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coords
}

func (s *coordStore) clear() {
	s.mu.Lock()
	s.coords = CapturedCoords{}
	s.mu.Unlock()
}

// takeIfComplete returns and clears both slots when both are set.
func (s *coordStore) takeIfComplete() (CapturedCoords, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.coords.Complete() {
		return s.coords, false
	}
	c := s.coords
	s.coords = CapturedCoords{}
	return c, true
}
