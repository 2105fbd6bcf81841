package hotkey

import "image"

// PointerFunc returns the current pointer position in screen coordinates.
type PointerFunc func() (x, y int)

// AnchorCallback returns the callback for an anchor hotkey: it stores the
// pointer position in slot, overwriting that slot only.
func (s *Service) AnchorCallback(slot Slot, pointer PointerFunc) Callback {
	return func() {
		x, y := pointer()
		s.coords.set(slot, x, y)
		log.Info().Str("slot", slot.String()).Int("x", x).Int("y", y).Msg("Captured pointer position")
	}
}

// TakeRegion returns the rectangle anchored by both slots and clears them.
// ok is false, and nothing is cleared, while a slot is still empty.
func (s *Service) TakeRegion() (image.Rectangle, bool) {
	c, ok := s.coords.takeIfComplete()
	if !ok {
		return image.Rectangle{}, false
	}
	r, _ := c.Rect()
	log.Info().Str("region", r.String()).Msg("Took captured region")
	return r, true
}
