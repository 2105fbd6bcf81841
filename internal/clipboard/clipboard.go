// Package clipboard copies captured coordinates as text.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/TanaroSch/multi-capture/internal/hotkey"
	"github.com/TanaroSch/multi-capture/internal/logging"
)

var log = logging.For("clipboard")

var ErrNothingCaptured = errors.New("no coordinates captured")

// Manager writes to the system clipboard.
type Manager struct {
	write func(string) error
}

// NewManager creates a new clipboard manager
func NewManager() *Manager {
	return &Manager{write: clipboard.WriteAll}
}

// CopyCoords puts the captured coordinates on the clipboard and returns the
// copied text.
func (m *Manager) CopyCoords(c hotkey.CapturedCoords) (string, error) {
	if c.TopLeft == nil && c.BottomRight == nil {
		return "", ErrNothingCaptured
	}
	text := FormatCoords(c)
	if err := m.write(text); err != nil {
		return "", fmt.Errorf("failed to write clipboard: %w", err)
	}
	log.Info().Str("text", text).Msg("Copied captured coordinates")
	return text, nil
}

// FormatCoords renders the coordinates in the field names regions are
// stored with: "x1=10 y1=20 x2=300 y2=400" once both slots are set,
// otherwise the set slot only.
func FormatCoords(c hotkey.CapturedCoords) string {
	if r, ok := c.Rect(); ok {
		return fmt.Sprintf("x1=%d y1=%d x2=%d y2=%d", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
	}
	if c.TopLeft != nil {
		return fmt.Sprintf("top_left=%d,%d", c.TopLeft.X, c.TopLeft.Y)
	}
	if c.BottomRight != nil {
		return fmt.Sprintf("bottom_right=%d,%d", c.BottomRight.X, c.BottomRight.Y)
	}
	return ""
}
