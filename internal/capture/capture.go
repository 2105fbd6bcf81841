// Package capture grabs every configured region to a PNG file.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kbinani/screenshot"

	"github.com/TanaroSch/multi-capture/internal/logging"
)

var log = logging.For("capture")

var (
	ErrEmptyRegion    = errors.New("region has zero width or height")
	ErrNoActiveScreen = errors.New("no active displays found")
)

// Target is one region to capture.
type Target struct {
	Name string
	Rect image.Rectangle
}

// Shot is the outcome of capturing one target.
type Shot struct {
	Name string
	Path string
	Err  error
}

// Result is the outcome of one sweep.
type Result struct {
	Shots []Shot
}

func (r Result) Succeeded() int {
	n := 0
	for _, s := range r.Shots {
		if s.Err == nil {
			n++
		}
	}
	return n
}

func (r Result) Failed() int { return len(r.Shots) - r.Succeeded() }

// GrabFunc returns the screen contents of rect.
type GrabFunc func(rect image.Rectangle) (*image.RGBA, error)

// Sweeper captures targets into an output directory. Sweeps never overlap.
type Sweeper struct {
	outputDir func() string
	grab      GrabFunc
	now       func() time.Time

	mu sync.Mutex
}

// NewSweeper returns a Sweeper that grabs the screen with
// github.com/kbinani/screenshot. outputDir is read at every sweep so config
// reloads apply.
func NewSweeper(outputDir func() string) *Sweeper {
	return newSweeper(outputDir, grabScreen, time.Now)
}

func newSweeper(outputDir func() string, grab GrabFunc, now func() time.Time) *Sweeper {
	return &Sweeper{outputDir: outputDir, grab: grab, now: now}
}

func grabScreen(rect image.Rectangle) (*image.RGBA, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, ErrNoActiveScreen
	}
	return screenshot.CaptureRect(rect)
}

// Sweep captures every target. A failing target does not stop the others.
func (s *Sweeper) Sweep(targets []Target) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	dir := s.outputDir()
	var res Result
	if len(targets) == 0 {
		log.Warn().Msg("No regions configured, nothing to capture")
		return res
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		err = fmt.Errorf("failed to create output directory '%s': %w", dir, err)
		for _, t := range targets {
			res.Shots = append(res.Shots, Shot{Name: t.Name, Err: err})
		}
		log.Error().Err(err).Msg("Capture sweep aborted")
		return res
	}

	for _, t := range targets {
		path, err := s.captureOne(dir, t)
		res.Shots = append(res.Shots, Shot{Name: t.Name, Path: path, Err: err})
		if err != nil {
			log.Error().Err(err).Str("region", t.Name).Msg("Capture failed")
			continue
		}
		log.Debug().Str("region", t.Name).Str("path", path).Msg("Captured region")
	}
	log.Info().Int("ok", res.Succeeded()).Int("failed", res.Failed()).
		Float64("elapsed_ms", logging.Elapsed(start)).Msg("Capture sweep finished")
	return res
}

func (s *Sweeper) captureOne(dir string, t Target) (string, error) {
	rect := t.Rect.Canon()
	if rect.Empty() {
		return "", fmt.Errorf("%w: %v", ErrEmptyRegion, rect)
	}
	img, err := s.grab(rect)
	if err != nil {
		return "", fmt.Errorf("failed to capture region '%s': %w", t.Name, err)
	}

	path := filepath.Join(dir, FileName(t.Name, s.now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create '%s': %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return path, nil
}

// FileName returns "<name>_<YYYYMMDD_HHMMSS_mmm>.png" with path separators
// and other characters unsafe in file names replaced.
func FileName(name string, t time.Time) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if safe == "" {
		safe = "region"
	}
	return fmt.Sprintf("%s_%s_%03d.png", safe, t.Format("20060102_150405"), t.Nanosecond()/int(time.Millisecond))
}

// Run sweeps every interval until ctx is done. targets is read at every
// tick. An interval of zero or less disables the timer.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration, targets func() []Target) {
	if interval <= 0 {
		log.Info().Msg("Interval capture disabled")
		return
	}
	log.Info().Dur("interval", interval).Msg("Interval capture started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Interval capture stopped")
			return
		case <-ticker.C:
			if ts := targets(); len(ts) > 0 {
				s.Sweep(ts)
			}
		}
	}
}
