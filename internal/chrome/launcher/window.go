package launcher

import (
	"fmt"
	"math/rand/v2"

	"github.com/tomyan/bopbot/internal/chrome"
)

const (
	// MinSize is the smallest accepted window dimension in pixels.
	MinSize = 50
	// maxBuffer bounds the random jitter applied to a window.
	maxBuffer = 250

	DefaultWidth  = 1200
	DefaultHeight = 800
)

// WindowGeometry is the browser window size.
type WindowGeometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ValidateWindowSize fails with a *ConfigError when either dimension is below
// MinSize.
func ValidateWindowSize(width, height int) error {
	if width < MinSize {
		return &ConfigError{
			Field:  "width",
			Reason: fmt.Sprintf("must be %d or greater, got %d", MinSize, width),
		}
	}
	if height < MinSize {
		return &ConfigError{
			Field:  "height",
			Reason: fmt.Sprintf("must be %d or greater, got %d", MinSize, height),
		}
	}
	return nil
}

// NewWindowGeometry validates the size and, when buffered is set, jitters both
// dimensions once by up to maxBuffer pixels in the same direction.
func NewWindowGeometry(width, height int, buffered bool) (WindowGeometry, error) {
	if err := ValidateWindowSize(width, height); err != nil {
		return WindowGeometry{}, err
	}

	w := WindowGeometry{Width: width, Height: height}
	if buffered {
		w = w.applyBuffer(rand.IntN(2) == 0)
	}
	return w, nil
}

// applyBuffer shrinks (negative) or grows both dimensions by a random amount
// drawn from a single magnitude. Shrinking never goes below MinSize.
func (w WindowGeometry) applyBuffer(negative bool) WindowGeometry {
	buffer := uniform(MinSize, maxBuffer)
	if negative {
		return WindowGeometry{
			Width:  uniform(max(MinSize, w.Width-buffer), w.Width),
			Height: uniform(max(MinSize, w.Height-buffer), w.Height),
		}
	}
	return WindowGeometry{
		Width:  uniform(w.Width, w.Width+buffer),
		Height: uniform(w.Height, w.Height+buffer),
	}
}

// uniform returns an integer in [lo, hi].
func uniform(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}

// Viewport is the page viewport matching the window.
func (w WindowGeometry) Viewport() chrome.Viewport {
	return chrome.Viewport{Width: w.Width, Height: w.Height}
}

// WindowSizeArg is the --window-size flag. The extra 100px of height leaves
// room for the browser chrome above the viewport.
func (w WindowGeometry) WindowSizeArg() string {
	return fmt.Sprintf("--window-size=%d,%d", w.Width, w.Height+100)
}
