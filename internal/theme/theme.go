// Package theme resolves whether the indicator is drawn for a light or a dark
// background.
package theme

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
)

// ErrUnsupported implies the platform has no system theme or screen sampler.
var ErrUnsupported = errors.New("theme source not supported on this platform")

// Mode is the user-selected theme policy.
type Mode int32

const (
	// FollowIndicatorArea samples the screen under the indicator on every show.
	FollowIndicatorArea Mode = iota
	// FollowSystem tracks the OS app theme.
	FollowSystem
	// FixedLight always draws for a light background.
	FixedLight
	// FixedDark always draws for a dark background.
	FixedDark
)

func (m Mode) String() string {
	switch m {
	case FollowIndicatorArea:
		return "follow_indicator_area"
	case FollowSystem:
		return "follow_system"
	case FixedLight:
		return "light"
	case FixedDark:
		return "dark"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a config token into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "follow_indicator_area", "follow_indicator_area_theme", "indicator_area", "area":
		return FollowIndicatorArea, nil
	case "follow_system", "follow_system_theme", "system":
		return FollowSystem, nil
	case "light":
		return FixedLight, nil
	case "dark":
		return FixedDark, nil
	}
	return FollowIndicatorArea, fmt.Errorf("unknown theme mode %q", s)
}

// Variant is a concrete resolved theme: the kind of background the indicator
// is drawn over.
type Variant int32

const (
	Light Variant = iota
	Dark
)

func (v Variant) String() string {
	if v == Dark {
		return "dark"
	}
	return "light"
}

// Foreground is the glyph color that reads well over the variant's background.
func (v Variant) Foreground() color.RGBA {
	if v == Dark {
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	return color.RGBA{R: 0x1f, G: 0x1f, B: 0x1f, A: 0xff}
}

// SystemSource reads and watches the OS app theme.
type SystemSource interface {
	Current() (Variant, error)
	// Subscribe calls onChange from a background goroutine whenever the OS
	// theme may have changed. If the watch fails after it has started, onEnd
	// is called once and no further changes are delivered. The returned stop
	// function blocks until the watch has ended and never triggers onEnd.
	Subscribe(onChange func(Variant), onEnd func(error)) (stop func(), err error)
}

// Sampler captures the on-screen pixels of a rectangle in desktop coordinates.
type Sampler interface {
	Sample(r image.Rectangle) (image.Image, error)
}
