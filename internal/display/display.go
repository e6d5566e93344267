// Package display resolves which monitor the indicator appears on and where
// on that monitor it is placed.
package display

import (
	"errors"
	"fmt"
	"image"
	"log"
	"strings"
)

var (
	// ErrNoMonitors implies monitor enumeration returned nothing and no
	// previously resolved monitor is available to fall back to.
	ErrNoMonitors = errors.New("no monitors available")

	// ErrCursorUnavailable implies the pointer position could not be read.
	ErrCursorUnavailable = errors.New("cursor position unavailable")

	// ErrUnsupported implies the platform has no native monitor provider.
	ErrUnsupported = errors.New("display provider not supported on this platform")
)

// Mode selects the monitor the indicator is shown on.
type Mode int

const (
	// UnderMouse picks the monitor hosting the pointer.
	UnderMouse Mode = iota
	// Primary picks the OS-flagged primary monitor.
	Primary
)

func (m Mode) String() string {
	switch m {
	case UnderMouse:
		return "mouse"
	case Primary:
		return "primary"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a config token into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mouse", "under_mouse", "select_mouse_monitor":
		return UnderMouse, nil
	case "primary", "select_primary_monitor":
		return Primary, nil
	}
	return UnderMouse, fmt.Errorf("unknown monitor mode %q", s)
}

// DefaultDPI is the DPI at which one logical pixel equals one physical pixel.
const DefaultDPI = 96

// Monitor is a snapshot of one display taken for a single show cycle.
type Monitor struct {
	Handle   uintptr
	Bounds   image.Rectangle
	WorkArea image.Rectangle
	Primary  bool
	DPI      uint32
	Name     string
}

// Scale returns the monitor's DPI scale factor relative to 96 DPI.
func (m Monitor) Scale() float64 {
	if m.DPI == 0 {
		return 1
	}
	return float64(m.DPI) / DefaultDPI
}

// Provider reads monitor topology and pointer position from the OS.
type Provider interface {
	Monitors() ([]Monitor, error)
	CursorPos() (image.Point, error)
}

// Locator resolves the target monitor for each activation.
type Locator struct {
	provider Provider

	// lastGood is only consulted when enumeration fails outright.
	lastGood *Monitor
}

// NewLocator creates a Locator backed by the given provider.
func NewLocator(p Provider) *Locator {
	return &Locator{provider: p}
}

// Resolve returns the monitor the indicator should appear on for mode.
// Topology is re-read on every call.
func (l *Locator) Resolve(mode Mode) (Monitor, error) {
	monitors, err := l.provider.Monitors()
	if err != nil || len(monitors) == 0 {
		if l.lastGood != nil {
			log.Printf("Monitor enumeration unavailable (%v), reusing last known monitor", err)
			return *l.lastGood, nil
		}
		if err == nil {
			err = ErrNoMonitors
		}
		return Monitor{}, fmt.Errorf("resolve monitor: %w", err)
	}

	primary := primaryOf(monitors)
	target := primary

	if mode == UnderMouse {
		pt, err := l.provider.CursorPos()
		if err != nil {
			log.Printf("Cursor position unavailable (%v), using primary monitor", err)
		} else if m, ok := containing(monitors, pt); ok {
			target = m
		}
	}

	l.lastGood = &target
	return target, nil
}

// primaryOf returns the flagged primary monitor, or the first one if the OS
// flagged none.
func primaryOf(monitors []Monitor) Monitor {
	for _, m := range monitors {
		if m.Primary {
			return m
		}
	}
	return monitors[0]
}

// containing returns the monitor whose bounds contain pt.
func containing(monitors []Monitor, pt image.Point) (Monitor, bool) {
	for _, m := range monitors {
		if pt.In(m.Bounds) {
			return m, true
		}
	}
	return Monitor{}, false
}
