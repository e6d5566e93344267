// Package overlay owns the indicator window and its show/hide state machine.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/phinze/capsglow/internal/elevation"
	"github.com/phinze/capsglow/internal/render"
)

var (
	// ErrDestroyed implies the window was used after Destroy.
	ErrDestroyed = errors.New("overlay window destroyed")

	// ErrUnsupported implies the platform has no native overlay surface.
	ErrUnsupported = errors.New("overlay surface not supported on this platform")
)

// State is the overlay's position in the Hidden → Positioning → Visible cycle.
type State int

const (
	Hidden State = iota
	Positioning
	Visible
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Positioning:
		return "positioning"
	case Visible:
		return "visible"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ZOrder is the band the window is raised into.
type ZOrder int

const (
	// Topmost is the ordinary always-on-top band.
	Topmost ZOrder = iota
	// AboveTopmost is reachable only with UIAccess and sits with system UI.
	AboveTopmost
)

func (z ZOrder) String() string {
	if z == AboveTopmost {
		return "uiaccess"
	}
	return "topmost"
}

// ZOrderFor picks the z-order strategy for an elevation context.
func ZOrderFor(ctx elevation.Context) ZOrder {
	if ctx.HasUIAccess {
		return AboveTopmost
	}
	return Topmost
}

// Surface is the native window behind the overlay. Implementations are
// click-through, never take focus and stay out of the taskbar and alt-tab.
type Surface interface {
	// Handle identifies the native window. It is stable for the surface's life.
	Handle() uintptr
	// Present atomically replaces the window content with f and moves the
	// window to r.
	Present(f *render.Frame, r image.Rectangle) error
	Raise(z ZOrder) error
	Show() error
	Hide() error
	Destroy() error
}

// Window drives one Surface through show cycles. The surface is created
// once and reused; hiding never destroys it.
type Window struct {
	surface Surface
	zorder  ZOrder

	state     State
	rect      image.Rectangle
	destroyed bool
}

// New wraps surface, choosing the z-order strategy from ctx.
func New(surface Surface, ctx elevation.Context) *Window {
	z := ZOrderFor(ctx)
	log.Printf("[overlay] Using %s z-order", z)
	return &Window{surface: surface, zorder: z}
}

// Show positions the window at rect with content f, raises it and makes it
// visible. Showing an already visible window repositions and repaints it.
// On failure the window is left hidden.
func (w *Window) Show(rect image.Rectangle, f *render.Frame) error {
	if w.destroyed {
		return ErrDestroyed
	}

	w.state = Positioning
	if err := w.surface.Present(f, rect); err != nil {
		w.abort()
		return fmt.Errorf("present frame: %w", err)
	}
	w.rect = rect

	if err := w.surface.Raise(w.zorder); err != nil {
		// Still visible, just possibly under another topmost window.
		log.Printf("[overlay] Raising window failed: %v", err)
	}

	if err := w.surface.Show(); err != nil {
		w.abort()
		return fmt.Errorf("show window: %w", err)
	}
	w.state = Visible
	return nil
}

// Hide hides the window without releasing it.
func (w *Window) Hide() error {
	if w.destroyed || w.state == Hidden {
		return nil
	}
	w.state = Hidden
	if err := w.surface.Hide(); err != nil {
		return fmt.Errorf("hide window: %w", err)
	}
	return nil
}

// Destroy releases the native window. The Window is unusable afterwards.
func (w *Window) Destroy() error {
	if w.destroyed {
		return nil
	}
	w.destroyed = true
	w.state = Hidden
	return w.surface.Destroy()
}

func (w *Window) abort() {
	w.state = Hidden
	if err := w.surface.Hide(); err != nil {
		log.Printf("[overlay] Hiding after failed show: %v", err)
	}
}

// State returns the current state.
func (w *Window) State() State { return w.state }

// Visible reports whether the window is on screen.
func (w *Window) Visible() bool { return w.state == Visible }

// Rect returns the rectangle of the most recent successful show.
func (w *Window) Rect() image.Rectangle { return w.rect }

// Handle returns the native window handle.
func (w *Window) Handle() uintptr { return w.surface.Handle() }

// ZOrder returns the strategy chosen at construction.
func (w *Window) ZOrder() ZOrder { return w.zorder }
