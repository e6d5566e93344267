// Package coordinator wires the keyboard watcher, monitor locator, theme
// resolver, renderer and overlay window together and runs them on the UI
// thread.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phinze/capsglow/internal/display"
	"github.com/phinze/capsglow/internal/elevation"
	"github.com/phinze/capsglow/internal/keystate"
	"github.com/phinze/capsglow/internal/overlay"
	"github.com/phinze/capsglow/internal/render"
	"github.com/phinze/capsglow/internal/theme"
)

// ErrStartup wraps every failure that prevents the indicator from running.
var ErrStartup = errors.New("startup failed")

// Component is an outer collaborator, such as the tray icon, started on the
// UI thread after the overlay window exists.
type Component interface {
	Init(ctx context.Context, c *Coordinator) error
	Stop()
}

// Placement is the logical indicator size and its offset from the centered
// position, in physical pixels.
type Placement struct {
	Size   int
	Offset image.Point
}

// Options carries the collaborators. All fields except OnSettingsChanged
// are required.
type Options struct {
	Watcher    *keystate.Watcher
	Locator    *display.Locator
	Resolver   *theme.Resolver
	Renderer   *render.Renderer
	NewSurface func() (overlay.Surface, error)
	Elevation  elevation.Context
	Loop       Loop

	MonitorMode display.Mode
	Placement   Placement

	// ResyncInterval re-reads the real Caps Lock state periodically to catch
	// changes the hook never sees. Zero disables it.
	ResyncInterval time.Duration

	// OnSettingsChanged runs on the UI thread after a mode change.
	OnSettingsChanged func(theme.Mode, display.Mode)
}

// Status is a copy of the overlay state safe to read from any goroutine.
type Status struct {
	CapsLock bool
	Visible  bool
	Rect     image.Rectangle
	Handle   uintptr
	Variant  theme.Variant
}

// Coordinator is the application controller. Producers on any goroutine
// post events; the UI thread owns the window, renderer and toggle state.
type Coordinator struct {
	opts   Options
	queue  queue
	window *overlay.Window

	// UI thread only.
	toggle     keystate.ToggleState
	components []Component
	torndown   bool

	monitorMode atomic.Int32

	statusMu sync.RWMutex
	status   Status

	// Lifecycle
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	c := &Coordinator{opts: opts}
	c.monitorMode.Store(int32(opts.MonitorMode))
	return c
}

// RegisterComponent adds a component. Must be called before Run.
func (c *Coordinator) RegisterComponent(comp Component) {
	c.components = append(c.components, comp)
}

// Run blocks on the UI loop until Shutdown or ctx cancellation. A non-nil
// error wrapping ErrStartup means the indicator never became operational.
func (c *Coordinator) Run(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	defer c.cancel()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-c.ctx.Done()
		c.Shutdown()
	}()

	if c.opts.ResyncInterval > 0 {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			ticker := time.NewTicker(c.opts.ResyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-c.ctx.Done():
					return
				case <-ticker.C:
					c.Resync()
				}
			}
		}()
	}

	err := c.opts.Loop.Run(c.start, c.drain)
	if err != nil {
		c.teardown()
	}

	c.cancel()
	c.wg.Wait()
	return err
}

// start runs once on the UI thread.
func (c *Coordinator) start() error {
	surface, err := c.opts.NewSurface()
	if err != nil {
		return fmt.Errorf("%w: create overlay window: %v", ErrStartup, err)
	}
	c.window = overlay.New(surface, c.opts.Elevation)

	c.opts.Resolver.Start()
	c.opts.Resolver.OnSystemThemeChange(func(theme.Variant) {
		c.post(event{kind: evSystemTheme})
	})

	for _, comp := range c.components {
		if err := comp.Init(c.ctx, c); err != nil {
			log.Printf("Component init failed: %v", err)
		}
	}

	if err := c.opts.Watcher.Subscribe(func(s keystate.ToggleState) {
		c.post(event{kind: evToggle, toggle: s})
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrStartup, err)
	}

	// Caps Lock may already be on when we start.
	if s, err := c.opts.Watcher.CurrentState(); err != nil {
		log.Printf("Reading initial caps lock state failed: %v", err)
	} else if s.On {
		c.handle(event{kind: evToggle, toggle: s})
	}

	log.Printf("Indicator running (monitor=%s, theme=%s)", c.MonitorMode(), c.ThemeMode())
	return nil
}

// post enqueues e and wakes the UI thread. Safe from any goroutine,
// including the keyboard hook callback.
func (c *Coordinator) post(e event) {
	c.queue.push(e)
	c.opts.Loop.Wake()
}

// drain runs on the UI thread after every wake.
func (c *Coordinator) drain() {
	for _, e := range c.queue.drain() {
		c.handle(e)
	}
}

func (c *Coordinator) handle(e event) {
	if c.torndown {
		return
	}

	switch e.kind {
	case evToggle:
		c.toggle = e.toggle
		if c.toggle.On {
			c.activate()
		} else {
			c.deactivate()
		}

	case evSystemTheme:
		c.refresh()

	case evLayout:
		c.resync(true)

	case evResync:
		c.resync(false)

	case evThemeMode:
		c.opts.Resolver.SetMode(e.themeMode)
		log.Printf("Theme mode set to %s", e.themeMode)
		c.settingsChanged()
		c.refresh()

	case evMonitorMode:
		c.monitorMode.Store(int32(e.monitorMode))
		log.Printf("Monitor mode set to %s", e.monitorMode)
		c.settingsChanged()
		c.refresh()

	case evShutdown:
		c.teardown()
		c.opts.Loop.Quit()
	}
}

// refresh re-runs the show cycle if the indicator is currently up.
func (c *Coordinator) refresh() {
	if c.toggle.On {
		c.activate()
	}
}

// resync adopts the real toggle state from the OS. With force set the show
// cycle re-runs even if the toggle has not moved, so a visible indicator
// follows a new display layout.
func (c *Coordinator) resync(force bool) {
	s, err := c.opts.Watcher.Sync()
	if err != nil {
		log.Printf("[hook] Re-reading caps lock failed: %v", err)
		s = c.toggle
	}
	if s == c.toggle && !force {
		return
	}
	if s != c.toggle {
		log.Printf("[hook] Caps lock is %s after a change the hook did not see", s)
	}

	c.toggle = s
	if s.On {
		c.activate()
	} else {
		c.deactivate()
	}
}

// activate is one show cycle: resolve the monitor, place the indicator,
// sample the area under it, render, then present.
func (c *Coordinator) activate() {
	if !c.toggle.On {
		return
	}

	mon, err := c.opts.Locator.Resolve(c.MonitorMode())
	if err != nil {
		log.Printf("[overlay] No monitor to show on: %v", err)
		c.deactivate()
		return
	}

	size, ok := c.opts.Renderer.NaturalSize()
	if !ok {
		size = display.ScaledSize(mon, c.opts.Placement.Size)
	}
	rect := display.Place(mon, size, c.opts.Placement.Offset)

	// Sampling must see the screen before this cycle paints anything.
	variant := c.opts.Resolver.PrepareShow(rect)

	frame, err := c.opts.Renderer.Render(variant, rect.Size())
	if err != nil {
		log.Printf("[overlay] Render failed, skipping this show: %v", err)
		c.deactivate()
		return
	}

	if err := c.window.Show(rect, frame); err != nil {
		log.Printf("[overlay] Show failed, will retry on next show: %v", err)
	}
	c.publish(variant)
}

func (c *Coordinator) deactivate() {
	if err := c.window.Hide(); err != nil {
		log.Printf("[overlay] %v", err)
	}
	c.publish(c.Status().Variant)
}

// publish copies the window state into the cross-thread Status.
func (c *Coordinator) publish(v theme.Variant) {
	c.statusMu.Lock()
	c.status = Status{
		CapsLock: c.toggle.On,
		Visible:  c.window.Visible(),
		Rect:     c.window.Rect(),
		Handle:   c.window.Handle(),
		Variant:  v,
	}
	c.statusMu.Unlock()
}

func (c *Coordinator) settingsChanged() {
	if c.opts.OnSettingsChanged != nil {
		c.opts.OnSettingsChanged(c.ThemeMode(), c.MonitorMode())
	}
}

// teardown releases everything in order: components, keyboard hook, window
// visibility, frame buffers, native window, theme subscription.
func (c *Coordinator) teardown() {
	if c.torndown {
		return
	}
	c.torndown = true

	for _, comp := range c.components {
		comp.Stop()
	}

	if err := c.opts.Watcher.Unsubscribe(); err != nil {
		log.Printf("%v", err)
	}

	if c.window != nil {
		if err := c.window.Hide(); err != nil {
			log.Printf("[overlay] %v", err)
		}
	}

	c.opts.Renderer.Release()

	if c.window != nil {
		if err := c.window.Destroy(); err != nil {
			log.Printf("[overlay] Destroy failed: %v", err)
		}
	}

	c.opts.Resolver.Close()
	log.Println("Indicator stopped")
}

// SetThemeMode switches the theme policy. Safe from any goroutine.
func (c *Coordinator) SetThemeMode(m theme.Mode) {
	c.post(event{kind: evThemeMode, themeMode: m})
}

// SetMonitorMode switches the target monitor policy. Safe from any goroutine.
func (c *Coordinator) SetMonitorMode(m display.Mode) {
	c.post(event{kind: evMonitorMode, monitorMode: m})
}

// NotifyLayoutChanged re-reads the toggle and re-places a visible indicator
// after a display topology, DPI or power change.
func (c *Coordinator) NotifyLayoutChanged() {
	c.post(event{kind: evLayout})
}

// Resync re-reads the toggle after input the hook may have missed, such as
// a session unlock. Safe from any goroutine.
func (c *Coordinator) Resync() {
	c.post(event{kind: evResync})
}

// Shutdown stops the indicator and ends Run. It may be called more than once.
func (c *Coordinator) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.post(event{kind: evShutdown})
	})
}

// ThemeMode returns the current theme policy.
func (c *Coordinator) ThemeMode() theme.Mode {
	return c.opts.Resolver.Mode()
}

// MonitorMode returns the current target monitor policy.
func (c *Coordinator) MonitorMode() display.Mode {
	return display.Mode(c.monitorMode.Load())
}

// Status returns a snapshot of the overlay state.
func (c *Coordinator) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}
