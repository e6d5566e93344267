package coordinator

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phinze/capsglow/internal/display"
	"github.com/phinze/capsglow/internal/elevation"
	"github.com/phinze/capsglow/internal/keystate"
	"github.com/phinze/capsglow/internal/overlay"
	"github.com/phinze/capsglow/internal/render"
	"github.com/phinze/capsglow/internal/theme"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// journal records side effects across fakes so tests can check ordering.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.entries = append(j.entries, s)
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeKeys struct {
	mu         sync.Mutex
	on         bool
	handler    keystate.Handler
	installErr error
	j          *journal
}

func (f *fakeKeys) Query() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on, nil
}

func (f *fakeKeys) Install(h keystate.Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.installErr != nil {
		return f.installErr
	}
	f.handler = h
	return nil
}

func (f *fakeKeys) Uninstall() error {
	f.mu.Lock()
	f.handler = nil
	f.mu.Unlock()
	f.j.add("unhook")
	return nil
}

func (f *fakeKeys) installed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

func (f *fakeKeys) send(down bool) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(keystate.KeyEvent{VK: keystate.VKCapital, Down: down})
	}
}

// setOn changes the toggle without any key event reaching the hook.
func (f *fakeKeys) setOn(on bool) {
	f.mu.Lock()
	f.on = on
	f.mu.Unlock()
}

// press simulates a physical press with auto-repeat followed by release.
func (f *fakeKeys) press(repeats int) {
	f.send(true)
	for i := 0; i < repeats; i++ {
		f.send(true)
	}
	f.mu.Lock()
	f.on = !f.on
	f.mu.Unlock()
	f.send(false)
}

type fakeMonitors struct {
	mu       sync.Mutex
	monitors []display.Monitor
	cursor   image.Point
}

func (f *fakeMonitors) Monitors() ([]display.Monitor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]display.Monitor(nil), f.monitors...), nil
}

func (f *fakeMonitors) CursorPos() (image.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor, nil
}

func (f *fakeMonitors) set(monitors []display.Monitor, cursor image.Point) {
	f.mu.Lock()
	f.monitors, f.cursor = monitors, cursor
	f.mu.Unlock()
}

type fakeSampler struct {
	mu   sync.Mutex
	fill color.Color
}

func (f *fakeSampler) Sample(r image.Rectangle) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return image.NewUniform(f.fill), nil
}

type fakeSystem struct {
	mu       sync.Mutex
	variant  theme.Variant
	onChange func(theme.Variant)
}

func (f *fakeSystem) Current() (theme.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.variant, nil
}

func (f *fakeSystem) Subscribe(cb func(theme.Variant), _ func(error)) (func(), error) {
	f.mu.Lock()
	f.onChange = cb
	f.mu.Unlock()
	return func() {}, nil
}

func (f *fakeSystem) flip(v theme.Variant) {
	f.mu.Lock()
	f.variant = v
	cb := f.onChange
	f.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

type fakeSurface struct {
	j         *journal
	mu        sync.Mutex
	visible   bool
	destroyed bool
	failNext  int
	presents  int
}

func (f *fakeSurface) Handle() uintptr { return 0x1234 }

func (f *fakeSurface) Present(*render.Frame, image.Rectangle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presents++
	if f.failNext > 0 {
		f.failNext--
		return errors.New("UpdateLayeredWindow failed")
	}
	return nil
}

func (f *fakeSurface) presentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presents
}

func (f *fakeSurface) Raise(overlay.ZOrder) error { return nil }

func (f *fakeSurface) Show() error {
	f.mu.Lock()
	f.visible = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSurface) Hide() error {
	f.mu.Lock()
	f.visible = false
	f.mu.Unlock()
	f.j.add("hide")
	return nil
}

func (f *fakeSurface) Destroy() error {
	f.mu.Lock()
	f.destroyed = true
	f.mu.Unlock()
	f.j.add("destroy")
	return nil
}

func (f *fakeSurface) isDestroyed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

type harness struct {
	j        *journal
	keys     *fakeKeys
	monitors *fakeMonitors
	sampler  *fakeSampler
	system   *fakeSystem

	surfMu   sync.Mutex
	surfaces []*fakeSurface

	coord *Coordinator
	done  chan error
}

func singleMonitor() []display.Monitor {
	return []display.Monitor{{Handle: 1, Bounds: image.Rect(0, 0, 1920, 1080), Primary: true, DPI: 96}}
}

func newHarness(t *testing.T, configure func(*harness, *Options)) *harness {
	t.Helper()

	j := &journal{}
	h := &harness{
		j:        j,
		keys:     &fakeKeys{j: j},
		monitors: &fakeMonitors{monitors: singleMonitor(), cursor: image.Pt(100, 100)},
		sampler:  &fakeSampler{fill: color.White},
		system:   &fakeSystem{variant: theme.Light},
		done:     make(chan error, 1),
	}

	opts := Options{
		Watcher:  keystate.NewWatcher(h.keys),
		Locator:  display.NewLocator(h.monitors),
		Resolver: theme.NewResolver(h.system, h.sampler, theme.FollowIndicatorArea),
		Renderer: render.New(nil),
		NewSurface: func() (overlay.Surface, error) {
			s := &fakeSurface{j: j}
			h.surfMu.Lock()
			h.surfaces = append(h.surfaces, s)
			h.surfMu.Unlock()
			return s, nil
		},
		Loop:        NewChanLoop(),
		MonitorMode: display.UnderMouse,
		Placement:   Placement{Size: 64},
	}
	if configure != nil {
		configure(h, &opts)
	}
	h.coord = New(opts)
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	go func() { h.done <- h.coord.Run(context.Background()) }()
	t.Cleanup(func() {
		h.coord.Shutdown()
		select {
		case <-h.done:
		case <-time.After(waitFor):
			t.Error("coordinator did not stop")
		}
	})
	require.Eventually(t, h.keys.installed, waitFor, tick)
}

func (h *harness) waitVisible(t *testing.T, visible bool) Status {
	t.Helper()
	require.Eventually(t, func() bool {
		s := h.coord.Status()
		return s.Visible == visible && s.CapsLock == visible
	}, waitFor, tick)
	return h.coord.Status()
}

func (h *harness) surfaceCount() int {
	h.surfMu.Lock()
	defer h.surfMu.Unlock()
	return len(h.surfaces)
}

func TestToggleShowsCenteredIndicator(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.keys.press(0)
	s := h.waitVisible(t, true)
	assert.Equal(t, image.Rect(928, 508, 992, 572), s.Rect)
	assert.Equal(t, image.Pt(64, 64), s.Rect.Size())
	first := s.Handle

	h.keys.press(0)
	h.waitVisible(t, false)

	h.keys.press(0)
	s = h.waitVisible(t, true)
	assert.Equal(t, first, s.Handle, "native window reused across show cycles")
	assert.Equal(t, 1, h.surfaceCount())
	assert.False(t, h.surfaces[0].isDestroyed())
}

func TestVisibilityTracksToggleUnderKeyRepeat(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	repeats := []int{0, 12, 3, 0, 0, 40, 1}
	want := false
	for _, r := range repeats {
		h.keys.press(r)
		want = !want
		h.waitVisible(t, want)
	}
}

func TestAlreadyOnAtStartup(t *testing.T) {
	h := newHarness(t, nil)
	h.keys.on = true
	h.run(t)
	h.waitVisible(t, true)
}

func TestElevationFailureStillShows(t *testing.T) {
	h := newHarness(t, func(h *harness, o *Options) {
		ctx, relaunched := elevation.Compute(failingAcquirer{}, true)
		require.False(t, relaunched)
		o.Elevation = ctx
	})
	h.run(t)

	h.keys.press(0)
	h.waitVisible(t, true)
}

type failingAcquirer struct{}

func (failingAcquirer) Elevated() (bool, error)        { return true, nil }
func (failingAcquirer) HasUIAccess() (bool, error)     { return false, nil }
func (failingAcquirer) AcquireUIAccess() (bool, error) { return false, errors.New("forced failure") }

func TestAreaSamplingPicksVariant(t *testing.T) {
	h := newHarness(t, nil)
	h.sampler.fill = color.Black
	h.run(t)

	h.keys.press(0)
	s := h.waitVisible(t, true)
	assert.Equal(t, theme.Dark, s.Variant)

	h.keys.press(0)
	h.waitVisible(t, false)

	h.sampler.mu.Lock()
	h.sampler.fill = color.White
	h.sampler.mu.Unlock()

	h.keys.press(0)
	h.waitVisible(t, true)
	assert.Equal(t, theme.Light, h.coord.Status().Variant)
}

func TestSystemThemeChangeRepaintsVisible(t *testing.T) {
	h := newHarness(t, func(h *harness, o *Options) {
		o.Resolver = theme.NewResolver(h.system, h.sampler, theme.FollowSystem)
	})
	h.run(t)

	h.keys.press(0)
	s := h.waitVisible(t, true)
	assert.Equal(t, theme.Light, s.Variant)

	h.system.flip(theme.Dark)
	require.Eventually(t, func() bool {
		return h.coord.Status().Variant == theme.Dark
	}, waitFor, tick)
}

func TestSetMonitorModeMovesVisibleIndicator(t *testing.T) {
	var changed []display.Mode
	var mu sync.Mutex

	h := newHarness(t, func(h *harness, o *Options) {
		o.OnSettingsChanged = func(_ theme.Mode, m display.Mode) {
			mu.Lock()
			changed = append(changed, m)
			mu.Unlock()
		}
	})
	h.monitors.set([]display.Monitor{
		{Handle: 1, Bounds: image.Rect(0, 0, 1920, 1080), Primary: true},
		{Handle: 2, Bounds: image.Rect(1920, 0, 3840, 1080)},
	}, image.Pt(2500, 300))
	h.run(t)

	h.keys.press(0)
	s := h.waitVisible(t, true)
	assert.Equal(t, image.Rect(2848, 508, 2912, 572), s.Rect)

	h.coord.SetMonitorMode(display.Primary)
	require.Eventually(t, func() bool {
		return h.coord.Status().Rect == image.Rect(928, 508, 992, 572)
	}, waitFor, tick)
	assert.Equal(t, display.Primary, h.coord.MonitorMode())

	mu.Lock()
	assert.Equal(t, []display.Mode{display.Primary}, changed)
	mu.Unlock()
}

func TestSetThemeMode(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.keys.press(0)
	h.waitVisible(t, true)
	assert.Equal(t, theme.Light, h.coord.Status().Variant)

	h.coord.SetThemeMode(theme.FixedDark)
	require.Eventually(t, func() bool {
		return h.coord.Status().Variant == theme.Dark
	}, waitFor, tick)
	assert.Equal(t, theme.FixedDark, h.coord.ThemeMode())
}

func TestLayoutChangeReplacesVisibleIndicator(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.keys.press(0)
	h.waitVisible(t, true)

	h.monitors.set([]display.Monitor{
		{Handle: 1, Bounds: image.Rect(0, 0, 1280, 720), Primary: true, DPI: 144},
	}, image.Pt(100, 100))
	h.coord.NotifyLayoutChanged()

	require.Eventually(t, func() bool {
		return h.coord.Status().Rect == image.Rect(592, 312, 688, 408)
	}, waitFor, tick)
}

func TestLayoutChangeWhileHiddenStaysHidden(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.coord.NotifyLayoutChanged()
	h.coord.SetThemeMode(theme.FixedDark)
	require.Eventually(t, func() bool {
		return h.coord.ThemeMode() == theme.FixedDark
	}, waitFor, tick)
	assert.False(t, h.coord.Status().Visible)
}

func TestPresentFailureRetriedOnNextShow(t *testing.T) {
	h := newHarness(t, func(h *harness, o *Options) {
		o.NewSurface = func() (overlay.Surface, error) {
			s := &fakeSurface{j: h.j, failNext: 1}
			h.surfMu.Lock()
			h.surfaces = append(h.surfaces, s)
			h.surfMu.Unlock()
			return s, nil
		}
	})
	h.run(t)

	h.keys.press(0)
	require.Eventually(t, func() bool {
		return h.coord.Status().CapsLock
	}, waitFor, tick)
	s := h.coord.Status()
	assert.False(t, s.Visible, "failed frame is never shown")
	assert.Equal(t, 1, h.surfaces[0].presentCount())

	h.keys.press(0)
	h.waitVisible(t, false)

	h.keys.press(0)
	s = h.waitVisible(t, true)
	assert.Equal(t, image.Rect(928, 508, 992, 572), s.Rect)
	assert.Equal(t, 2, h.surfaces[0].presentCount())
	assert.Equal(t, 1, h.surfaceCount(), "same window after the failure")
}

func TestLayoutChangeAdoptsUnobservedToggle(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	// Caps Lock turned on where the hook cannot see it, e.g. the lock screen.
	h.keys.setOn(true)
	h.coord.NotifyLayoutChanged()
	h.waitVisible(t, true)

	h.keys.setOn(false)
	h.coord.NotifyLayoutChanged()
	h.waitVisible(t, false)
}

func TestResyncHidesIndicatorAfterUnobservedOff(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.keys.press(0)
	h.waitVisible(t, true)

	h.keys.setOn(false)
	h.coord.Resync()
	h.waitVisible(t, false)

	// The next real press is not mistaken for a repeat.
	h.keys.press(0)
	h.waitVisible(t, true)
}

func TestResyncLeavesUnchangedIndicatorAlone(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.keys.press(0)
	h.waitVisible(t, true)
	presents := h.surfaces[0].presentCount()

	h.coord.Resync()
	h.coord.SetThemeMode(theme.FollowIndicatorArea)
	require.Eventually(t, func() bool {
		return h.surfaces[0].presentCount() > presents
	}, waitFor, tick)
	assert.Equal(t, presents+1, h.surfaces[0].presentCount(), "only the mode change repainted")
}

func TestPeriodicResync(t *testing.T) {
	h := newHarness(t, func(h *harness, o *Options) {
		o.ResyncInterval = 10 * time.Millisecond
	})
	h.run(t)

	h.keys.setOn(true)
	h.waitVisible(t, true)

	h.keys.setOn(false)
	h.waitVisible(t, false)
}

func TestShutdownOrder(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.keys.press(0)
	h.waitVisible(t, true)

	h.coord.Shutdown()
	select {
	case err := <-h.done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("coordinator did not stop")
	}
	h.done <- nil

	assert.Equal(t, []string{"unhook", "hide", "destroy"}, h.j.list())
	assert.False(t, h.keys.installed())
}

func TestContextCancelStops(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.coord.Run(ctx) }()
	require.Eventually(t, h.keys.installed, waitFor, tick)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("coordinator did not stop")
	}
	assert.True(t, h.surfaces[0].isDestroyed())
}

func TestHookDeniedIsFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.keys.installErr = errors.New("blocked by policy")

	err := h.coord.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStartup))
	assert.True(t, errors.Is(err, keystate.ErrHookDenied))
	assert.True(t, h.surfaces[0].isDestroyed())
}

func TestSurfaceFailureIsFatal(t *testing.T) {
	h := newHarness(t, func(h *harness, o *Options) {
		o.NewSurface = func() (overlay.Surface, error) {
			return nil, errors.New("RegisterClassEx failed")
		}
	})

	err := h.coord.Run(context.Background())
	assert.True(t, errors.Is(err, ErrStartup))
}

type fakeComponent struct {
	j *journal
}

func (f *fakeComponent) Init(ctx context.Context, c *Coordinator) error {
	f.j.add("component init")
	return nil
}

func (f *fakeComponent) Stop() { f.j.add("component stop") }

func TestComponentsStopFirst(t *testing.T) {
	h := newHarness(t, nil)
	h.coord.RegisterComponent(&fakeComponent{j: h.j})
	h.run(t)

	h.coord.Shutdown()
	<-h.done
	h.done <- nil

	assert.Equal(t, []string{"component init", "component stop", "unhook", "destroy"}, h.j.list())
}
