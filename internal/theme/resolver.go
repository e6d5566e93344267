package theme

import (
	"image"
	"log"
	"sync"
	"sync/atomic"
)

// Resolver owns the resolved Variant. All reads and writes of the mode and
// the resolved value are atomic so a reader on any goroutine always sees a
// consistent pair of values.
type Resolver struct {
	system  SystemSource
	sampler Sampler

	mode     atomic.Int32
	resolved atomic.Int32
	sysLast  atomic.Int32
	degraded atomic.Bool

	mu        sync.Mutex
	stop      func()
	listeners []func(Variant)
}

// NewResolver creates a Resolver. Either source may be nil, in which case
// the modes depending on it fall back to Light.
func NewResolver(system SystemSource, sampler Sampler, mode Mode) *Resolver {
	r := &Resolver{system: system, sampler: sampler}
	r.mode.Store(int32(mode))
	r.sysLast.Store(int32(Light))
	r.resolved.Store(int32(Light))
	return r
}

// Start reads the initial system theme and subscribes to changes. Failing to
// subscribe is not fatal: the resolver keeps working and re-reads the system
// theme on every show instead.
func (r *Resolver) Start() {
	r.sysLast.Store(int32(r.readSystem()))

	if r.system == nil {
		r.degraded.Store(true)
	} else {
		stop, err := r.system.Subscribe(r.systemChanged, r.watchEnded)
		if err != nil {
			log.Printf("[theme] System theme notifications unavailable, polling on show: %v", err)
			r.degraded.Store(true)
		} else {
			r.mu.Lock()
			r.stop = stop
			r.mu.Unlock()
		}
	}

	r.refresh()
}

// Degraded reports whether the system theme subscription failed.
func (r *Resolver) Degraded() bool {
	return r.degraded.Load()
}

// Mode returns the current theme mode.
func (r *Resolver) Mode() Mode {
	return Mode(r.mode.Load())
}

// SetMode switches the theme policy and recomputes the resolved variant.
func (r *Resolver) SetMode(m Mode) {
	r.mode.Store(int32(m))
	r.refresh()
}

// Resolved returns the current Light/Dark value without side effects.
func (r *Resolver) Resolved() Variant {
	return Variant(r.resolved.Load())
}

// OnSystemThemeChange registers cb to run, on the watch goroutine, after
// every OS theme notification. Callers must hand off to their own thread.
func (r *Resolver) OnSystemThemeChange(cb func(Variant)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, cb)
	r.mu.Unlock()
}

// PrepareShow computes the variant for an indicator about to be shown at
// rect. For FollowIndicatorArea it samples the screen under rect, so it must
// run before the frame is painted.
func (r *Resolver) PrepareShow(rect image.Rectangle) Variant {
	switch r.Mode() {
	case FollowIndicatorArea:
		v := r.sampleArea(rect)
		r.resolved.Store(int32(v))
		return v
	case FollowSystem:
		if r.degraded.Load() {
			r.sysLast.Store(int32(r.readSystem()))
		}
	}
	r.refresh()
	return r.Resolved()
}

// Close stops the system theme subscription.
func (r *Resolver) Close() {
	r.mu.Lock()
	stop := r.stop
	r.stop = nil
	r.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// refresh recomputes the resolved variant for every mode except area
// sampling, which is only updated by PrepareShow.
func (r *Resolver) refresh() {
	switch r.Mode() {
	case FollowSystem:
		r.resolved.Store(r.sysLast.Load())
	case FixedLight:
		r.resolved.Store(int32(Light))
	case FixedDark:
		r.resolved.Store(int32(Dark))
	}
}

func (r *Resolver) systemChanged(v Variant) {
	if Variant(r.sysLast.Swap(int32(v))) == v {
		return
	}
	log.Printf("[theme] System theme changed to %s", v)
	r.refresh()

	r.mu.Lock()
	listeners := append([]func(Variant){}, r.listeners...)
	r.mu.Unlock()

	for _, cb := range listeners {
		cb(v)
	}
}

// watchEnded switches FollowSystem to re-reading on every show once the OS
// notification watch has died.
func (r *Resolver) watchEnded(err error) {
	log.Printf("[theme] System theme notifications stopped, polling on show: %v", err)
	r.degraded.Store(true)
	r.sysLast.Store(int32(r.readSystem()))
	r.refresh()
}

func (r *Resolver) readSystem() Variant {
	if r.system == nil {
		return Light
	}
	v, err := r.system.Current()
	if err != nil {
		log.Printf("[theme] Reading system theme failed, assuming light: %v", err)
		return Light
	}
	return v
}

func (r *Resolver) sampleArea(rect image.Rectangle) Variant {
	if r.sampler == nil || rect.Empty() {
		return Light
	}
	img, err := r.sampler.Sample(rect)
	if err != nil {
		log.Printf("[theme] Sampling indicator area failed, assuming light: %v", err)
		return Light
	}
	return VariantForLuminance(Luminance(img))
}
