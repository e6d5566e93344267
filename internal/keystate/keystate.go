// Package keystate watches the Caps Lock toggle and reports each transition
// exactly once.
package keystate

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var (
	// ErrHookDenied implies the OS refused the low-level keyboard hook.
	// Without it no transitions can ever be observed, so callers treat it as fatal.
	ErrHookDenied = errors.New("keyboard hook denied")

	// ErrUnsupported implies the platform has no keyboard source.
	ErrUnsupported = errors.New("keyboard hook not supported on this platform")
)

// VKCapital is the virtual-key code of Caps Lock.
const VKCapital = 0x14

// staleHold is longer than the slowest keyboard repeat delay. A keydown that
// arrives this long after the previous one while the key is still marked held
// means the keyup was lost.
const staleHold = 1500 * time.Millisecond

// ToggleState is an immutable snapshot of the Caps Lock toggle.
type ToggleState struct {
	On bool
}

func (s ToggleState) String() string {
	if s.On {
		return "on"
	}
	return "off"
}

// KeyEvent is a raw key transition delivered by a Source.
type KeyEvent struct {
	VK       uint32
	Down     bool
	Injected bool
}

// Handler receives raw key events on the hook context. It must not block.
type Handler func(KeyEvent)

// Source is the OS side of the watcher: a query for the toggle bit and a
// global hook that delivers key transitions.
type Source interface {
	// Query reads the current toggle bit.
	Query() (bool, error)
	// Install starts delivering key events to h.
	Install(h Handler) error
	// Uninstall stops delivery. It is only called after a successful Install.
	Uninstall() error
}

// Watcher turns raw key events into debounced ToggleState transitions.
type Watcher struct {
	src Source

	mu        sync.Mutex
	installed bool
	onChange  func(ToggleState)
	held      bool
	lastDown  time.Time
	last      ToggleState
	debug     bool

	now func() time.Time
}

// NewWatcher creates a Watcher reading from src.
func NewWatcher(src Source) *Watcher {
	return &Watcher{src: src, now: time.Now}
}

// SetDebug enables per-event logging.
func (w *Watcher) SetDebug(debug bool) {
	w.mu.Lock()
	w.debug = debug
	w.mu.Unlock()
}

// CurrentState queries the toggle synchronously.
func (w *Watcher) CurrentState() (ToggleState, error) {
	on, err := w.src.Query()
	if err != nil {
		return ToggleState{}, fmt.Errorf("query caps lock: %w", err)
	}
	return ToggleState{On: on}, nil
}

// Sync re-reads the toggle and makes it the reference for the next
// transition. It covers changes the hook cannot observe, such as typing on
// the secure desktop. A held key is forgotten if the toggle moved without us.
func (w *Watcher) Sync() (ToggleState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	on, err := w.src.Query()
	if err != nil {
		return w.last, fmt.Errorf("query caps lock: %w", err)
	}
	s := ToggleState{On: on}
	if s != w.last {
		if w.debug {
			log.Printf("[hook] Caps lock changed unobserved, %s -> %s", w.last, s)
		}
		w.last = s
		w.held = false
	}
	return s, nil
}

// Subscribe installs the hook and delivers every subsequent transition to
// onChange from the hook context. Calling it again while subscribed is a no-op.
func (w *Watcher) Subscribe(onChange func(ToggleState)) error {
	w.mu.Lock()
	if w.installed {
		w.mu.Unlock()
		return nil
	}

	// Seed from the real toggle so the first keydown computes the right edge.
	on, err := w.src.Query()
	if err != nil {
		log.Printf("[hook] Initial caps lock query failed, assuming off: %v", err)
	}
	w.last = ToggleState{On: on}
	w.held = false
	w.onChange = onChange
	w.installed = true
	w.mu.Unlock()

	if err := w.src.Install(w.handle); err != nil {
		w.mu.Lock()
		w.installed = false
		w.onChange = nil
		w.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrHookDenied, err)
	}

	log.Printf("[hook] Keyboard hook installed, caps lock %s", w.last)
	return nil
}

// Unsubscribe removes the hook. It is safe to call more than once.
func (w *Watcher) Unsubscribe() error {
	w.mu.Lock()
	if !w.installed {
		w.mu.Unlock()
		return nil
	}
	w.installed = false
	w.onChange = nil
	w.mu.Unlock()

	if err := w.src.Uninstall(); err != nil {
		return fmt.Errorf("uninstall keyboard hook: %w", err)
	}
	log.Println("[hook] Keyboard hook removed")
	return nil
}

// handle runs on the hook context for every key event.
func (w *Watcher) handle(ev KeyEvent) {
	if ev.VK != VKCapital {
		return
	}

	w.mu.Lock()
	if !w.installed {
		w.mu.Unlock()
		return
	}

	if !ev.Down {
		w.held = false
		w.mu.Unlock()
		return
	}

	// Auto-repeat keydowns arrive while the key is held and never toggle.
	now := w.now()
	if w.held && now.Sub(w.lastDown) < staleHold {
		w.lastDown = now
		w.mu.Unlock()
		return
	}
	w.held = true
	w.lastDown = now

	// The hook sees the keydown before the system flips the toggle, so the
	// state after this press is the inverse of what Query reports now.
	on, err := w.src.Query()
	if err != nil {
		on = w.last.On
		log.Printf("[hook] Caps lock query failed, inferring from last state: %v", err)
	}
	next := ToggleState{On: !on}

	if next == w.last {
		w.mu.Unlock()
		return
	}
	w.last = next
	cb := w.onChange
	debug := w.debug
	w.mu.Unlock()

	if debug {
		log.Printf("[hook] Caps lock -> %s (injected=%v)", next, ev.Injected)
	}
	if cb != nil {
		cb(next)
	}
}
