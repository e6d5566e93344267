package coordinator

import (
	"sync"

	"github.com/phinze/capsglow/internal/display"
	"github.com/phinze/capsglow/internal/keystate"
	"github.com/phinze/capsglow/internal/theme"
)

type eventKind int

const (
	evToggle eventKind = iota
	evSystemTheme
	evLayout
	evResync
	evThemeMode
	evMonitorMode
	evShutdown
)

// event is an immutable message from any goroutine to the UI thread.
type event struct {
	kind        eventKind
	toggle      keystate.ToggleState
	themeMode   theme.Mode
	monitorMode display.Mode
}

// queue is the ordered hand-off from producers to the UI thread.
type queue struct {
	mu    sync.Mutex
	items []event
}

func (q *queue) push(e event) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
}

// drain removes and returns everything queued so far, oldest first.
func (q *queue) drain() []event {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}
