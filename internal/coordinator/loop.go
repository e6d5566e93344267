package coordinator

import "sync"

// Loop is the UI thread. Run blocks on it, calling start once and then wake
// after each Wake until Quit. Both callbacks execute on the UI thread.
type Loop interface {
	Run(start func() error, wake func()) error
	Wake()
	Quit()
}

// ChanLoop is a Loop driven by channels, used off Windows and in tests.
type ChanLoop struct {
	wake chan struct{}
	quit chan struct{}
	once sync.Once
}

// NewChanLoop creates a ChanLoop.
func NewChanLoop() *ChanLoop {
	return &ChanLoop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
	}
}

func (l *ChanLoop) Run(start func() error, wake func()) error {
	if err := start(); err != nil {
		return err
	}
	for {
		select {
		case <-l.wake:
			wake()
		case <-l.quit:
			return nil
		}
	}
}

// Wake coalesces; one pending wake drains any number of queued events.
func (l *ChanLoop) Wake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *ChanLoop) Quit() {
	l.once.Do(func() { close(l.quit) })
}
