// Package instance keeps a single CapsGlow running per session.
package instance

import (
	"errors"
	"time"
)

var (
	// ErrAlreadyRunning implies another instance holds the lock.
	ErrAlreadyRunning = errors.New("another instance is already running")

	// ErrUnsupported implies the platform has no named mutex.
	ErrUnsupported = errors.New("single instance lock not supported on this platform")
)

// Name is the session-local mutex name.
const Name = `Local\CapsGlow.SingleInstance`

var (
	acquire       = Acquire
	retryInterval = 100 * time.Millisecond
)

// AcquireRetry keeps trying Acquire for up to timeout while another instance
// holds the lock. A restarted copy uses it to wait for its predecessor to exit.
func AcquireRetry(name string, timeout time.Duration) (*Lock, error) {
	deadline := time.Now().Add(timeout)
	for {
		l, err := acquire(name)
		if !errors.Is(err, ErrAlreadyRunning) || !time.Now().Before(deadline) {
			return l, err
		}
		time.Sleep(retryInterval)
	}
}
