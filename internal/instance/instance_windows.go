//go:build windows

package instance

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Lock holds the single-instance mutex until Release.
type Lock struct {
	h windows.Handle
}

// Acquire takes the named mutex, failing with ErrAlreadyRunning when another
// process holds it.
func Acquire(name string) (*Lock, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateMutex(nil, false, p)
	if err == windows.ERROR_ALREADY_EXISTS {
		windows.CloseHandle(h)
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		return nil, fmt.Errorf("CreateMutex: %w", err)
	}
	return &Lock{h: h}, nil
}

// Release drops the mutex.
func (l *Lock) Release() {
	if l.h != 0 {
		windows.CloseHandle(l.h)
		l.h = 0
	}
}
