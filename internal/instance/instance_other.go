//go:build !windows

package instance

// Lock is a no-op placeholder off Windows.
type Lock struct{}

// Acquire is only available on Windows.
func Acquire(name string) (*Lock, error) {
	return nil, ErrUnsupported
}

// Release does nothing.
func (l *Lock) Release() {}
