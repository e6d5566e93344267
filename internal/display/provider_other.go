//go:build !windows

package display

// NewSystemProvider is not available off Windows.
func NewSystemProvider() (Provider, error) {
	return nil, ErrUnsupported
}

// EnablePerMonitorDPI is a no-op on non-Windows platforms.
func EnablePerMonitorDPI() error {
	return nil
}
