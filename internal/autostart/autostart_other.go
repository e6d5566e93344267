//go:build !windows

package autostart

func set(string) error { return ErrUnsupported }

// Disable is only available on Windows.
func Disable() error { return ErrUnsupported }

// Enabled is only available on Windows.
func Enabled() (bool, error) { return false, ErrUnsupported }
