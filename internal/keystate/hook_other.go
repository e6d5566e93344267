//go:build !windows

package keystate

// NewSystemSource is only available on Windows.
func NewSystemSource() (Source, error) {
	return nil, ErrUnsupported
}
