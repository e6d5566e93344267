//go:build !windows

package overlay

// NewNativeSurface is only available on Windows.
func NewNativeSurface() (Surface, error) {
	return nil, ErrUnsupported
}
