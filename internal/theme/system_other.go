//go:build !windows

package theme

// NewSystemSource is only available on Windows.
func NewSystemSource() (SystemSource, error) {
	return nil, ErrUnsupported
}

// NewScreenSampler is only available on Windows.
func NewScreenSampler() (Sampler, error) {
	return nil, ErrUnsupported
}
