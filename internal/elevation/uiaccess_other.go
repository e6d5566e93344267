//go:build !windows

package elevation

// ChildEnv marks the relaunched copy so it never tries to relaunch again.
const ChildEnv = "CAPSGLOW_UIACCESS_CHILD"

// NewSystemAcquirer is only available on Windows.
func NewSystemAcquirer() (Acquirer, error) {
	return nil, ErrUnsupported
}
