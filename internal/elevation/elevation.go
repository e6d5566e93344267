// Package elevation determines whether the process may place its window
// above the normal topmost band.
package elevation

import (
	"errors"
	"log"
)

// ErrUnsupported implies the platform has no UIAccess concept.
var ErrUnsupported = errors.New("uiaccess not supported on this platform")

// Context is computed once at startup and never changes afterwards.
type Context struct {
	IsAdmin     bool
	HasUIAccess bool
}

// Acquirer reads and requests the process privileges.
type Acquirer interface {
	Elevated() (bool, error)
	HasUIAccess() (bool, error)
	// AcquireUIAccess starts a UIAccess copy of this process. When it
	// returns relaunched=true the caller must exit.
	AcquireUIAccess() (relaunched bool, err error)
}

// Compute determines the Context. When allow is set and the process is
// elevated without UIAccess it makes a single acquisition attempt. Every
// failure degrades to the standard topmost band.
func Compute(a Acquirer, allow bool) (ctx Context, relaunched bool) {
	if a == nil {
		return Context{}, false
	}

	admin, err := a.Elevated()
	if err != nil {
		log.Printf("Elevation check failed, assuming standard user: %v", err)
		admin = false
	}
	ctx.IsAdmin = admin

	has, err := a.HasUIAccess()
	if err != nil {
		log.Printf("UIAccess check failed: %v", err)
		has = false
	}
	ctx.HasUIAccess = has

	if has || !admin || !allow {
		return ctx, false
	}

	relaunched, err = a.AcquireUIAccess()
	if err != nil {
		log.Printf("UIAccess unavailable, using standard topmost: %v", err)
		return ctx, false
	}
	return ctx, relaunched
}
