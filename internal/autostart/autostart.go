// Package autostart manages the per-user Run key entry that starts CapsGlow
// at logon.
package autostart

import (
	"errors"
	"fmt"
	"os"
)

// ErrUnsupported implies the platform has no Run key.
var ErrUnsupported = errors.New("autostart not supported on this platform")

const (
	runKey    = `Software\Microsoft\Windows\CurrentVersion\Run`
	valueName = "CapsGlow"
)

// Command returns the Run key value for exe: the quoted path.
func Command(exe string) string {
	return `"` + exe + `"`
}

// Enable registers the current executable to start at logon.
func Enable() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	return set(Command(exe))
}
