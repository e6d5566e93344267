package main

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/phinze/capsglow/internal/elevation"
)

// restartEnv tells a restarted copy to wait for its predecessor's lock.
const restartEnv = "CAPSGLOW_RESTART"

// restartCommand re-runs exe with args. The UIAccess marker is dropped so the
// new copy negotiates elevation from scratch.
func restartCommand(exe string, args, env []string) *exec.Cmd {
	cmd := exec.Command(exe, args...)
	cmd.Env = make([]string, 0, len(env)+1)
	for _, kv := range env {
		key, _, _ := strings.Cut(kv, "=")
		if strings.EqualFold(key, elevation.ChildEnv) || strings.EqualFold(key, restartEnv) {
			continue
		}
		cmd.Env = append(cmd.Env, kv)
	}
	cmd.Env = append(cmd.Env, restartEnv+"=1")
	return cmd
}

func aboutText(version string) string {
	return fmt.Sprintf("CapsGlow %s\n\nShows an overlay while Caps Lock is on.", version)
}
