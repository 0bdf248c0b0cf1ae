//go:build unix

package engine

import (
	"os"
	"os/exec"
	"syscall"
	"time"
)

// setSysProcAttr puts the engine in its own process group so termination
// reaches any children it spawns.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateTree sends SIGTERM to the engine's process group, waits up to
// grace for it to exit, then SIGKILLs the group. exited closes when the
// process has been reaped; a nil channel skips the graceful wait.
func terminateTree(p *os.Process, grace time.Duration, exited <-chan struct{}) error {
	pgid := -p.Pid

	if grace > 0 && exited != nil {
		if err := syscall.Kill(pgid, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
			// Process group may be gone already; fall through to SIGKILL below.
			syscall.Kill(p.Pid, syscall.SIGTERM)
		}
		select {
		case <-exited:
			return nil
		case <-time.After(grace):
		}
	}

	if err := syscall.Kill(pgid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		if killErr := p.Kill(); killErr != nil && killErr != os.ErrProcessDone {
			return killErr
		}
	}

	if exited != nil {
		select {
		case <-exited:
		case <-time.After(2 * time.Second):
		}
	}
	return nil
}
