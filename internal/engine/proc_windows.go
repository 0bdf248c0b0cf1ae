//go:build windows

package engine

import (
	"os"
	"os/exec"
	"strconv"
	"time"
)

func setSysProcAttr(cmd *exec.Cmd) {}

// terminateTree kills the engine and its descendants. Windows has no
// process groups in the unix sense, so the tree kill goes through taskkill.
func terminateTree(p *os.Process, grace time.Duration, exited <-chan struct{}) error {
	if grace > 0 && exited != nil {
		// No graceful signal on Windows; give the process the grace period
		// anyway in case it is already on its way down.
		select {
		case <-exited:
			return nil
		case <-time.After(grace):
		}
	}

	cmd := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(p.Pid))
	if err := cmd.Run(); err != nil {
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
