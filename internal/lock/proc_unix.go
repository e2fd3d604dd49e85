//go:build !windows

package lock

import (
	"os"
	"syscall"
)

// processAlive checks whether a process with the given pid still exists.
// Signal 0 performs the existence check without sending anything.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
