//go:build windows

package lock

import "os"

// processAlive is best-effort on Windows; FindProcess only fails for
// processes that are certainly gone, so we err on the side of "alive"
// and let the operator decide.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}
