//go:build !windows

package lifecycle

import (
	"os"
	"syscall"
)

// signalTerm asks the helper to exit on its own terms.
func signalTerm(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
