//go:build windows

package lifecycle

import "os"

// signalTerm stops the helper outright. Windows offers no polite
// termination signal for a detached process, so there is nothing for the
// grace period to wait on.
func signalTerm(p *os.Process) error {
	return p.Kill()
}
