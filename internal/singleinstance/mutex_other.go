//go:build !windows

package singleinstance

import (
	"github.com/tessera-apps/tessera/internal/ipc"
	"github.com/tessera-apps/tessera/internal/logging"
)

// Hint is a no-op here: the socket file is the only exclusivity marker
// these platforms need.
type Hint struct{}

// AcquireHint returns an inert hint.
func AcquireHint(endpoint ipc.Endpoint, logger *logging.Logger) *Hint {
	return &Hint{}
}

// AlreadyHeld always reports false.
func (h *Hint) AlreadyHeld() bool {
	return false
}

// Release does nothing. Idempotent.
func (h *Hint) Release() {}
