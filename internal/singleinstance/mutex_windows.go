//go:build windows

package singleinstance

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/windows"

	"github.com/tessera-apps/tessera/internal/constants"
	"github.com/tessera-apps/tessera/internal/ipc"
	"github.com/tessera-apps/tessera/internal/logging"
)

// Hint is the named-mutex exclusivity marker. Installers and crash
// handlers can check it without dialing the pipe. Advisory only: the
// endpoint decides ownership, so acquisition failures never fail the
// bootstrap.
type Hint struct {
	handle      windows.Handle
	alreadyHeld bool
}

// AcquireHint claims the per-user named mutex derived from the endpoint.
func AcquireHint(endpoint ipc.Endpoint, logger *logging.Logger) *Hint {
	suffix := strings.TrimPrefix(endpoint.Path, constants.PipePrefix)
	name := fmt.Sprintf(constants.MutexPattern, suffix)

	name16, err := windows.UTF16PtrFromString(name)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to encode exclusivity mutex name")
		return &Hint{}
	}

	handle, err := windows.CreateMutex(nil, false, name16)
	if err != nil {
		if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
			// Normal for every instance after the first; the endpoint
			// already arbitrated ownership
			logger.Debug().Str("mutex", name).Msg("Exclusivity mutex already held")
			return &Hint{handle: handle, alreadyHeld: true}
		}
		logger.Warn().Err(err).Str("mutex", name).Msg("Failed to create exclusivity mutex")
		return &Hint{}
	}

	logger.Debug().Str("mutex", name).Msg("Exclusivity mutex acquired")
	return &Hint{handle: handle}
}

// AlreadyHeld reports whether another process held the mutex first.
func (h *Hint) AlreadyHeld() bool {
	return h != nil && h.alreadyHeld
}

// Release closes the mutex handle. Idempotent.
func (h *Hint) Release() {
	if h == nil || h.handle == 0 {
		return
	}
	windows.CloseHandle(h.handle)
	h.handle = 0
}
