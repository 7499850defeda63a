//go:build !windows

package ipc

import (
	"errors"
	"fmt"
	"syscall"
)

// classifyBindError maps platform bind failures onto the sentinel taxonomy.
// EADDRINUSE is raised both for a live listener and for an orphaned socket
// file; which of the two it was is decided later by the connection probe.
func classifyBindError(err error) error {
	if errors.Is(err, syscall.EADDRINUSE) {
		return fmt.Errorf("%w: %v", ErrAddressInUse, err)
	}
	return err
}

// classifyDialError maps platform connect failures onto the sentinel
// taxonomy. ECONNREFUSED is the classic stale-socket signature; ENOENT
// means the socket file vanished between bind and connect, which leaves
// nothing to talk to either, so it reports the same way.
func classifyDialError(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT) {
		return fmt.Errorf("%w: %v", ErrConnRefused, err)
	}
	return err
}
