package ipc

import (
	"errors"
)

// Sentinel errors the bootstrap sequence branches on. Everything else that
// comes out of this package is an ordinary wrapped error and means the
// current attempt is unrecoverable.
var (
	// ErrAddressInUse reports that binding failed because the endpoint is
	// already claimed, by a live instance or by a stale leftover. Expected
	// during every second-instance launch.
	ErrAddressInUse = errors.New("endpoint already in use")

	// ErrConnRefused reports that the endpoint exists but nothing answered
	// the connection attempt. On Unix this is the stale-socket signature.
	ErrConnRefused = errors.New("endpoint connection refused")
)

// IsAddressInUse reports whether err carries the address-in-use signal.
func IsAddressInUse(err error) bool {
	return errors.Is(err, ErrAddressInUse)
}

// IsConnRefused reports whether err carries the connection-refused signal.
func IsConnRefused(err error) bool {
	return errors.Is(err, ErrConnRefused)
}
