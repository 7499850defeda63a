//go:build windows

package ipc

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// listen creates the named pipe listener.
//
// The descriptor "D:P(A;;GA;;;AU)" allows any authenticated user to
// connect; cross-user isolation comes from the per-user hash in the pipe
// name, and the control surface only reaches the owner's own instance.
func listen(endpoint Endpoint) (net.Listener, error) {
	cfg := &winio.PipeConfig{
		SecurityDescriptor: "D:P(A;;GA;;;AU)", // DACL: Allow Generic All for Authenticated Users
		MessageMode:        true,
		InputBufferSize:    4096,
		OutputBufferSize:   4096,
	}

	return winio.ListenPipe(endpoint.Path, cfg)
}
