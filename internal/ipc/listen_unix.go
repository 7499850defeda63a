//go:build !windows

package ipc

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// listen binds the Unix domain socket. The runtime directory usually
// exists already; a configured override might not. The socket itself is
// chmodded to owner-only since the endpoint accepts control commands.
//
// The kernel raises EADDRINUSE for an existing socket file whether or not
// anything is listening behind it; classifyBindError turns that into
// ErrAddressInUse and the caller's probe decides live versus stale.
func listen(endpoint Endpoint) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(endpoint.Path), 0o700); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", endpoint.Path)
	if err != nil {
		return nil, err
	}

	if err := os.Chmod(endpoint.Path, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}

	return listener, nil
}
