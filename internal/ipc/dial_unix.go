//go:build !windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"time"
)

// dial connects to the Unix domain socket.
func dial(ctx context.Context, endpoint Endpoint, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{
		Timeout: timeout,
	}

	conn, err := dialer.DialContext(ctx, "unix", endpoint.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to endpoint %s: %w", endpoint.Path, err)
	}

	return conn, nil
}
