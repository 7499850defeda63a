//go:build windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// dial connects to the named pipe. DialPipeContext retries internally
// while the pipe is busy, so a busy-owner surfaces as a timeout rather
// than an instant failure.
func dial(ctx context.Context, endpoint Endpoint, timeout time.Duration) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := winio.DialPipeContext(dialCtx, endpoint.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to endpoint %s: %w", endpoint.Path, err)
	}

	return conn, nil
}
