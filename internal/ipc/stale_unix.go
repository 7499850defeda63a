//go:build !windows

package ipc

import (
	"fmt"
	"os"
)

// RemoveStaleEndpoint unlinks an orphaned socket file left behind by a
// crashed instance. Idempotent: a path that is already gone is success,
// including the race where another process removed it first. Refuses to
// unlink anything that is not a socket; whatever else sits at the
// endpoint path is not ours to delete.
func RemoveStaleEndpoint(endpoint Endpoint) error {
	info, err := os.Lstat(endpoint.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("inspect stale endpoint %s: %w", endpoint.Path, err)
	}

	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("refusing to remove %s: not a socket (mode %s)", endpoint.Path, info.Mode())
	}

	if err := os.Remove(endpoint.Path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("remove stale endpoint %s: %w", endpoint.Path, err)
	}

	return nil
}
