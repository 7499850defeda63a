//go:build !windows

package ipc

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tessera-apps/tessera/internal/constants"
)

// ResolveEndpoint derives the per-user socket path inside runtimeDir.
// The uid keeps concurrent users on a shared host from colliding; the
// caller decides the directory (runtime dir by default, overridable for
// development).
//
// Socket paths have a hard kernel length limit (sun_path). If the derived
// path exceeds it, resolution falls back to the system temporary directory
// before giving up.
func ResolveEndpoint(runtimeDir string) (Endpoint, error) {
	name := fmt.Sprintf(constants.SocketPattern, os.Getuid())

	path := filepath.Join(runtimeDir, name)
	if len(path) <= constants.MaxSocketPathLen {
		return Endpoint{Path: path}, nil
	}

	fallback := filepath.Join(os.TempDir(), name)
	if len(fallback) <= constants.MaxSocketPathLen {
		return Endpoint{Path: fallback}, nil
	}

	return Endpoint{}, fmt.Errorf("socket path %q exceeds the %d byte limit", path, constants.MaxSocketPathLen)
}
