//go:build windows

package ipc

// RemoveStaleEndpoint is a no-op on Windows. Named pipes vanish with their
// last handle, so there is no filesystem object to clean up, and the
// bootstrap policy never reaches this path here.
func RemoveStaleEndpoint(endpoint Endpoint) error {
	return nil
}
