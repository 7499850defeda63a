//go:build !windows

package singleinstance

// DefaultRetryPolicy permits stale cleanup: a socket file survives its
// owning process, so a refused connection usually means a crash left the
// file behind.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{CleanupStaleEndpoint: true}
}
