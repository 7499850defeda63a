//go:build windows

package singleinstance

// DefaultRetryPolicy forbids stale cleanup: pipe names are kernel objects
// that vanish with their last handle, so "refused" here never means a
// removable leftover and retrying would loop on the same failure.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{CleanupStaleEndpoint: false}
}
