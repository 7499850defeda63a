//go:build windows

package ipc

import (
	"errors"
	"fmt"
	"syscall"
)

// Windows error codes for named pipes
const (
	ERROR_FILE_NOT_FOUND = syscall.Errno(2)
	ERROR_ACCESS_DENIED  = syscall.Errno(5)
	ERROR_PIPE_BUSY      = syscall.Errno(231)
)

// classifyBindError maps pipe creation failures onto the sentinel taxonomy.
// When another process owns the pipe name, CreateNamedPipe fails with
// ERROR_ACCESS_DENIED (or ERROR_PIPE_BUSY while all instances are taken);
// both mean the endpoint is claimed. errors.As is required because winio
// wraps the errno.
func classifyBindError(err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == ERROR_ACCESS_DENIED || errno == ERROR_PIPE_BUSY {
			return fmt.Errorf("%w: %v", ErrAddressInUse, err)
		}
	}
	return err
}

// classifyDialError maps pipe connect failures onto the sentinel taxonomy.
// A named pipe ceases to exist the moment its last handle closes, so
// ERROR_FILE_NOT_FOUND is the closest thing to "refused" this platform
// has. There is no stale object to clean up; the bootstrap policy treats
// this as fatal rather than retrying.
func classifyDialError(err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == ERROR_FILE_NOT_FOUND {
			return fmt.Errorf("%w: %v", ErrConnRefused, err)
		}
	}
	return err
}
