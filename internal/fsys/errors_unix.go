//go:build !windows

package fsys

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isPathError reports errnos that mean the path itself is unusable.
func isPathError(err error) bool {
	return errors.Is(err, unix.ENAMETOOLONG) ||
		errors.Is(err, unix.ENOTDIR) ||
		errors.Is(err, unix.ELOOP) ||
		errors.Is(err, unix.ENOENT)
}
