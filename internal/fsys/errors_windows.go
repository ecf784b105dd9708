//go:build windows

package fsys

import (
	"errors"

	"golang.org/x/sys/windows"
)

// isPathError reports Win32 errors that mean the path itself is unusable.
func isPathError(err error) bool {
	return errors.Is(err, windows.ERROR_FILENAME_EXCED_RANGE) ||
		errors.Is(err, windows.ERROR_BUFFER_OVERFLOW) ||
		errors.Is(err, windows.ERROR_PATH_NOT_FOUND) ||
		errors.Is(err, windows.ERROR_BAD_PATHNAME) ||
		errors.Is(err, windows.ERROR_INVALID_NAME)
}
