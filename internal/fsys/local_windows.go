//go:build windows

package fsys

import (
	"io/fs"
	"path/filepath"
	"syscall"

	"github.com/sadopc/dirpie/internal/pathops"
	"golang.org/x/sys/windows"
)

// osPath switches absolute paths to the extended-length form so deep trees
// are not rejected by the MAX_PATH limit.
func osPath(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	return pathops.ToExtendedForm(path)
}

// isReparseDir reports junctions, mount points and other reparse-point
// directories.
func isReparseDir(d fs.DirEntry) bool {
	info, err := d.Info()
	if err != nil {
		return false
	}
	attrs, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return false
	}
	return attrs.FileAttributes&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0
}
