//go:build !windows

package fsys

import "io/fs"

func osPath(path string) string { return path }

// isReparseDir is always false on POSIX systems; redirections there are
// symlinks and are classified by mode.
func isReparseDir(fs.DirEntry) bool { return false }
