// Package pathops provides string-level path helpers that understand both
// POSIX paths and Windows drive, UNC and extended-length paths regardless of
// the host platform.
package pathops

import (
	"runtime"
	"strings"
)

const (
	extendedPrefix = `\\?\`
	devicePrefix   = `\\.\`
	uncPrefix      = `\\`
	extendedUNC    = `\\?\UNC\`
)

// Normalize strips trailing separators while preserving a root such as "/",
// `C:\` or `\\server\share\`.
func Normalize(path string) string {
	if path == "" {
		return path
	}
	win := windowsStyle(path)
	root := rootLen(path, win)
	end := len(path)
	for end > root && isSep(path[end-1], win) {
		end--
	}
	return path[:end]
}

// Join appends name to dir with exactly one separator between them.
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	win := windowsStyle(dir)
	for len(name) > 0 && isSep(name[0], win) {
		name = name[1:]
	}
	if name == "" {
		return dir
	}
	if isSep(dir[len(dir)-1], win) {
		return dir + name
	}
	return dir + string(separator(dir, win)) + name
}

// Parent returns path with its last component removed. The parent of a root
// is the root itself, and a bare relative name is its own parent.
func Parent(path string) string {
	s := Normalize(path)
	win := windowsStyle(s)
	root := rootLen(s, win)
	if len(s) <= root {
		return s
	}
	i := lastSep(s, win)
	if i < 0 {
		return s
	}
	if i+1 <= root {
		return s[:root]
	}
	return s[:i]
}

// IsRoot reports whether path (after normalization) names a filesystem or
// volume root.
func IsRoot(path string) bool {
	s := Normalize(path)
	if s == "" {
		return false
	}
	return len(s) == rootLen(s, windowsStyle(s))
}

// Within reports whether path equals base or lies below it. Windows-style
// paths compare case-insensitively.
func Within(base, path string) bool {
	b, p := Normalize(base), Normalize(path)
	if b == "" || p == "" {
		return false
	}
	win := windowsStyle(b)
	if len(p) < len(b) {
		return false
	}
	if win {
		if !strings.EqualFold(p[:len(b)], b) {
			return false
		}
	} else if p[:len(b)] != b {
		return false
	}
	if len(p) == len(b) {
		return true
	}
	return isSep(b[len(b)-1], win) || isSep(p[len(b)], win)
}

// ToExtendedForm rewrites a Windows path into the \\?\ form that bypasses the
// MAX_PATH limit. Extended and device paths are returned unchanged and UNC
// paths become \\?\UNC\server\share.
func ToExtendedForm(path string) string {
	switch {
	case path == "":
		return path
	case hasPrefixFold(path, extendedPrefix), hasPrefixFold(path, devicePrefix):
		return path
	case strings.HasPrefix(path, uncPrefix):
		return extendedUNC + path[len(uncPrefix):]
	default:
		return extendedPrefix + path
	}
}

func isSep(c byte, win bool) bool {
	return c == '/' || (win && c == '\\')
}

func separator(path string, win bool) byte {
	if !win {
		return '/'
	}
	if strings.IndexByte(path, '\\') >= 0 || strings.IndexByte(path, '/') < 0 {
		return '\\'
	}
	return '/'
}

func lastSep(path string, win bool) int {
	for i := len(path) - 1; i >= 0; i-- {
		if isSep(path[i], win) {
			return i
		}
	}
	return -1
}

// windowsStyle decides whether backslashes act as separators for path.
func windowsStyle(path string) bool {
	if runtime.GOOS == "windows" {
		return true
	}
	return hasDrive(path) || strings.HasPrefix(path, uncPrefix)
}

func hasDrive(path string) bool {
	if len(path) < 2 || path[1] != ':' {
		return false
	}
	c := path[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// rootLen returns the length of the root portion of path, including the
// separator that follows a volume name when present.
func rootLen(path string, win bool) int {
	vol := volumeLen(path, win)
	if vol < len(path) && isSep(path[vol], win) {
		return vol + 1
	}
	return vol
}

func volumeLen(path string, win bool) int {
	if !win {
		return 0
	}
	switch {
	case hasPrefixFold(path, extendedUNC):
		return uncVolumeLen(path, len(extendedUNC))
	case hasPrefixFold(path, extendedPrefix), hasPrefixFold(path, devicePrefix):
		rest := path[len(extendedPrefix):]
		if hasDrive(rest) {
			return len(extendedPrefix) + 2
		}
		return len(extendedPrefix) + componentLen(rest, win)
	case strings.HasPrefix(path, uncPrefix):
		return uncVolumeLen(path, len(uncPrefix))
	case hasDrive(path):
		return 2
	}
	return 0
}

// uncVolumeLen measures "server\share" starting at offset.
func uncVolumeLen(path string, offset int) int {
	n := offset + componentLen(path[offset:], true)
	if n < len(path) {
		n++
		n += componentLen(path[n:], true)
	}
	return n
}

func componentLen(s string, win bool) int {
	for i := 0; i < len(s); i++ {
		if isSep(s[i], win) {
			return i
		}
	}
	return len(s)
}
