// Package fsys defines the filesystem interface the scanner walks, together
// with the local OS implementation and an in-memory one.
package fsys

import (
	"errors"
	"io/fs"

	"github.com/sadopc/dirpie/internal/model"
)

// Kind classifies a directory entry for size aggregation.
type Kind uint8

const (
	KindFile Kind = iota
	KindDir
	// KindReparse is a directory reached through a symlink, junction or
	// other redirection. It is never descended into.
	KindReparse
	// KindOther covers devices, sockets and pipes. It carries no size.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindReparse:
		return "reparse"
	default:
		return "other"
	}
}

// DirEntry is one enumerated child of a directory.
type DirEntry struct {
	Name string
	Kind Kind
	// Size is the reported (logical) length for files.
	Size int64
	// Err is set when the entry was listed but its metadata could not be read.
	Err error
}

// FS is the filesystem collaborator consumed by the scanner.
type FS interface {
	// ReadDir lists one level of path, excluding "." and "..". It may return
	// the entries read so far together with a non-nil error.
	ReadDir(path string) ([]DirEntry, error)
	// Stat describes path itself.
	Stat(path string) (DirEntry, error)
}

// Classify maps an enumeration error onto the walk error taxonomy.
func Classify(err error) model.ErrorKind {
	switch {
	case err == nil:
		return model.ErrOther
	case errors.Is(err, fs.ErrPermission):
		return model.ErrAccessDenied
	case errors.Is(err, fs.ErrNotExist), isPathError(err):
		return model.ErrPathInvalid
	default:
		return model.ErrOther
	}
}
