//go:build !windows

package ops

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

func deleteResolvedPath(parentPath, baseName string) (uint64, error) {
	parentFD, err := unix.Open(parentPath, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, err
	}
	defer unix.Close(parentFD)
	return removeAt(parentFD, baseName)
}

// removeAt deletes name relative to dirFD without following symlinks and
// returns the logical size of the regular files it removed.
func removeAt(dirFD int, name string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Fstatat(dirFD, name, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return 0, notExist(err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		if err := unix.Unlinkat(dirFD, name, 0); err != nil {
			return 0, notExist(err)
		}
		if st.Mode&unix.S_IFMT == unix.S_IFREG && st.Size > 0 {
			return uint64(st.Size), nil
		}
		return 0, nil
	}

	// O_NOFOLLOW fails if name was swapped for a symlink after the stat.
	fd, err := unix.Openat(dirFD, name, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, notExist(err)
	}
	dir := os.NewFile(uintptr(fd), name)
	children, err := dir.ReadDir(-1)
	if err != nil {
		_ = dir.Close()
		return 0, err
	}

	var freed uint64
	for _, c := range children {
		n, err := removeAt(fd, c.Name())
		freed += n
		if err != nil {
			_ = dir.Close()
			return freed, err
		}
	}
	if err := dir.Close(); err != nil {
		return freed, err
	}
	if err := unix.Unlinkat(dirFD, name, unix.AT_REMOVEDIR); err != nil {
		return freed, notExist(err)
	}
	return freed, nil
}

func notExist(err error) error {
	if errors.Is(err, unix.ENOENT) {
		return fs.ErrNotExist
	}
	return err
}
