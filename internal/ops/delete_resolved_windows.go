//go:build windows

package ops

import (
	"io/fs"
	"os"
	"path/filepath"
)

func deleteResolvedPath(parentPath, baseName string) (uint64, error) {
	target := filepath.Join(parentPath, baseName)
	info, err := os.Lstat(target)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		if err := os.Remove(target); err != nil {
			return 0, err
		}
		if info.Mode().IsRegular() {
			return uint64(info.Size()), nil
		}
		return 0, nil
	}

	// WalkDir does not descend into links or junctions, matching RemoveAll.
	var freed uint64
	_ = filepath.WalkDir(target, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		if fi, err := d.Info(); err == nil && fi.Size() > 0 {
			freed += uint64(fi.Size())
		}
		return nil
	})
	return freed, os.RemoveAll(target)
}
