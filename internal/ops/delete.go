package ops

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sadopc/dirpie/internal/pathops"
)

// Delete removes the file or directory at path, which must lie strictly
// inside rootPath, and returns the logical bytes of the regular files it
// removed. Symlinks are removed, never followed: the parent is resolved and
// checked against the resolved root before anything is touched.
func Delete(path string, rootPath string) (uint64, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return 0, fmt.Errorf("cannot resolve root %s: %w", rootPath, err)
	}
	if !pathops.Within(absRoot, absPath) || filepath.Clean(absPath) == filepath.Clean(absRoot) {
		return 0, fmt.Errorf("refusing to delete %s: outside scan root %s", absPath, absRoot)
	}

	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return 0, fmt.Errorf("cannot resolve root %s: %w", absRoot, err)
	}
	realParent, err := filepath.EvalSymlinks(filepath.Dir(absPath))
	if err != nil {
		return 0, fmt.Errorf("cannot resolve parent of %s: %w", absPath, err)
	}
	if !pathops.Within(realRoot, realParent) {
		return 0, fmt.Errorf("refusing to delete %s: parent resolves outside scan root %s", absPath, realRoot)
	}

	base := filepath.Base(absPath)
	if _, err := os.Lstat(filepath.Join(realParent, base)); err != nil {
		return 0, fmt.Errorf("cannot access %s: %w", absPath, err)
	}
	freed, err := deleteResolvedPath(realParent, base)
	if err != nil {
		return freed, fmt.Errorf("cannot delete %s: %w", absPath, err)
	}
	return freed, nil
}
