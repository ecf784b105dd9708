package fsys

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// readDirBatch bounds how many entries are fetched per getdents/FindNextFile round.
const readDirBatch = 1024

type localFS struct{}

// Local returns the FS backed by the host operating system.
func Local() FS {
	return localFS{}
}

// ReadDir lists path in the order the OS returns entries; unlike os.ReadDir
// it does not sort them.
func (localFS) ReadDir(path string) ([]DirEntry, error) {
	f, err := os.Open(osPath(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []DirEntry
	for {
		batch, err := f.ReadDir(readDirBatch)
		for _, d := range batch {
			out = append(out, describe(path, d))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
	}
}

func (localFS) Stat(path string) (DirEntry, error) {
	info, err := os.Lstat(osPath(path))
	if err != nil {
		return DirEntry{}, err
	}
	d := fs.FileInfoToDirEntry(info)
	return describe(filepath.Dir(path), d), nil
}

// describe classifies one OS directory entry found under dir.
func describe(dir string, d fs.DirEntry) DirEntry {
	name := d.Name()
	t := d.Type()

	switch {
	case t&fs.ModeSymlink != 0:
		// A link to a directory is a redirection and is never followed.
		// Links to anything else count their own reported length.
		if target, err := os.Stat(osPath(filepath.Join(dir, name))); err == nil && target.IsDir() {
			return DirEntry{Name: name, Kind: KindReparse}
		}
		info, err := d.Info()
		if err != nil {
			return DirEntry{Name: name, Kind: KindOther, Err: err}
		}
		return DirEntry{Name: name, Kind: KindFile, Size: info.Size()}

	case t.IsDir():
		if isReparseDir(d) {
			return DirEntry{Name: name, Kind: KindReparse}
		}
		return DirEntry{Name: name, Kind: KindDir}

	case t.IsRegular():
		info, err := d.Info()
		if err != nil {
			return DirEntry{Name: name, Kind: KindOther, Err: err}
		}
		return DirEntry{Name: name, Kind: KindFile, Size: info.Size()}

	case t&fs.ModeIrregular != 0 && isReparseDir(d):
		return DirEntry{Name: name, Kind: KindReparse}

	default:
		return DirEntry{Name: name, Kind: KindOther}
	}
}
