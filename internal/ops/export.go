package ops

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sadopc/dirpie/internal/model"
)

// ncdu-compatible JSON format. Child directories are written as one-element
// arrays because only their aggregate size is known:
// [1, 0, {"progname":"dirpie","progver":"1.0","timestamp":1234567890},
//   [{"name":"/path","asize":123,"exact":true},
//     {"name":"file1","asize":10,"exact":true},
//     [{"name":"subdir","asize":30}]
//   ]
// ]

type ncduHeader struct {
	Progname   string `json:"progname"`
	Progver    string `json:"progver"`
	Timestamp  int64  `json:"timestamp"`
	Generation uint64 `json:"generation,omitempty"`
	State      string `json:"state,omitempty"`
}

type ncduEntry struct {
	Name    string `json:"name"`
	Asize   uint64 `json:"asize"`
	Err     bool   `json:"read_error,omitempty"`
	Symlink bool   `json:"symlink,omitempty"`
	Exact   bool   `json:"exact,omitempty"`
	Pending bool   `json:"pending,omitempty"`
	Skipped uint32 `json:"skipped,omitempty"`
}

// errWriter keeps the first write error; later writes are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) WriteString(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}

func (ew *errWriter) writeJSON(v any) {
	if ew.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		ew.err = err
		return
	}
	_, ew.err = ew.w.Write(data)
}

// ExportJSON writes snap in ncdu-compatible JSON. path "-" means stdout.
// File targets are written to a temp file and renamed on success, so a
// partial file is never left behind.
func ExportJSON(snap model.Snapshot, path string, version string) (retErr error) {
	if path == "-" {
		return exportToWriter(snap, os.Stdout, version, time.Now())
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dirpie-export-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create export file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if retErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := exportToWriter(snap, tmp, version, time.Now()); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		// On Windows, Rename cannot replace an existing destination.
		if runtime.GOOS != "windows" {
			return err
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("cannot replace export file %s: %w", path, err)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return err
		}
	}
	return nil
}

func exportToWriter(snap model.Snapshot, out io.Writer, version string, now time.Time) error {
	bw := bufio.NewWriterSize(out, 64*1024)
	ew := &errWriter{w: bw}

	if version == "" {
		version = "dev"
	}
	ew.WriteString("[1, 0, ")
	ew.writeJSON(ncduHeader{
		Progname:   "dirpie",
		Progver:    version,
		Timestamp:  now.Unix(),
		Generation: snap.Generation,
		State:      snap.State.String(),
	})
	ew.WriteString(",\n[")

	ew.writeJSON(ncduEntry{
		Name:    snap.Dir,
		Asize:   snap.Sum,
		Err:     snap.Totals.Incomplete || snap.Status != "",
		Exact:   len(snap.Entries) > 0 && snap.Exact == len(snap.Entries) && !snap.Totals.Incomplete,
		Skipped: snap.Totals.Skipped(),
	})

	for _, e := range snap.Entries {
		ew.WriteString(",\n")
		entry := ncduEntry{
			Name:    e.Name,
			Asize:   e.Bytes,
			Err:     e.Incomplete,
			Exact:   e.HasValue && !e.Approx(),
			Pending: !e.HasValue,
			Skipped: e.Stats.Skipped(),
		}
		if e.IsDir {
			entry.Symlink = e.Reparse
			ew.WriteString("[")
			ew.writeJSON(entry)
			ew.WriteString("]")
			continue
		}
		ew.writeJSON(entry)
	}

	ew.WriteString("]\n]\n")
	if ew.err != nil {
		return ew.err
	}
	return bw.Flush()
}
