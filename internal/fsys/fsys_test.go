package fsys

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sadopc/dirpie/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want model.ErrorKind
	}{
		{"nil", nil, model.ErrOther},
		{"permission", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, model.ErrAccessDenied},
		{"not exist", fmt.Errorf("wrap: %w", fs.ErrNotExist), model.ErrPathInvalid},
		{"other", errors.New("disk on fire"), model.ErrOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestMemFSInsertionOrder(t *testing.T) {
	m := NewMemFS().
		AddFile("/r/b.txt", 2).
		AddDir("/r/a").
		AddReparse("/r/link").
		AddOther("/r/fifo")

	got, err := m.ReadDir("/r/")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, DirEntry{Name: "b.txt", Kind: KindFile, Size: 2}, got[0])
	assert.Equal(t, DirEntry{Name: "a", Kind: KindDir}, got[1])
	assert.Equal(t, KindReparse, got[2].Kind)
	assert.Equal(t, KindOther, got[3].Kind)

	root, err := m.ReadDir("/")
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, "r", root[0].Name)
	assert.Equal(t, 2, m.Reads("/r"))
}

func TestMemFSErrors(t *testing.T) {
	m := NewMemFS().AddDir("/r/locked").AddFile("/r/f", 1).FailDir("/r/locked", fs.ErrPermission)

	_, err := m.ReadDir("/r/locked")
	require.Error(t, err)
	assert.Equal(t, model.ErrAccessDenied, Classify(err))

	_, err = m.ReadDir("/r/missing")
	assert.Equal(t, model.ErrPathInvalid, Classify(err))

	_, err = m.ReadDir("/r/f")
	assert.ErrorIs(t, err, fs.ErrInvalid)
}

func TestMemFSHookRunsUnlocked(t *testing.T) {
	m := NewMemFS().AddDir("/r/slow")
	called := false
	m.OnReadDir("/r/slow", func() {
		// Would deadlock if the hook ran under the lock.
		_, _ = m.Stat("/r")
		called = true
	})
	_, err := m.ReadDir("/r/slow")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestMemFSRemove(t *testing.T) {
	m := NewMemFS().AddFile("/r/a/x", 1).AddFile("/r/b", 1)
	m.Remove("/r/a")

	got, err := m.ReadDir("/r")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Name)

	_, err = m.Stat("/r/a/x")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLocalReadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "file.txt"), make([]byte, 123), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Local().ReadDir(dir)
	require.NoError(t, err)

	byName := map[string]DirEntry{}
	for _, e := range got {
		byName[e.Name] = e
	}
	require.Len(t, byName, 2)
	assert.Equal(t, KindFile, byName["file.txt"].Kind)
	assert.EqualValues(t, 123, byName["file.txt"].Size)
	assert.Equal(t, KindDir, byName["sub"].Kind)
}

func TestLocalSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs elevated privileges on Windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data"), make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(dir, "dirlink")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "data"), filepath.Join(dir, "filelink")); err != nil {
		t.Fatal(err)
	}

	got, err := Local().ReadDir(dir)
	require.NoError(t, err)
	byName := map[string]DirEntry{}
	for _, e := range got {
		byName[e.Name] = e
	}
	assert.Equal(t, KindReparse, byName["dirlink"].Kind)
	assert.Equal(t, KindFile, byName["filelink"].Kind)

	st, err := Local().Stat(filepath.Join(dir, "dirlink"))
	require.NoError(t, err)
	assert.Equal(t, KindReparse, st.Kind)
}

func TestLocalReadDirMissing(t *testing.T) {
	_, err := Local().ReadDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, model.ErrPathInvalid, Classify(err))
}
