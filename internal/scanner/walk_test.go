package scanner

import (
	"fmt"
	"io/fs"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/dirpie/internal/fsys"
)

func liveToken() Token {
	live := &atomic.Uint64{}
	live.Store(1)
	return NewToken(1, live, &atomic.Bool{})
}

func TestWalkExactSumsAllFiles(t *testing.T) {
	m := fsys.NewMemFS().
		AddFile("/r/A", 100).
		AddFile("/r/B", 5120).
		AddFile("/r/C/D", 10485760)

	total, st := Walk(m, "/r", 0, liveToken())
	assert.EqualValues(t, 10490980, total)
	assert.False(t, st.Incomplete)
	assert.False(t, st.ReachedCap)
	assert.Zero(t, st.Skipped())
}

func TestWalkCapStopsAtThreshold(t *testing.T) {
	m := fsys.NewMemFS()
	for i := 1; i <= 5; i++ {
		m.AddFile(fmt.Sprintf("/r/f%d", i), 300)
	}

	total, st := Walk(m, "/r", 1000, liveToken())
	assert.EqualValues(t, 1200, total)
	assert.True(t, st.ReachedCap)
	assert.False(t, st.Incomplete)

	total, st = Walk(m, "/r", 0, liveToken())
	assert.EqualValues(t, 1500, total)
	assert.False(t, st.ReachedCap)
}

func TestWalkInaccessibleDirectory(t *testing.T) {
	m := fsys.NewMemFS().
		AddFile("/r/ok/a", 10).
		AddFile("/r/locked/secret", 999).
		AddFile("/r/b", 5).
		FailDir("/r/locked", fs.ErrPermission)

	total, st := Walk(m, "/r", 0, liveToken())
	assert.EqualValues(t, 15, total)
	assert.EqualValues(t, 1, st.SkippedAccess)
	assert.True(t, st.Incomplete)
}

func TestWalkSkipsReparsePoints(t *testing.T) {
	m := fsys.NewMemFS().
		AddFile("/r/a", 7).
		AddReparse("/r/loop").
		AddOther("/r/dev")

	total, st := Walk(m, "/r", 0, liveToken())
	assert.EqualValues(t, 7, total)
	assert.EqualValues(t, 1, st.SkippedReparse)
	assert.True(t, st.Incomplete)
}

func TestWalkRecordsEntryErrors(t *testing.T) {
	m := &entryErrFS{}
	total, st := Walk(m, "/r", 0, liveToken())
	assert.EqualValues(t, 4, total)
	assert.EqualValues(t, 1, st.SkippedPath)
	assert.True(t, st.Incomplete)
}

type entryErrFS struct{}

func (entryErrFS) ReadDir(string) ([]fsys.DirEntry, error) {
	return []fsys.DirEntry{
		{Name: "gone", Kind: fsys.KindFile, Err: fs.ErrNotExist},
		{Name: "ok", Kind: fsys.KindFile, Size: 4},
	}, nil
}

func (entryErrFS) Stat(string) (fsys.DirEntry, error) { return fsys.DirEntry{}, nil }

func TestWalkStopsWhenGenerationMoves(t *testing.T) {
	live := &atomic.Uint64{}
	live.Store(1)
	tok := NewToken(1, live, &atomic.Bool{})

	m := fsys.NewMemFS().
		AddFile("/r/a/x", 10).
		AddFile("/r/b/y", 20)
	// Listing /r/b happens first (stack is LIFO); move the generation there.
	m.OnReadDir("/r/b", func() { live.Add(1) })

	total, _ := Walk(m, "/r", 0, tok)
	assert.Zero(t, total)
	assert.Zero(t, m.Reads("/r/a"), "walk continued after cancellation")
}

func TestWalkStopsOnShutdown(t *testing.T) {
	quit := &atomic.Bool{}
	quit.Store(true)
	m := fsys.NewMemFS().AddFile("/r/a", 1)

	total, _ := Walk(m, "/r", 0, NewToken(0, nil, quit))
	assert.Zero(t, total)
	assert.Zero(t, m.Reads("/r"))
}

// Capped totals never exceed the exact total, and a walk that reached the
// cap returned at least the cap.
func TestWalkCapIsLowerBound(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		m := fsys.NewMemFS().AddDir("/r")
		dirs := []string{"/r"}
		for i := 0; i < 40; i++ {
			parent := dirs[rng.Intn(len(dirs))]
			name := fmt.Sprintf("%s/n%d", parent, i)
			if rng.Intn(4) == 0 {
				m.AddDir(name)
				dirs = append(dirs, name)
			} else {
				m.AddFile(name, int64(rng.Intn(1000)))
			}
		}

		exact, st := Walk(m, "/r", 0, liveToken())
		require.False(t, st.ReachedCap)

		capBytes := uint64(rng.Intn(20000) + 1)
		capped, cst := Walk(m, "/r", capBytes, liveToken())
		assert.LessOrEqual(t, capped, exact)
		if cst.ReachedCap {
			assert.GreaterOrEqual(t, capped, capBytes)
		} else {
			assert.Equal(t, exact, capped)
		}
	}
}
