package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sadopc/dirpie/internal/fsys"
	"github.com/sadopc/dirpie/internal/model"
)

func newEngine(t *testing.T, m fsys.FS, mutate func(*Options)) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.Logger = zaptest.NewLogger(t)
	if mutate != nil {
		mutate(&opts)
	}
	e := New(m, opts)
	e.Start()
	t.Cleanup(e.Shutdown)
	return e
}

func settle(t *testing.T, e *Engine) model.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := e.WaitSettled(ctx)
	require.NoError(t, err)
	return snap
}

func TestEngineListsFilesAndSizesDirectories(t *testing.T) {
	m := fsys.NewMemFS().
		AddFile("/r/A", 100).
		AddFile("/r/B", 5120).
		AddFile("/r/C/D", 10485760)
	e := newEngine(t, m, nil)

	require.NoError(t, e.StartAnalyze("/r"))
	snap := settle(t, e)

	require.Len(t, snap.Entries, 3)
	assert.EqualValues(t, 10490980, snap.Sum)
	assert.Equal(t, 3, snap.Known)
	assert.Equal(t, "/r", snap.Dir)
	assert.Equal(t, "C", snap.Entries[0].Name, "largest first")
	assert.Equal(t, "A", snap.Entries[2].Name)

	var pct float64
	for i := range snap.Entries {
		pct += snap.Percent(i)
	}
	assert.InDelta(t, 100, pct, 0.001)

	// Files are exact straight from the listing.
	a := snap.Entries[snap.Find("/r/A")]
	assert.True(t, a.Exact)
	assert.False(t, a.IsDir)

	assert.Equal(t, model.Progress{Total: 1, Done: 1}, snap.Progress)
}

func TestEngineRefinesCappedEstimate(t *testing.T) {
	m := fsys.NewMemFS()
	for i := 1; i <= 5; i++ {
		m.AddFile(fmt.Sprintf("/r/sub/f%d", i), 300)
	}
	e := newEngine(t, m, func(o *Options) { o.CapBytes = 1000 })

	require.NoError(t, e.StartAnalyze("/r"))
	snap := settle(t, e)

	require.Len(t, snap.Entries, 1)
	sub := snap.Entries[0]
	assert.EqualValues(t, 1500, sub.Bytes)
	assert.True(t, sub.Exact)
	assert.False(t, sub.Incomplete)
	assert.Equal(t, model.Progress{Total: 2, Done: 2, ExactTotal: 1, ExactDone: 1}, snap.Progress)

	info, ok := e.Lookup("/r/sub")
	require.True(t, ok)
	assert.True(t, info.Terminal())
}

func TestEngineInaccessibleSubdirectory(t *testing.T) {
	m := fsys.NewMemFS().
		AddFile("/r/sub/ok", 40).
		AddFile("/r/sub/locked/x", 1000).
		AddFile("/r/top", 60).
		FailDir("/r/sub/locked", fs.ErrPermission)
	e := newEngine(t, m, nil)

	require.NoError(t, e.StartAnalyze("/r"))
	snap := settle(t, e)

	sub := snap.Entries[snap.Find("/r/sub")]
	assert.EqualValues(t, 40, sub.Bytes)
	assert.True(t, sub.Incomplete)
	assert.EqualValues(t, 1, sub.Stats.SkippedAccess)
	assert.EqualValues(t, 100, snap.Sum)
	assert.EqualValues(t, 1, snap.Totals.SkippedAccess)
	assert.True(t, snap.Totals.Incomplete)
	// The incomplete capped walk was refined by an exact one.
	assert.EqualValues(t, 1, snap.Progress.ExactDone)
	assert.True(t, sub.Exact)
}

func TestEngineAbandonsStaleWork(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	m := fsys.NewMemFS().
		AddFile("/old/big/file", 1<<20).
		AddFile("/new/small/file", 10)
	m.OnReadDir("/old/big", func() {
		once.Do(func() { close(entered) })
		<-release
	})
	e := newEngine(t, m, nil)

	require.NoError(t, e.StartAnalyze("/old"))
	<-entered

	require.NoError(t, e.StartAnalyze("/new"))
	snap := settle(t, e)
	assert.Equal(t, model.Progress{Total: 1, Done: 1}, snap.Progress)

	close(release)
	e.Shutdown()

	_, ok := e.Lookup("/old/big")
	assert.False(t, ok, "abandoned walk wrote to the cache")
	assert.Equal(t, model.Progress{Total: 1, Done: 1}, e.Snapshot().Progress)
}

func TestEngineSkipsFreshCachedDirectories(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	m := fsys.NewMemFS().AddFile("/r/sub/f", 7)
	e := newEngine(t, m, func(o *Options) { o.Now = clock })

	require.NoError(t, e.StartAnalyze("/r"))
	settle(t, e)
	assert.Equal(t, 1, m.Reads("/r/sub"))

	require.NoError(t, e.StartAnalyze("/r"))
	snap := settle(t, e)
	assert.Equal(t, 1, m.Reads("/r/sub"), "fresh entry was walked again")
	assert.Zero(t, snap.Progress.Total)
	assert.EqualValues(t, 7, snap.Entries[0].Bytes)

	mu.Lock()
	now = now.Add(31 * time.Second)
	mu.Unlock()

	require.NoError(t, e.StartAnalyze("/r"))
	settle(t, e)
	assert.Equal(t, 2, m.Reads("/r/sub"))
}

// stepClock is a settable clock for cache freshness.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestEngineExpiredExactSizeFollowsShrink(t *testing.T) {
	m := fsys.NewMemFS()
	for i := 1; i <= 5; i++ {
		m.AddFile(fmt.Sprintf("/r/sub/f%d", i), 300)
	}
	clock := newStepClock()
	e := newEngine(t, m, func(o *Options) {
		o.CapBytes = 1000
		o.Now = clock.Now
	})

	require.NoError(t, e.StartAnalyze("/r"))
	snap := settle(t, e)
	require.EqualValues(t, 1500, snap.Entries[0].Bytes)
	require.True(t, snap.Entries[0].Exact)

	for i := 2; i <= 5; i++ {
		m.Remove(fmt.Sprintf("/r/sub/f%d", i))
	}
	clock.Advance(time.Minute)

	require.NoError(t, e.StartAnalyze("/r"))
	snap = settle(t, e)
	assert.EqualValues(t, 300, snap.Entries[0].Bytes)
	info, ok := e.Lookup("/r/sub")
	require.True(t, ok)
	assert.EqualValues(t, 300, info.Bytes)
	reads := m.Reads("/r/sub")

	// The new estimate is fresh, so the next visit does not walk again.
	require.NoError(t, e.StartAnalyze("/r"))
	snap = settle(t, e)
	assert.Equal(t, reads, m.Reads("/r/sub"))
	assert.EqualValues(t, 300, snap.Entries[0].Bytes)
}

func TestEngineExpiredExactSizeFollowsGrowth(t *testing.T) {
	m := fsys.NewMemFS().AddFile("/r/sub/f", 1200)
	clock := newStepClock()
	e := newEngine(t, m, func(o *Options) {
		o.CapBytes = 1000
		o.Now = clock.Now
	})

	require.NoError(t, e.StartAnalyze("/r"))
	settle(t, e)
	info, ok := e.Lookup("/r/sub")
	require.True(t, ok)
	require.True(t, info.Terminal())

	m.AddFile("/r/sub/g", 3000)
	clock.Advance(time.Minute)

	require.NoError(t, e.StartAnalyze("/r"))
	snap := settle(t, e)
	sub := snap.Entries[0]
	assert.EqualValues(t, 4200, sub.Bytes)
	assert.True(t, sub.Exact, "the capped lower bound was refined")
	assert.EqualValues(t, 1, snap.Progress.ExactDone)
}

func TestEngineRescanIgnoresCache(t *testing.T) {
	m := fsys.NewMemFS().AddFile("/r/sub/f", 7)
	e := newEngine(t, m, nil)

	require.NoError(t, e.StartAnalyze("/r"))
	settle(t, e)

	m.AddFile("/r/sub/g", 3)
	require.NoError(t, e.Rescan())
	snap := settle(t, e)
	assert.EqualValues(t, 10, snap.Entries[0].Bytes)
	assert.Equal(t, 2, m.Reads("/r/sub"))
}

func TestEngineClearsCacheForUnrelatedDirectory(t *testing.T) {
	m := fsys.NewMemFS().AddFile("/a/sub/f", 1).AddFile("/b/sub/f", 1)
	e := newEngine(t, m, nil)

	require.NoError(t, e.StartAnalyze("/a"))
	settle(t, e)
	require.NoError(t, e.StartAnalyze("/a/sub"))
	settle(t, e)
	_, ok := e.Lookup("/a/sub")
	assert.True(t, ok, "navigating below keeps the cache")

	require.NoError(t, e.StartAnalyze("/b"))
	settle(t, e)
	_, ok = e.Lookup("/a/sub")
	assert.False(t, ok)
}

func TestEngineClearsCacheForAncestor(t *testing.T) {
	m := fsys.NewMemFS().AddFile("/a/sub/deep/f", 1)
	e := newEngine(t, m, nil)

	require.NoError(t, e.StartAnalyze("/a/sub"))
	settle(t, e)
	_, ok := e.Lookup("/a/sub/deep")
	require.True(t, ok)

	require.NoError(t, e.StartAnalyze("/a/sub"))
	settle(t, e)
	_, ok = e.Lookup("/a/sub/deep")
	assert.True(t, ok, "re-analyzing the same directory keeps the cache")

	require.NoError(t, e.StartAnalyze("/a"))
	settle(t, e)
	_, ok = e.Lookup("/a/sub/deep")
	assert.False(t, ok)
	_, ok = e.Lookup("/a/sub")
	assert.True(t, ok, "the new view's own children are sized again")
}

func TestEngineRootEnumerationFailure(t *testing.T) {
	m := fsys.NewMemFS().AddDir("/r")
	e := newEngine(t, m, nil)

	err := e.StartAnalyze("/missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	snap := e.Snapshot()
	assert.Empty(t, snap.Entries)
	assert.Contains(t, snap.Status, "enumerate failed")
	assert.Equal(t, model.StateSettled, snap.State)
}

func TestEngineListsReparseChildrenWithoutJobs(t *testing.T) {
	m := fsys.NewMemFS().AddReparse("/r/link").AddFile("/r/f", 5)
	e := newEngine(t, m, nil)

	require.NoError(t, e.StartAnalyze("/r"))
	snap := settle(t, e)

	link := snap.Entries[snap.Find("/r/link")]
	assert.True(t, link.Incomplete)
	assert.EqualValues(t, 1, link.Stats.SkippedReparse)
	assert.Zero(t, snap.Progress.Total)
}

func TestEngineRefreshesCarryGeneration(t *testing.T) {
	m := fsys.NewMemFS().AddFile("/r/sub/f", 1)
	e := newEngine(t, m, nil)

	require.NoError(t, e.StartAnalyze("/r"))
	gen := e.Generation()
	settle(t, e)

	select {
	case got := <-e.Refreshes():
		assert.Equal(t, gen, got)
	case <-time.After(time.Second):
		t.Fatal("no refresh notification")
	}
}

func TestEngineShutdown(t *testing.T) {
	e := newEngine(t, fsys.NewMemFS().AddDir("/r"), nil)
	e.Shutdown()
	e.Shutdown()

	select {
	case <-e.Done():
	default:
		t.Fatal("Done not closed after Shutdown")
	}
	assert.ErrorIs(t, e.StartAnalyze("/r"), ErrClosed)
}

func TestEngineIdleSnapshot(t *testing.T) {
	e := New(fsys.NewMemFS(), Options{})
	defer e.Shutdown()
	snap := e.Snapshot()
	assert.Equal(t, model.StateIdle, snap.State)
	assert.Empty(t, snap.Dir)
}

type countingObserver struct {
	nopObserver
	mu        sync.Mutex
	enqueued  map[model.JobKind]int
	completed map[model.JobKind]int
}

func (o *countingObserver) JobEnqueued(k model.JobKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enqueued[k]++
}

func (o *countingObserver) JobCompleted(k model.JobKind, _ time.Duration, _ uint64, _ model.WalkStats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed[k]++
}

func TestEngineReportsToObserver(t *testing.T) {
	obs := &countingObserver{enqueued: map[model.JobKind]int{}, completed: map[model.JobKind]int{}}
	m := fsys.NewMemFS().AddFile("/r/sub/a", 600).AddFile("/r/sub/b", 600)
	e := newEngine(t, m, func(o *Options) {
		o.CapBytes = 1000
		o.Observer = obs
	})

	require.NoError(t, e.StartAnalyze("/r"))
	settle(t, e)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 1, obs.enqueued[model.JobCapped])
	assert.Equal(t, 1, obs.enqueued[model.JobExact])
	assert.Equal(t, 1, obs.completed[model.JobExact])
}
