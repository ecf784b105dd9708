// Package scanner computes directory sizes in the background. An Engine lists
// the viewed directory, sizes each subdirectory with a fast capped walk on a
// small worker pool, refines incomplete estimates with exact walks and keeps
// results in a short-lived cache.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sadopc/dirpie/internal/fsys"
	"github.com/sadopc/dirpie/internal/model"
	"github.com/sadopc/dirpie/internal/pathops"
)

// DefaultCapBytes is the byte cap applied to the first, estimating walk.
const DefaultCapBytes uint64 = 5 << 30

// ErrClosed is returned by StartAnalyze after Shutdown.
var ErrClosed = errors.New("scanner: engine shut down")

// Stage names where a stale job was dropped.
const (
	StageBeforeWalk = "before"
	StageAfterWalk  = "after"
)

// Observer receives engine events, typically for metrics.
type Observer interface {
	JobEnqueued(kind model.JobKind)
	JobStale(kind model.JobKind, stage string)
	JobCompleted(kind model.JobKind, elapsed time.Duration, bytes uint64, stats model.WalkStats)
	CacheSize(n int)
	GenerationChanged(gen uint64)
}

type nopObserver struct{}

func (nopObserver) JobEnqueued(model.JobKind) {}
func (nopObserver) JobStale(model.JobKind, string) {}
func (nopObserver) JobCompleted(model.JobKind, time.Duration, uint64, model.WalkStats) {}
func (nopObserver) CacheSize(int) {}
func (nopObserver) GenerationChanged(uint64) {}

// Options configures an Engine.
type Options struct {
	// Workers is the number of concurrent walks.
	Workers int
	// CapBytes bounds the estimating walk. Zero makes estimates uncapped.
	CapBytes uint64
	// RefreshInterval is how long a cached size suppresses a new walk.
	RefreshInterval time.Duration
	Logger          *zap.Logger
	Observer        Observer
	// Now overrides the clock used for cache freshness.
	Now func() time.Time
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Workers:         DefaultWorkers,
		CapBytes:        DefaultCapBytes,
		RefreshInterval: DefaultRefreshInterval,
	}
}

// Engine owns the viewed directory, its entries, the size cache, the job
// queue and the worker pool.
type Engine struct {
	fs   fsys.FS
	opts Options
	log  *zap.Logger
	obs  Observer
	now  func() time.Time

	gen   atomic.Uint64
	epoch atomic.Uint64
	quit  atomic.Bool

	queue   *Queue
	tracker *Tracker
	pool    *Pool

	// mu guards the cache and the view below it. It is never held across
	// filesystem calls.
	mu          sync.Mutex
	cache       *Cache
	dir         string
	entries     []model.Entry
	status      string
	enumerating bool

	refresh   chan uint64
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// New returns an engine reading from fs. Call Start before StartAnalyze.
func New(fs fsys.FS, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Engine{
		fs:      fs,
		opts:    opts,
		log:     log,
		obs:     obs,
		now:     opts.Now,
		queue:   NewQueue(),
		tracker: NewTracker(),
		cache:   NewCache(opts.RefreshInterval, opts.Now),
		refresh: make(chan uint64, 1),
		done:    make(chan struct{}),
	}
}

// Start launches the worker pool. It is safe to call more than once.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		e.pool = StartPool(e.opts.Workers, e.worker)
		e.log.Debug("engine started", zap.Int("workers", e.opts.Workers), zap.Uint64("cap_bytes", e.opts.CapBytes))
	})
}

// Shutdown stops the workers and waits for them. In-flight walks are
// abandoned without touching the cache. It is idempotent.
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		e.quit.Store(true)
		e.mu.Unlock()

		e.queue.Close()
		e.startOnce.Do(func() {})
		if e.pool != nil {
			if err := e.pool.Wait(); err != nil {
				e.log.Warn("worker exited with error", zap.Error(err))
			}
		}
		close(e.done)
		e.log.Debug("engine stopped")
	})
}

// Done is closed once Shutdown has joined the workers.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Refreshes delivers the generation of every state change. Notifications
// coalesce; a slow reader sees the latest one.
func (e *Engine) Refreshes() <-chan uint64 { return e.refresh }

// Generation returns the live generation.
func (e *Engine) Generation() uint64 { return e.gen.Load() }

// CurrentDir returns the directory being viewed.
func (e *Engine) CurrentDir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dir
}

// StartAnalyze abandons all work for the previous view and starts sizing the
// immediate children of dir. Files get their size at once; each subdirectory
// without a fresh cached size gets a capped job. A directory that cannot be
// listed yields an empty view with a status message and an error.
//
// The cache survives only when dir is the current directory or lies below
// it; moving to an ancestor or an unrelated directory clears it.
func (e *Engine) StartAnalyze(dir string) error {
	dir = pathops.Normalize(dir)

	e.mu.Lock()
	if e.quit.Load() {
		e.mu.Unlock()
		return ErrClosed
	}
	gen := e.gen.Add(1)
	epoch := e.epoch.Add(1)
	e.tracker.Reset(epoch)
	dropped := e.queue.Clear()
	if e.dir != "" && !pathops.Within(e.dir, dir) {
		e.cache.Clear()
		e.obs.CacheSize(0)
	}
	e.dir = dir
	e.entries = nil
	e.status = ""
	e.enumerating = true
	e.mu.Unlock()

	e.obs.GenerationChanged(gen)
	e.log.Debug("analyze", zap.String("dir", dir), zap.Uint64("gen", gen), zap.Int("dropped", dropped))
	e.notify(gen)

	children, err := e.fs.ReadDir(dir)
	if err != nil && len(children) == 0 {
		e.log.Warn("enumerate failed", zap.String("dir", dir), zap.Error(err))
		e.mu.Lock()
		if e.gen.Load() == gen {
			e.status = "enumerate failed: " + err.Error()
			e.enumerating = false
		}
		e.mu.Unlock()
		e.notify(gen)
		return fmt.Errorf("enumerate %s: %w", dir, err)
	}
	if err != nil {
		e.log.Warn("enumerate incomplete", zap.String("dir", dir), zap.Error(err))
	}

	entries := make([]model.Entry, 0, len(children))
	for _, c := range children {
		entries = append(entries, entryFor(dir, c))
	}

	e.mu.Lock()
	if e.gen.Load() != gen {
		// A newer StartAnalyze took over while we were listing.
		e.mu.Unlock()
		return nil
	}
	e.entries = entries
	if err != nil {
		e.status = "listing incomplete: " + err.Error()
	}
	for _, en := range entries {
		if !en.IsDir || en.HasValue {
			continue
		}
		if info, ok := e.cache.Get(en.Path); ok && e.cache.IsFresh(info) {
			continue
		}
		e.enqueue(model.Job{Generation: gen, Epoch: epoch, Path: en.Path, Kind: model.JobCapped})
	}
	e.enumerating = false
	e.mu.Unlock()

	e.notify(gen)
	return nil
}

// Rescan drops the cached sizes of the current children and analyzes the
// current directory again.
func (e *Engine) Rescan() error {
	e.mu.Lock()
	dir := e.dir
	for _, en := range e.entries {
		e.cache.Invalidate(en.Path)
	}
	e.obs.CacheSize(e.cache.Len())
	e.mu.Unlock()
	if dir == "" {
		return nil
	}
	return e.StartAnalyze(dir)
}

// Invalidate forgets the cached size of path.
func (e *Engine) Invalidate(path string) {
	e.mu.Lock()
	e.cache.Invalidate(path)
	n := e.cache.Len()
	e.mu.Unlock()
	e.obs.CacheSize(n)
}

// Lookup returns the cached size of path.
func (e *Engine) Lookup(path string) (model.SizeInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Get(path)
}

// Snapshot folds cached sizes into the current entries, sorts them by size
// and returns a copy for rendering.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := model.Snapshot{
		Generation: e.gen.Load(),
		Dir:        e.dir,
		Status:     e.status,
		Progress:   e.tracker.Snapshot(),
	}

	for i := range e.entries {
		en := &e.entries[i]
		if en.IsDir {
			if info, ok := e.cache.Get(en.Path); ok {
				en.Apply(info)
			}
		}
		if en.HasValue {
			snap.Sum += en.Bytes
			snap.Known++
			if !en.Approx() {
				snap.Exact++
			}
		}
		snap.Totals.Add(en.Stats)
	}

	model.SortEntries(e.entries, model.DefaultSort())
	snap.Entries = append([]model.Entry(nil), e.entries...)

	switch {
	case e.enumerating:
		snap.State = model.StateEnumerating
	case e.dir == "":
		snap.State = model.StateIdle
	case snap.Progress.Running():
		snap.State = model.StateScanning
	default:
		snap.State = model.StateSettled
	}
	return snap
}

// WaitSettled polls until the current view has no work left or ctx ends.
func (e *Engine) WaitSettled(ctx context.Context) (model.Snapshot, error) {
	t := time.NewTicker(20 * time.Millisecond)
	defer t.Stop()
	for {
		snap := e.Snapshot()
		if snap.State == model.StateSettled {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-e.done:
			return snap, ErrClosed
		case <-t.C:
		}
	}
}

// enqueue must be called with e.mu held.
func (e *Engine) enqueue(job model.Job) {
	e.tracker.Enqueued(job)
	e.queue.Push(job)
	e.obs.JobEnqueued(job.Kind)
	e.log.Debug("job enqueued",
		zap.String("path", job.Path),
		zap.Stringer("kind", job.Kind),
		zap.Uint64("gen", job.Generation))
}

func (e *Engine) worker(id int) error {
	for {
		job, ok := e.queue.Pop()
		if !ok || e.quit.Load() {
			return nil
		}
		e.run(job)
	}
}

func (e *Engine) run(job model.Job) {
	e.tracker.Started(job)
	tok := NewToken(job.Generation, &e.gen, &e.quit)

	if tok.Cancelled() {
		e.drop(job, StageBeforeWalk)
		return
	}

	capBytes := uint64(0)
	if job.Kind == model.JobCapped {
		capBytes = e.opts.CapBytes
	}
	start := time.Now()
	bytes, stats := Walk(e.fs, job.Path, capBytes, tok)
	elapsed := time.Since(start)

	if tok.Cancelled() {
		e.drop(job, StageAfterWalk)
		return
	}

	info := model.SizeInfo{
		Bytes:      bytes,
		Exact:      job.Kind == model.JobExact && !stats.ReachedCap,
		Incomplete: stats.Incomplete,
		Stats:      stats,
		Tick:       e.now(),
	}

	refine := job.Kind == model.JobCapped && (stats.ReachedCap || stats.Incomplete)

	e.mu.Lock()
	stored := false
	// Checked again under the lock: StartAnalyze advances the generation
	// while holding it.
	if e.gen.Load() == job.Generation && !e.quit.Load() {
		stored = e.cache.Put(job.Path, info)
		if refine {
			e.enqueue(model.Job{Generation: job.Generation, Epoch: job.Epoch, Path: job.Path, Kind: model.JobExact})
		}
	}
	n := e.cache.Len()
	e.mu.Unlock()

	e.obs.JobCompleted(job.Kind, elapsed, bytes, stats)
	e.obs.CacheSize(n)
	e.log.Debug("job done",
		zap.String("path", job.Path),
		zap.Stringer("kind", job.Kind),
		zap.Uint64("bytes", bytes),
		zap.Bool("stored", stored),
		zap.Bool("reached_cap", stats.ReachedCap),
		zap.Uint32("skipped", stats.Skipped()),
		zap.Duration("elapsed", elapsed))

	e.tracker.Finished(job)
	e.notify(job.Generation)
}

func (e *Engine) drop(job model.Job, stage string) {
	e.obs.JobStale(job.Kind, stage)
	e.log.Debug("stale job dropped",
		zap.String("path", job.Path),
		zap.Stringer("kind", job.Kind),
		zap.Uint64("gen", job.Generation),
		zap.String("stage", stage))
	e.tracker.Finished(job)
	e.notify(job.Generation)
}

// notify never blocks: an unread notification is replaced by the newer one.
func (e *Engine) notify(gen uint64) {
	for {
		select {
		case e.refresh <- gen:
			return
		default:
		}
		select {
		case <-e.refresh:
		default:
		}
	}
}

func entryFor(dir string, c fsys.DirEntry) model.Entry {
	en := model.Entry{Name: c.Name, Path: pathops.Join(dir, c.Name)}
	switch {
	case c.Err != nil:
		en.HasValue = true
		en.Incomplete = true
		en.Stats.Record(fsys.Classify(c.Err))
	case c.Kind == fsys.KindDir:
		en.IsDir = true
	case c.Kind == fsys.KindReparse:
		en.IsDir = true
		en.Reparse = true
		en.HasValue = true
		en.Incomplete = true
		en.Stats.Record(model.ErrReparseSkipped)
	default:
		en.HasValue = true
		en.Exact = true
		if c.Size > 0 {
			en.Bytes = uint64(c.Size)
		}
	}
	return en
}
