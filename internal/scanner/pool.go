package scanner

import "golang.org/x/sync/errgroup"

// DefaultWorkers is the default size of the worker pool.
const DefaultWorkers = 2

// Pool runs a fixed number of worker goroutines.
type Pool struct {
	g errgroup.Group
	n int
}

// StartPool launches n workers running fn. A non-positive n starts
// DefaultWorkers.
func StartPool(n int, fn func(id int) error) *Pool {
	if n <= 0 {
		n = DefaultWorkers
	}
	p := &Pool{n: n}
	for i := 0; i < n; i++ {
		id := i
		p.g.Go(func() error { return fn(id) })
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.n }

// Wait blocks until every worker has returned and reports the first error.
func (p *Pool) Wait() error {
	return p.g.Wait()
}
