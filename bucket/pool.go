package bucket

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Pool hands out cloned Readers for concurrent query execution. §5
// requires that bucket file handles, which carry seek state, never be
// shared across concurrent get_postings calls; Pool satisfies that by
// opening N independent Readers against the same on-disk files and
// gating checkout with a weighted semaphore, rather than guarding one
// shared Reader with a mutex.
type Pool struct {
	docPath, mergePath, bucketsDir string
	sem                            *semaphore.Weighted
	handles                        chan *Reader
}

// NewPool opens size independent Readers against the same index files.
func NewPool(docPath, mergePath, bucketsDir string, size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("bucket: pool size must be > 0")
	}
	p := &Pool{
		docPath:    docPath,
		mergePath:  mergePath,
		bucketsDir: bucketsDir,
		sem:        semaphore.NewWeighted(int64(size)),
		handles:    make(chan *Reader, size),
	}
	for i := 0; i < size; i++ {
		r, err := Initialize(docPath, mergePath, bucketsDir)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.handles <- r
	}
	return p, nil
}

// Acquire blocks until a Reader handle is available or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Reader, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return <-p.handles, nil
}

// Release returns a Reader handle to the pool.
func (p *Pool) Release(r *Reader) {
	p.handles <- r
	p.sem.Release(1)
}

// Close closes every pooled Reader's bucket handles.
func (p *Pool) Close() error {
	close(p.handles)
	var firstErr error
	for r := range p.handles {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
