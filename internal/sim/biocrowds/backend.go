package biocrowds

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Backend executes the data-parallel part of a pass. Implementations must
// call fn with disjoint ranges that together cover the whole domain; a pass
// relies on that to write its output without locks.
type Backend interface {
	// ParallelRows calls fn over disjoint half-open row bands covering [0, rows).
	ParallelRows(ctx context.Context, rows int, fn func(z0, z1 int) error) error
	// ParallelItems calls fn once for every index in [0, n).
	ParallelItems(ctx context.Context, n int, fn func(i int) error) error
}

// CPUBackend fans work out to a bounded goroutine pool.
type CPUBackend struct {
	workers int
}

// NewCPUBackend returns a backend with the given pool size; workers <= 0
// uses GOMAXPROCS.
func NewCPUBackend(workers int) *CPUBackend {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &CPUBackend{workers: workers}
}

func (b *CPUBackend) Workers() int { return b.workers }

func (b *CPUBackend) ParallelRows(ctx context.Context, rows int, fn func(z0, z1 int) error) error {
	if rows <= 0 {
		return nil
	}
	if b.workers == 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(0, rows)
	}
	// Over-split so uneven rows (obstacles, crowded regions) still balance.
	bands := min(rows, b.workers*4)
	step := (rows + bands - 1) / bands

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for z0 := 0; z0 < rows; z0 += step {
		z0, z1 := z0, min(z0+step, rows)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(z0, z1)
		})
	}
	return g.Wait()
}

func (b *CPUBackend) ParallelItems(ctx context.Context, n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if b.workers == 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	return g.Wait()
}
