// Package scan is C5, the shared-scan engine: when a batch of range-select
// predicates over the same column is flushed, it makes one worker-pool
// pass over the column evaluating every predicate per chunk, instead of
// one linear pass per predicate.
package scan

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"coldb/internal/engine"
)

// Default tunables, matching spec.md §4.6's named defaults.
const (
	DefaultWorkers          = 4
	DefaultQueriesPerThread = 8
	DefaultChunkSize        = 65536
)

// Predicate is one batched range-select: `low <= v < high`.
type Predicate struct {
	Low, High int32
}

// Options controls the tiling and worker count; zero values fall back to
// the spec's defaults.
type Options struct {
	Workers          int
	QueriesPerThread int
	ChunkSize        int
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.QueriesPerThread <= 0 {
		o.QueriesPerThread = DefaultQueriesPerThread
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	// Round up to whole 64-bit bitvector words so tasks on adjacent chunks
	// never write the same word.
	if rem := o.ChunkSize % 64; rem != 0 {
		o.ChunkSize += 64 - rem
	}
	return o
}

// task is one (query range x data range) rectangle of the tiling.
type task struct {
	qa, qb int
	da, db int
}

// taskList is the shared LIFO task stack guarded by one mutex (§4.6, §5):
// the only synchronization point besides the final join.
type taskList struct {
	mu    sync.Mutex
	tasks []task
}

func (l *taskList) push(t task) {
	l.tasks = append(l.tasks, t)
}

func (l *taskList) pop() (task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		return task{}, false
	}
	n := len(l.tasks) - 1
	t := l.tasks[n]
	l.tasks = l.tasks[:n]
	return t, true
}

// ValidateSameColumn implements the batch-validation step: every queued
// predicate must target the same column handle, or the whole batch fails
// before any worker starts (§4.6 step 1, §5's cooperative-cancellation
// note).
func ValidateSameColumn(columnRefs []string) error {
	if len(columnRefs) == 0 {
		return nil
	}
	first := columnRefs[0]
	for _, ref := range columnRefs[1:] {
		if ref != first {
			return fmt.Errorf("execution_error: shared scan batch targets multiple columns (%q and %q)", first, ref)
		}
	}
	return nil
}

// Run executes predicates over data with a W-worker pool, tiling the
// (query, data) rectangle by Q and D (§4.6). It returns one bitvector per
// predicate, each the same as a standalone select would produce (P5).
func Run(ctx context.Context, data []int32, predicates []Predicate, opts Options) ([]*engine.Bitvector, error) {
	opts = opts.withDefaults()

	results := make([]*engine.Bitvector, len(predicates))
	for i := range results {
		results[i] = engine.NewBitvector(len(data))
	}
	if len(predicates) == 0 || len(data) == 0 {
		return results, nil
	}

	list := &taskList{}
	for qa := 0; qa < len(predicates); qa += opts.QueriesPerThread {
		qb := min(qa+opts.QueriesPerThread, len(predicates))
		for da := 0; da < len(data); da += opts.ChunkSize {
			db := min(da+opts.ChunkSize, len(data))
			list.push(task{qa: qa, qb: qb, da: da, db: db})
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		eg.Go(func() error {
			for {
				select {
				case <-egCtx.Done():
					return egCtx.Err()
				default:
				}
				t, ok := list.pop()
				if !ok {
					return nil
				}
				processTask(data, predicates, results, t)
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// processTask evaluates every predicate in [qa,qb) against every value in
// [da,db), setting bits in each predicate's own bitvector. Different tasks
// covering the same predicate always write disjoint data ranges, and
// different tasks covering the same data range always write disjoint
// predicates' bitvectors, so no task ever races another (§5).
func processTask(data []int32, predicates []Predicate, results []*engine.Bitvector, t task) {
	for i := t.da; i < t.db; i++ {
		v := data[i]
		for k := t.qa; k < t.qb; k++ {
			p := predicates[k]
			if v >= p.Low && v < p.High {
				results[k].Set(i)
			}
		}
	}
}
