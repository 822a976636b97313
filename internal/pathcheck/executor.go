package pathcheck

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ohadf2015/boggle-new-sub003/internal/models"
	"github.com/ohadf2015/boggle-new-sub003/internal/util"
)

// ErrQueueFull is the hard rejection when the pending-task queue is at its
// bound. Unlike a timeout, a full queue never falls back to inline execution;
// the caller surfaces the failure instead of growing memory without limit.
var ErrQueueFull = errors.New("pathcheck: task queue full")

// Result of one path check.
type Result struct {
	Found bool
	Path  []models.Cell
}

// Executor runs path checks. Callers never branch on pool availability; the
// pooled implementation degrades to inline execution on its own.
type Executor interface {
	Check(ctx context.Context, grid models.Grid, word string) (Result, error)
}

// InlineExecutor runs every check synchronously on the calling goroutine.
type InlineExecutor struct{}

func (InlineExecutor) Check(_ context.Context, grid models.Grid, word string) (Result, error) {
	path, ok := FindPath(grid, word)
	return Result{Found: ok, Path: path}, nil
}

type task struct {
	id    string
	grid  models.Grid
	word  string
	reply chan Result
}

// PoolExecutor offloads checks to a bounded set of worker goroutines. A
// request that waits longer than the timeout is answered by a synchronous
// in-process run; correctness never depends on the pool, only latency does.
type PoolExecutor struct {
	tasks   chan task
	timeout time.Duration
	workers int

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewPool starts workers immediately. workers <= 0 selects min(NumCPU, 4);
// queueMax <= 0 selects 1000.
func NewPool(workers, queueMax int, timeout time.Duration) *PoolExecutor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > 4 {
		workers = 4
	}
	if queueMax <= 0 {
		queueMax = 1000
	}

	p := &PoolExecutor{
		tasks:   make(chan task, queueMax),
		timeout: timeout,
		workers: workers,
		done:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *PoolExecutor) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case t := <-p.tasks:
			path, ok := FindPath(t.grid, t.word)
			t.reply <- Result{Found: ok, Path: path}
		}
	}
}

// Check enqueues a correlated request and waits for its reply.
func (p *PoolExecutor) Check(ctx context.Context, grid models.Grid, word string) (Result, error) {
	t := task{
		id:    uuid.NewString(),
		grid:  grid,
		word:  word,
		reply: make(chan Result, 1),
	}

	select {
	case p.tasks <- t:
	case <-p.done:
		return InlineExecutor{}.Check(ctx, grid, word)
	default:
		return Result{}, ErrQueueFull
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case r := <-t.reply:
		return r, nil
	case <-timer.C:
		util.LogWarn("Path check %s timed out after %v, falling back to inline", t.id, p.timeout)
		return InlineExecutor{}.Check(ctx, grid, word)
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Warm runs a trivial check through every worker so first submissions do not
// pay goroutine scheduling cold-start latency.
func (p *PoolExecutor) Warm() {
	grid := models.Grid{{"A"}}
	for i := 0; i < p.workers; i++ {
		_, _ = p.Check(context.Background(), grid, "A")
	}
}

// Workers reports the pool size.
func (p *PoolExecutor) Workers() int {
	return p.workers
}

// Close stops the workers. In-flight callers fall back to inline execution.
func (p *PoolExecutor) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}
