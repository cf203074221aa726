package command

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Pool runs submitted tasks on a fixed number of workers. Handlers are
// independent units of work; the pool bounds how many run at once.
type Pool struct {
	tasks  chan func(context.Context)
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a pool with the given worker count and queue depth.
func NewPool(workers, queue int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		tasks:  make(chan func(context.Context), queue),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("handler panicked", "panic", fmt.Sprintf("%v", r))
		}
	}()
	task(context.Background())
}

// Submit queues a task. It reports false when the queue is full; the caller
// drops the work rather than blocking the event path.
func (p *Pool) Submit(task func(context.Context)) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Close stops accepting tasks and waits for in-flight ones to finish.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}
