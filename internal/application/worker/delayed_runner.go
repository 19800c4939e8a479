package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rcarvalho-pb/checkout_system-go/internal/infra/logging"
)

type RunFunc func(ctx context.Context, id string) error

// DelayedRunner runs a job for an id after a fixed delay. Scheduling an id
// that is already waiting is a no-op, so bursts of triggers collapse into
// one run.
type DelayedRunner struct {
	ctx    context.Context
	delay  time.Duration
	run    RunFunc
	logger logging.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func NewDelayedRunner(ctx context.Context, delay time.Duration, run RunFunc, logger logging.Logger) *DelayedRunner {
	return &DelayedRunner{
		ctx:     ctx,
		delay:   delay,
		run:     run,
		logger:  logger,
		pending: make(map[string]*time.Timer),
	}
}

// Schedule reports whether a new run was queued.
func (d *DelayedRunner) Schedule(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx.Err() != nil {
		return false
	}
	if _, waiting := d.pending[id]; waiting {
		return false
	}

	d.wg.Add(1)
	d.pending[id] = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()

		d.mu.Lock()
		delete(d.pending, id)
		d.mu.Unlock()

		if d.ctx.Err() != nil {
			return
		}
		if err := d.run(d.ctx, id); err != nil && d.logger != nil {
			d.logger.Error("delayed run failed", map[string]any{
				"id":  id,
				"err": err,
			})
		}
	})
	return true
}

func (d *DelayedRunner) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.pending)
}

// Stop cancels runs that have not started and waits for running ones.
func (d *DelayedRunner) Stop() {
	d.mu.Lock()
	for id, t := range d.pending {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.pending, id)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// Wait blocks until every scheduled run finished.
func (d *DelayedRunner) Wait() {
	d.wg.Wait()
}
