package media

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrent transcodes. Callers that cannot get a
// slot within the acquire timeout are rejected with ErrPoolSaturated.
type Pool struct {
	sem     *semaphore.Weighted
	size    int
	timeout time.Duration
}

// NewPool creates a pool with size slots; size <= 0 means one slot.
func NewPool(size int, acquireTimeout time.Duration) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		sem:     semaphore.NewWeighted(int64(size)),
		size:    size,
		timeout: acquireTimeout,
	}
}

// Size returns the number of slots.
func (p *Pool) Size() int { return p.size }

// Do runs fn while holding a slot.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	acquireCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrPoolSaturated
		}
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
