package transcriber

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// CallRecorder observes the latency of one backend call, tagged by which of
// init/feed/finalize it was. A Pool with no recorder set skips
// instrumentation entirely.
type CallRecorder interface {
	RecordTranscriberCall(ctx context.Context, op string, seconds float64)
}

// Pool bounds concurrent Feed/Finalize dispatch across all sessions sharing
// one backend. Each session submits its own calls serially (a single State
// is never fed from two goroutines at once) but many sessions' calls run
// concurrently up to the pool's limit.
type Pool struct {
	backend  Backend
	sem      chan struct{}
	recorder CallRecorder
}

// NewPool builds a Pool bounded to maxConcurrent in-flight backend calls.
func NewPool(backend Backend, maxConcurrent int) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Pool{backend: backend, sem: make(chan struct{}, maxConcurrent)}
}

// Backend returns the underlying backend, letting callers type-assert for
// capabilities beyond the three-call contract (e.g. readiness reporting).
func (p *Pool) Backend() Backend { return p.backend }

// SetRecorder attaches a latency recorder for subsequent Init/Feed/Finalize
// calls. A nil recorder (the default) disables instrumentation.
func (p *Pool) SetRecorder(r CallRecorder) { p.recorder = r }

// Feed dispatches one Feed call through the bounded pool, blocking until a
// slot is free or ctx is cancelled.
func (p *Pool) Feed(ctx context.Context, state *State, samples []float32) (*State, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.release()
	start := time.Now()
	next, err := p.backend.Feed(ctx, state, samples)
	p.recordCall(ctx, "feed", start)
	return next, err
}

// Finalize dispatches one Finalize call through the bounded pool.
func (p *Pool) Finalize(ctx context.Context, state *State) (*State, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.release()
	start := time.Now()
	next, err := p.backend.Finalize(ctx, state)
	p.recordCall(ctx, "finalize", start)
	return next, err
}

// Init dispatches one Init call through the bounded pool.
func (p *Pool) Init(ctx context.Context, params InitParams) (*State, error) {
	if err := p.acquire(ctx); err != nil {
		return nil, err
	}
	defer p.release()
	start := time.Now()
	next, err := p.backend.Init(ctx, params)
	p.recordCall(ctx, "init", start)
	return next, err
}

func (p *Pool) recordCall(ctx context.Context, op string, start time.Time) {
	if p.recorder != nil {
		p.recorder.RecordTranscriberCall(ctx, op, time.Since(start).Seconds())
	}
}

func (p *Pool) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) release() { <-p.sem }

// FeedAll dispatches Feed for a batch of independent (state, samples) pairs
// concurrently, bounded by the pool's limit, and returns the updated states
// in the same order. The session engine does not call it; a session feeds
// its single open item through Pool.Feed.
func FeedAll(ctx context.Context, p *Pool, states []*State, samples [][]float32) ([]*State, error) {
	if len(states) != len(samples) {
		return nil, fmt.Errorf("transcriber: states/samples length mismatch: %d != %d", len(states), len(samples))
	}
	results := make([]*State, len(states))
	eg, egCtx := errgroup.WithContext(ctx)
	for i := range states {
		i := i
		eg.Go(func() error {
			next, err := p.Feed(egCtx, states[i], samples[i])
			if err != nil {
				return fmt.Errorf("transcriber: feed %d: %w", i, err)
			}
			results[i] = next
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
