package transcriber

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type fakeBackend struct {
	inFlight  atomic.Int32
	maxSeen   atomic.Int32
	feedDelay time.Duration
}

func (f *fakeBackend) Init(_ context.Context, params InitParams) (*State, error) {
	return &State{Language: params.LanguageHint}, nil
}

func (f *fakeBackend) Feed(_ context.Context, state *State, samples []float32) (*State, error) {
	n := f.inFlight.Add(1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.feedDelay > 0 {
		time.Sleep(f.feedDelay)
	}
	f.inFlight.Add(-1)
	return &State{Text: state.Text + "x", Language: state.Language}, nil
}

func (f *fakeBackend) Finalize(_ context.Context, state *State) (*State, error) {
	return state, nil
}

func TestPoolBoundsConcurrency(t *testing.T) {
	backend := &fakeBackend{feedDelay: 20 * time.Millisecond}
	pool := NewPool(backend, 2)

	states := make([]*State, 6)
	samples := make([][]float32, 6)
	for i := range states {
		states[i] = &State{}
		samples[i] = []float32{0}
	}

	if _, err := FeedAll(context.Background(), pool, states, samples); err != nil {
		t.Fatalf("FeedAll() error = %v", err)
	}
	if backend.maxSeen.Load() > 2 {
		t.Errorf("max concurrent feeds = %d, want <= 2", backend.maxSeen.Load())
	}
}

func TestPoolFeedAllMismatchedLengths(t *testing.T) {
	pool := NewPool(&fakeBackend{}, 4)
	_, err := FeedAll(context.Background(), pool, []*State{{}}, nil)
	if err == nil {
		t.Fatal("expected error on mismatched lengths")
	}
}

func TestPoolInitFeedFinalize(t *testing.T) {
	pool := NewPool(&fakeBackend{}, 4)
	ctx := context.Background()

	state, err := pool.Init(ctx, DefaultInitParams("en", 2.0))
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	state, err = pool.Feed(ctx, state, []float32{0, 0})
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if state.Text != "x" {
		t.Errorf("Text = %q, want x", state.Text)
	}
	final, err := pool.Finalize(ctx, state)
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if final.Text != "x" {
		t.Errorf("final Text = %q, want x", final.Text)
	}
}

func TestPoolAcquireRespectsContextCancellation(t *testing.T) {
	pool := NewPool(&fakeBackend{}, 1)
	pool.sem <- struct{}{} // fill the only slot

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pool.Feed(ctx, &State{}, nil); err == nil {
		t.Error("expected error from cancelled context while pool is saturated")
	}
}
