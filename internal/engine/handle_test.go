package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

// pingStore is a minimal Store: only Ping is exercised, the rest panic via the nil embed.
type pingStore struct {
	Store
	pings atomic.Int32
}

func (p *pingStore) Ping(context.Context) error {
	p.pings.Add(1)
	return nil
}

func TestHandle_ConnectsOnce(t *testing.T) {
	var connects, bootstraps atomic.Int32
	store := &pingStore{}

	h := NewHandle(
		func(context.Context) (Store, error) {
			connects.Add(1)
			return store, nil
		},
		func(_ context.Context, s Store) error {
			if s != store {
				t.Error("bootstrap received a different store")
			}
			bootstraps.Add(1)
			return nil
		},
	)

	if h.Initialized() {
		t.Fatal("handle should start uninitialized")
	}

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.Ping(context.Background()); err != nil {
				t.Errorf("ping: %v", err)
			}
		}()
	}
	wg.Wait()

	if connects.Load() != 1 {
		t.Errorf("connects = %d, want 1", connects.Load())
	}
	if bootstraps.Load() != 1 {
		t.Errorf("bootstraps = %d, want 1", bootstraps.Load())
	}
	if store.pings.Load() != 32 {
		t.Errorf("pings = %d, want 32", store.pings.Load())
	}
	if !h.Initialized() {
		t.Error("handle should be initialized")
	}
}

func TestHandle_ConnectFailureNotCached(t *testing.T) {
	var attempts atomic.Int32
	store := &pingStore{}
	h := NewHandle(func(context.Context) (Store, error) {
		if attempts.Add(1) == 1 {
			return nil, ErrUnavailable
		}
		return store, nil
	}, nil)

	err := h.Ping(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("first ping error = %v, want ErrUnavailable", err)
	}
	if h.Initialized() {
		t.Fatal("failed connect must not initialize the handle")
	}

	if err := h.Ping(context.Background()); err != nil {
		t.Fatalf("second ping: %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
}

func TestHandle_BootstrapFailureNotCached(t *testing.T) {
	bootErr := errors.New("mapping rejected")
	fail := true
	h := NewHandle(
		func(context.Context) (Store, error) { return &pingStore{}, nil },
		func(context.Context, Store) error {
			if fail {
				return bootErr
			}
			return nil
		},
	)

	if _, err := h.Get(context.Background()); !errors.Is(err, bootErr) {
		t.Fatalf("error = %v, want bootstrap error", err)
	}
	if h.Initialized() {
		t.Fatal("failed bootstrap must not initialize the handle")
	}

	fail = false
	if _, err := h.Get(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
}
