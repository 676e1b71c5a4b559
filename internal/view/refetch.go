package view

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"avatarlab.app/studio/common/logger"
	"avatarlab.app/studio/internal/bus"
)

// Refetcher reconciles a small owned collection (folders, characters) by
// refetching it whole on any event. Their views are not filtered subsets,
// so patching incrementally buys nothing; a full reload is always correct.
type Refetcher[T any] struct {
	fetch func(ctx context.Context) ([]T, error)

	mu    sync.Mutex
	items []T
	apply func([]T)
}

// NewRefetcher builds a refetching reconciler. apply, when non-nil, receives
// every reloaded collection and is invoked with the refetcher lock held.
func NewRefetcher[T any](fetch func(ctx context.Context) ([]T, error), apply func([]T)) *Refetcher[T] {
	if apply == nil {
		apply = func([]T) {}
	}
	return &Refetcher[T]{fetch: fetch, apply: apply}
}

// Items returns a snapshot of the last loaded collection.
func (r *Refetcher[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Reload fetches the collection and replaces the cached copy. Used for the
// initial load and by event handlers.
func (r *Refetcher[T]) Reload(ctx context.Context) error {
	items, err := r.fetch(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = items
	r.apply(items)
	return nil
}

// Start subscribes the refetcher to every named event on the channel and
// returns an unsubscribe function.
func (r *Refetcher[T]) Start(b bus.Client, channel bus.Channel, names ...bus.EventName) func() {
	handler := func(ctx context.Context, name bus.EventName, _ []byte, _ time.Time) {
		ctx = logger.WithLogFields(ctx, logger.LogFields{
			Component: "studio.view",
			EventName: logger.Ptr(string(name)),
		})
		if err := r.Reload(ctx); err != nil {
			// Stale until the next event or manual refresh.
			slog.WarnContext(ctx, "collection refetch failed", "error", err)
		}
	}

	unsubs := make([]func(), 0, len(names))
	for _, name := range names {
		unsubs = append(unsubs, b.Subscribe(channel, name, handler))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
