package server

import (
	"context"

	"github.com/pflow-xyz/go-forge/journal"
)

// Broadcast wraps a journal store so every event it accepts is also
// published on the live feed. The engine appends with its lock held,
// so publication stays non-blocking.
func Broadcast(store journal.Store, feed *Feed) journal.Store {
	return &broadcastStore{Store: store, feed: feed}
}

type broadcastStore struct {
	journal.Store
	feed *Feed
}

func (b *broadcastStore) Append(ctx context.Context, e *journal.Event) (uint64, error) {
	seq, err := b.Store.Append(ctx, e)
	if err != nil {
		return seq, err
	}
	b.feed.Publish(e)
	return seq, nil
}
