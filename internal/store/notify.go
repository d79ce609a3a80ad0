package store

import (
	"context"

	"github.com/google/uuid"
)

// WatchJob subscribes to a single job's update channel. The returned channel
// is closed when ctx is done. Backs the ?wait long-poll parameter on
// GET /jobs/:id (internal/api) so a caller can block for the next update
// instead of re-polling the store.
func (s *Store) WatchJob(ctx context.Context, id uuid.UUID) <-chan struct{} {
	return s.watch(ctx, jobUpdateChannel(id))
}

// WatchRequest subscribes to a single request's update channel. Backs the
// ?wait long-poll parameter on GET /requests/:id.
func (s *Store) WatchRequest(ctx context.Context, id uuid.UUID) <-chan struct{} {
	return s.watch(ctx, requestUpdateChannel(id))
}

func (s *Store) watch(ctx context.Context, channel string) <-chan struct{} {
	out := make(chan struct{}, 1)
	sub := s.rdb.Subscribe(ctx, channel)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out
}
