package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"warehousefleet/internal/types"
)

func TestWatchJobFiresOnSetJob(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	id := uuid.New()
	ch := s.WatchJob(ctx, id)

	go func() {
		time.Sleep(10 * time.Millisecond)
		if _, err := s.SetJob(ctx, types.Job{ID: id, Status: types.StatusQueuing}); err != nil {
			t.Errorf("SetJob() error = %v", err)
		}
	}()

	select {
	case <-ch:
	case <-ctx.Done():
		t.Fatal("WatchJob: timed out waiting for publish")
	}
}

func TestWatchJobClosesWhenContextDone(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch := s.WatchJob(ctx, uuid.New())
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("WatchJob channel received a value instead of closing")
		}
	case <-time.After(time.Second):
		t.Fatal("WatchJob: channel did not close after context cancellation")
	}
}
