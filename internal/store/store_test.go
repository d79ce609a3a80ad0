package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"warehousefleet/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, nil)
}

func TestSetGetJobRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := types.Job{
		ID:        uuid.New(),
		Status:    types.StatusQueuing,
		Operation: types.OpPickup,
		Target: types.Node{
			ID:       7,
			Alias:    "shelf-7",
			X:        1.5,
			Y:        2.5,
			Height:   0.5,
			NodeType: types.NodeShelf,
		},
		Request:       uuid.New(),
		HandlingRobot: "R1",
	}

	ok, err := s.SetJob(ctx, job)
	if err != nil || !ok {
		t.Fatalf("SetJob() = %v, %v", ok, err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetJob() = nil, want job")
	}
	if *got != job {
		t.Errorf("GetJob() = %+v, want %+v", *got, job)
	}
}

func TestGetJobAbsentReturnsNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetJob(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetJob() = %+v, want nil", got)
	}
}

func TestSetGetRequestRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	req := types.Request{
		ID:            uuid.New(),
		Pickup:        uuid.New(),
		Delivery:      uuid.New(),
		HandlingRobot: "R1",
	}

	ok, err := s.SetRequest(ctx, req)
	if err != nil || !ok {
		t.Fatalf("SetRequest() = %v, %v", ok, err)
	}

	got, err := s.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequest() error = %v", err)
	}
	if got == nil || *got != req {
		t.Errorf("GetRequest() = %+v, want %+v", got, req)
	}
}

func TestGetJobsSkipsUnparseable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	good := types.Job{ID: uuid.New(), Status: types.StatusQueuing, HandlingRobot: "R1"}
	if _, err := s.SetJob(ctx, good); err != nil {
		t.Fatalf("SetJob() error = %v", err)
	}

	// Write a record under the job prefix with an unparseable status field
	// directly, bypassing the serializer, to simulate corruption.
	badID := uuid.New()
	s.rdb.HSet(ctx, jobKey(badID), map[string]string{"status": "not-a-number"})

	jobs, err := s.GetJobs(ctx)
	if err != nil {
		t.Fatalf("GetJobs() error = %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != good.ID {
		t.Errorf("GetJobs() = %+v, want only %v", jobs, good.ID)
	}
}

func TestGetRequestStatusDerivation(t *testing.T) {
	tests := []struct {
		name             string
		pickup, delivery types.OrderStatus
		want             types.OrderStatus
	}{
		{"both queuing", types.StatusQueuing, types.StatusQueuing, types.StatusQueuing},
		{"pickup in progress", types.StatusInProgress, types.StatusQueuing, types.StatusInProgress},
		{"both completed", types.StatusCompleted, types.StatusCompleted, types.StatusCompleted},
		{"pickup failed beats delivery canceled", types.StatusFailed, types.StatusCanceled, types.StatusFailed},
		{"delivery failed", types.StatusCompleted, types.StatusFailed, types.StatusFailed},
		{"pickup canceled", types.StatusCanceled, types.StatusCompleted, types.StatusCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveRequestStatus(tt.pickup, tt.delivery); got != tt.want {
				t.Errorf("DeriveRequestStatus(%v, %v) = %v, want %v", tt.pickup, tt.delivery, got, tt.want)
			}
		})
	}
}

func TestGetRequestStatusInconsistentState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	req := types.Request{ID: uuid.New(), Pickup: uuid.New(), Delivery: uuid.New(), HandlingRobot: "R1"}
	// Neither pickup nor delivery job is persisted.
	if _, err := s.GetRequestStatus(ctx, req); err == nil {
		t.Fatal("GetRequestStatus() error = nil, want ErrInconsistentState")
	}
}
