package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"warehousefleet/internal/fleet"
	"warehousefleet/internal/store"
	"warehousefleet/internal/transport/simtransport"
	"warehousefleet/internal/types"
)

type fakeOracle struct {
	byID    map[int]types.Node
	byAlias map[string]types.Node
}

func (f fakeOracle) GetNodeByID(ctx context.Context, graph string, id int) (*types.Node, error) {
	n, ok := f.byID[id]
	if !ok {
		return nil, types.ErrNodeNotFound
	}
	return &n, nil
}

func (f fakeOracle) GetNodeByAlias(ctx context.Context, graph string, alias string) (*types.Node, error) {
	n, ok := f.byAlias[alias]
	if !ok {
		return nil, types.ErrNodeNotFound
	}
	return &n, nil
}

func (f fakeOracle) GetNodeByTagID(ctx context.Context, graph string, tag string) (*types.Node, error) {
	return nil, types.ErrNodeNotFound
}

func (f fakeOracle) GetNodesByIDs(ctx context.Context, graph string, ids []int) ([]types.Node, error) {
	return nil, nil
}

func (f fakeOracle) GetShortestPathByID(ctx context.Context, graph string, startID, endID int) ([]int, error) {
	return nil, nil
}

func (f fakeOracle) GetShortestPathByAlias(ctx context.Context, graph string, startAlias, endAlias string) ([]int, error) {
	return nil, nil
}

func newFixtureOracle() fakeOracle {
	start1 := types.Node{ID: 1, Alias: "start-1", TagID: "T1", NodeType: types.NodeWaypoint}
	start2 := types.Node{ID: 2, Alias: "start-2", TagID: "T2", NodeType: types.NodeWaypoint}
	shelfA := types.Node{ID: 7, Alias: "shelf-a", TagID: "TAG-7", NodeType: types.NodeShelf}
	depotA := types.Node{ID: 10, Alias: "depot-a", TagID: "TAG-10", NodeType: types.NodeDepot}
	shelfB := types.Node{ID: 8, Alias: "shelf-b", TagID: "TAG-8", NodeType: types.NodeShelf}

	byID := map[int]types.Node{1: start1, 2: start2, 7: shelfA, 10: depotA, 8: shelfB}
	byAlias := map[string]types.Node{
		"start-1": start1, "start-2": start2, "shelf-a": shelfA, "depot-a": depotA, "shelf-b": shelfB,
	}
	return fakeOracle{byID: byID, byAlias: byAlias}
}

func newFixture(t *testing.T) (*Controller, *fleet.Handler, *store.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	st := store.New(rdb, nil)
	oracle := newFixtureOracle()
	updates := make(chan types.Job, 32)

	specs := []fleet.RobotSpec{
		{Name: "R1", Transport: simtransport.New("T1"), CellHeights: []float64{0.5}, StartTagID: "T1"},
		{Name: "R2", Transport: simtransport.New("T2"), CellHeights: []float64{0.5}, StartTagID: "T2"},
	}
	fl := fleet.New(specs, oracle, "default", updates, nil, nil)
	// Deactivate both so accepted orders stay queued rather than racing into
	// a synchronous dispatch attempt against an oracle with no real paths.
	fl.SetActive("R1", false)
	fl.SetActive("R2", false)

	c := New(st, fl, oracle, "default", updates, nil)
	t.Cleanup(func() {
		c.Shutdown()
		fl.Shutdown()
	})
	return c, fl, st
}

func intPtr(i int) *int { return &i }

func TestAcceptJobOrderRejectsNonWaypointTravel(t *testing.T) {
	c, _, _ := newFixture(t)
	ctx := context.Background()

	_, err := c.AcceptJobOrder(ctx, JobOrder{
		RobotName: "R1",
		Operation: types.OpTravel,
		Target:    NodeRef{ID: intPtr(7)}, // shelf-a, a SHELF not a WAYPOINT
	})
	if !errors.Is(err, types.ErrTravelTargetNotWaypoint) {
		t.Fatalf("err = %v, want ErrTravelTargetNotWaypoint", err)
	}
}

func TestAcceptJobOrderUnknownRobot(t *testing.T) {
	c, _, _ := newFixture(t)
	ctx := context.Background()

	_, err := c.AcceptJobOrder(ctx, JobOrder{RobotName: "ghost", Operation: types.OpTravel, Target: NodeRef{ID: intPtr(1)}})
	if !errors.Is(err, types.ErrUnknownRobot) {
		t.Fatalf("err = %v, want ErrUnknownRobot", err)
	}
}

func TestAcceptJobOrderHappyPathPersistsAndQueues(t *testing.T) {
	c, fl, st := newFixture(t)
	ctx := context.Background()

	job, err := c.AcceptJobOrder(ctx, JobOrder{RobotName: "R1", Operation: types.OpTravel, Target: NodeRef{Alias: "start-1"}})
	if err != nil {
		t.Fatalf("AcceptJobOrder() error = %v", err)
	}
	if job.Status != types.StatusQueuing {
		t.Fatalf("job.Status = %v, want QUEUING", job.Status)
	}

	stored, err := st.GetJob(ctx, job.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetJob() = %v, %v, want persisted job", stored, err)
	}

	q := fl.GetJobQueue("R1")
	if len(q) != 1 || q[0].ID != job.ID {
		t.Fatalf("GetJobQueue(R1) = %+v, want [job]", q)
	}
}

func TestAcceptWarehouseOrderRejectsCrossRobotRequest(t *testing.T) {
	c, _, st := newFixture(t)
	ctx := context.Background()

	order := WarehouseOrder{
		Assignments: []WarehouseAssignment{
			{RobotName: "R1", Route: []NodeRef{{ID: intPtr(7)}}}, // shelf-a
			{RobotName: "R2", Route: []NodeRef{{ID: intPtr(8)}}}, // shelf-b
		},
		Requests: []WarehouseRequestSpec{
			{Pickup: NodeRef{ID: intPtr(7)}, Delivery: NodeRef{ID: intPtr(8)}},
		},
	}

	_, err := c.AcceptWarehouseOrder(ctx, order)
	if !errors.Is(err, types.ErrCrossRobotRequest) {
		t.Fatalf("err = %v, want ErrCrossRobotRequest", err)
	}

	requests, err := st.GetRequests(ctx)
	if err != nil {
		t.Fatalf("GetRequests() error = %v", err)
	}
	if len(requests) != 0 {
		t.Fatalf("GetRequests() = %+v, want none persisted on a rejected order", requests)
	}
}

func TestAcceptWarehouseOrderRejectsAmbiguousNode(t *testing.T) {
	c, _, _ := newFixture(t)
	ctx := context.Background()

	order := WarehouseOrder{
		Assignments: []WarehouseAssignment{
			{RobotName: "R1", Route: []NodeRef{{ID: intPtr(7)}}},
			{RobotName: "R2", Route: []NodeRef{{ID: intPtr(7)}}}, // same node, second robot
		},
		Requests: []WarehouseRequestSpec{
			{Pickup: NodeRef{ID: intPtr(7)}, Delivery: NodeRef{ID: intPtr(7)}},
		},
	}

	_, err := c.AcceptWarehouseOrder(ctx, order)
	if !errors.Is(err, types.ErrAmbiguousNodeAssignment) {
		t.Fatalf("err = %v, want ErrAmbiguousNodeAssignment", err)
	}
}

func TestAcceptWarehouseOrderHappyPathPlacesJobsByRoutePosition(t *testing.T) {
	c, fl, st := newFixture(t)
	ctx := context.Background()

	order := WarehouseOrder{
		Assignments: []WarehouseAssignment{
			{RobotName: "R1", Route: []NodeRef{{ID: intPtr(7)}, {ID: intPtr(10)}}}, // shelf-a, depot-a
		},
		Requests: []WarehouseRequestSpec{
			{Pickup: NodeRef{ID: intPtr(7)}, Delivery: NodeRef{ID: intPtr(10)}},
		},
	}

	requests, err := c.AcceptWarehouseOrder(ctx, order)
	if err != nil {
		t.Fatalf("AcceptWarehouseOrder() error = %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("len(requests) = %d, want 1", len(requests))
	}
	req := requests[0]
	if req.HandlingRobot != "R1" {
		t.Fatalf("HandlingRobot = %q, want R1", req.HandlingRobot)
	}

	pickup, err := st.GetJob(ctx, req.Pickup)
	if err != nil || pickup == nil || pickup.Status != types.StatusQueuing {
		t.Fatalf("GetJob(pickup) = %+v, %v", pickup, err)
	}
	delivery, err := st.GetJob(ctx, req.Delivery)
	if err != nil || delivery == nil || delivery.Status != types.StatusQueuing {
		t.Fatalf("GetJob(delivery) = %+v, %v", delivery, err)
	}

	q := fl.GetJobQueue("R1")
	if len(q) != 2 {
		t.Fatalf("GetJobQueue(R1) = %+v, want pickup then delivery", q)
	}
	if q[0].Operation != types.OpPickup || q[1].Operation != types.OpDelivery {
		t.Fatalf("queue order = [%v, %v], want [PICKUP, DELIVERY]", q[0].Operation, q[1].Operation)
	}
}

func TestCancelJobOrderRemovesQueuedJobAndMarksCanceled(t *testing.T) {
	c, fl, st := newFixture(t)
	ctx := context.Background()

	job, err := c.AcceptJobOrder(ctx, JobOrder{RobotName: "R1", Operation: types.OpTravel, Target: NodeRef{Alias: "start-1"}})
	if err != nil {
		t.Fatalf("AcceptJobOrder() error = %v", err)
	}

	canceled, err := c.CancelJobOrder(ctx, job.ID)
	if err != nil {
		t.Fatalf("CancelJobOrder() error = %v", err)
	}
	if canceled.Status != types.StatusCanceled {
		t.Fatalf("Status = %v, want CANCELED", canceled.Status)
	}

	stored, err := st.GetJob(ctx, job.ID)
	if err != nil || stored == nil || stored.Status != types.StatusCanceled {
		t.Fatalf("GetJob() = %+v, %v, want persisted CANCELED", stored, err)
	}
	if q := fl.GetJobQueue("R1"); len(q) != 0 {
		t.Fatalf("GetJobQueue(R1) = %+v, want empty after cancel", q)
	}
}

func TestCancelJobOrderUnknownIDErrors(t *testing.T) {
	c, _, _ := newFixture(t)
	ctx := context.Background()

	_, err := c.CancelJobOrder(ctx, uuid.New())
	if !errors.Is(err, types.ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}

func TestCancelRequestOrderCancelsBothJobs(t *testing.T) {
	c, _, st := newFixture(t)
	ctx := context.Background()

	req, err := c.AcceptRequestOrder(ctx, RequestOrder{RobotName: "R1", Pickup: NodeRef{ID: intPtr(7)}, Delivery: NodeRef{ID: intPtr(10)}})
	if err != nil {
		t.Fatalf("AcceptRequestOrder() error = %v", err)
	}

	if _, err := c.CancelRequestOrder(ctx, req.ID); err != nil {
		t.Fatalf("CancelRequestOrder() error = %v", err)
	}

	pickup, _ := st.GetJob(ctx, req.Pickup)
	delivery, _ := st.GetJob(ctx, req.Delivery)
	if pickup == nil || pickup.Status != types.StatusCanceled {
		t.Fatalf("pickup = %+v, want CANCELED", pickup)
	}
	if delivery == nil || delivery.Status != types.StatusCanceled {
		t.Fatalf("delivery = %+v, want CANCELED", delivery)
	}

	status, err := st.GetRequestStatus(ctx, *req)
	if err != nil {
		t.Fatalf("GetRequestStatus() error = %v", err)
	}
	if status != types.StatusCanceled {
		t.Fatalf("derived status = %v, want CANCELED", status)
	}
}
