// Package controller implements the WarehouseController: the single entry
// point order-acceptance flows through, and the owner of the one background
// worker that drains RobotHandler status updates into the OrderStore.
//
// Shaped around accept_*/cancel_* verbs and one shared update queue, with
// no teacher equivalent behind it; grounded on
// jkilzi-assisted-migration-agent's scheduler.go for
// the "own the worker's cancel func and WaitGroup so it can't be collected
// while suspended" pattern.
package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"warehousefleet/internal/fleet"
	"warehousefleet/internal/routeoracle"
	"warehousefleet/internal/store"
	"warehousefleet/internal/types"
)

// Controller is the WarehouseController.
type Controller struct {
	store   *store.Store
	fleet   *fleet.Handler
	oracle  routeoracle.Oracle
	graphID string
	log     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Controller and starts its status-update drainer
// goroutine, which reads from updates until Shutdown is called or updates
// is closed. updates is the same channel handed to fleet.New as the
// RobotHandlers' publish side.
func New(st *store.Store, fl *fleet.Handler, oracle routeoracle.Oracle, graphID string, updates <-chan types.Job, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		store:   st,
		fleet:   fl,
		oracle:  oracle,
		graphID: graphID,
		log:     log.Named("warehouse_controller"),
		cancel:  cancel,
	}
	c.wg.Add(1)
	go c.runDrainer(ctx, updates)
	return c
}

// Shutdown stops the status-update drainer and waits for it to exit.
func (c *Controller) Shutdown() {
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) runDrainer(ctx context.Context, updates <-chan types.Job) {
	defer c.wg.Done()
	for {
		select {
		case job, ok := <-updates:
			if !ok {
				return
			}
			if _, err := c.store.SetJob(ctx, job); err != nil {
				c.log.Error("drain: persist job update failed", zap.String("job", job.ID.String()), zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) resolveNode(ctx context.Context, ref NodeRef) (*types.Node, error) {
	if ref.ID != nil {
		return c.oracle.GetNodeByID(ctx, c.graphID, *ref.ID)
	}
	return c.oracle.GetNodeByAlias(ctx, c.graphID, ref.Alias)
}

// AcceptJobOrder resolves the target node, rejects TRAVEL jobs aimed at a
// non-WAYPOINT node, persists a new queuing Job and enqueues it on the named
// robot.
func (c *Controller) AcceptJobOrder(ctx context.Context, order JobOrder) (*types.Job, error) {
	if !c.fleet.KnowsRobot(order.RobotName) {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownRobot, order.RobotName)
	}
	node, err := c.resolveNode(ctx, order.Target)
	if err != nil {
		return nil, err
	}
	if order.Operation == types.OpTravel && node.NodeType != types.NodeWaypoint {
		return nil, types.ErrTravelTargetNotWaypoint
	}

	job := types.Job{
		ID:            uuid.New(),
		Status:        types.StatusQueuing,
		Operation:     order.Operation,
		Target:        *node,
		HandlingRobot: order.RobotName,
	}
	if _, err := c.store.SetJob(ctx, job); err != nil {
		return nil, err
	}
	c.fleet.AssignJob(order.RobotName, job)
	return &job, nil
}

// AcceptRequestOrder resolves pickup and delivery nodes, persists both jobs
// and the binding Request, then enqueues pickup before delivery on the named
// robot.
func (c *Controller) AcceptRequestOrder(ctx context.Context, order RequestOrder) (*types.Request, error) {
	if !c.fleet.KnowsRobot(order.RobotName) {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownRobot, order.RobotName)
	}
	pickupNode, err := c.resolveNode(ctx, order.Pickup)
	if err != nil {
		return nil, err
	}
	deliveryNode, err := c.resolveNode(ctx, order.Delivery)
	if err != nil {
		return nil, err
	}

	reqID := uuid.New()
	pickup := types.Job{ID: uuid.New(), Status: types.StatusQueuing, Operation: types.OpPickup, Target: *pickupNode, Request: reqID, HandlingRobot: order.RobotName}
	delivery := types.Job{ID: uuid.New(), Status: types.StatusQueuing, Operation: types.OpDelivery, Target: *deliveryNode, Request: reqID, HandlingRobot: order.RobotName}

	if _, err := c.store.SetJob(ctx, pickup); err != nil {
		return nil, err
	}
	if _, err := c.store.SetJob(ctx, delivery); err != nil {
		return nil, err
	}
	req := types.Request{ID: reqID, Pickup: pickup.ID, Delivery: delivery.ID, HandlingRobot: order.RobotName}
	if _, err := c.store.SetRequest(ctx, req); err != nil {
		return nil, err
	}

	c.fleet.AssignJob(order.RobotName, pickup)
	c.fleet.AssignJob(order.RobotName, delivery)
	return &req, nil
}

// warehousePlan is one validated request from a WarehouseOrder, resolved to
// concrete jobs and the one robot both its pickup and delivery belong to.
type warehousePlan struct {
	pickup, delivery types.Job
	robot            string
}

// AcceptWarehouseOrder validates every request against every assignment's
// route before persisting anything: a node assigned to two robots, or a
// request whose pickup/delivery nodes resolve to different robots (or to no
// robot at all), rejects the whole order untouched.
func (c *Controller) AcceptWarehouseOrder(ctx context.Context, order WarehouseOrder) ([]types.Request, error) {
	nodeToRobot := make(map[int]string)
	nodeToPosition := make(map[int]int)
	routeNodesByRobot := make(map[string][]types.Node)

	for _, asg := range order.Assignments {
		if !c.fleet.KnowsRobot(asg.RobotName) {
			return nil, fmt.Errorf("%w: %s", types.ErrUnknownRobot, asg.RobotName)
		}
		nodes := make([]types.Node, len(asg.Route))
		for i, ref := range asg.Route {
			node, err := c.resolveNode(ctx, ref)
			if err != nil {
				return nil, err
			}
			if owner, ok := nodeToRobot[node.ID]; ok && owner != asg.RobotName {
				return nil, fmt.Errorf("%w: node %d claimed by both %s and %s", types.ErrAmbiguousNodeAssignment, node.ID, owner, asg.RobotName)
			}
			nodeToRobot[node.ID] = asg.RobotName
			nodeToPosition[node.ID] = i
			nodes[i] = *node
		}
		routeNodesByRobot[asg.RobotName] = nodes
	}

	plans := make([]warehousePlan, 0, len(order.Requests))
	for _, rs := range order.Requests {
		pickupNode, err := c.resolveNode(ctx, rs.Pickup)
		if err != nil {
			return nil, err
		}
		deliveryNode, err := c.resolveNode(ctx, rs.Delivery)
		if err != nil {
			return nil, err
		}
		pickupRobot, ok := nodeToRobot[pickupNode.ID]
		if !ok {
			return nil, fmt.Errorf("%w: pickup node %d", types.ErrNodeNotInRoute, pickupNode.ID)
		}
		deliveryRobot, ok := nodeToRobot[deliveryNode.ID]
		if !ok {
			return nil, fmt.Errorf("%w: delivery node %d", types.ErrNodeNotInRoute, deliveryNode.ID)
		}
		if pickupRobot != deliveryRobot {
			return nil, fmt.Errorf("%w: pickup on %s, delivery on %s", types.ErrCrossRobotRequest, pickupRobot, deliveryRobot)
		}

		reqID := uuid.New()
		plans = append(plans, warehousePlan{
			pickup:   types.Job{ID: uuid.New(), Status: types.StatusQueuing, Operation: types.OpPickup, Target: *pickupNode, Request: reqID, HandlingRobot: pickupRobot},
			delivery: types.Job{ID: uuid.New(), Status: types.StatusQueuing, Operation: types.OpDelivery, Target: *deliveryNode, Request: reqID, HandlingRobot: pickupRobot},
			robot:    pickupRobot,
		})
	}

	// Every request validated against the full route map; now persist and
	// place each job at its route position before dispatching anything.
	robotRoute := make(map[string][]*types.Job, len(routeNodesByRobot))
	for robot, nodes := range routeNodesByRobot {
		robotRoute[robot] = make([]*types.Job, len(nodes))
	}

	requests := make([]types.Request, 0, len(plans))
	for i := range plans {
		p := &plans[i]
		if _, err := c.store.SetJob(ctx, p.pickup); err != nil {
			return nil, err
		}
		if _, err := c.store.SetJob(ctx, p.delivery); err != nil {
			return nil, err
		}
		req := types.Request{ID: p.pickup.Request, Pickup: p.pickup.ID, Delivery: p.delivery.ID, HandlingRobot: p.robot}
		if _, err := c.store.SetRequest(ctx, req); err != nil {
			return nil, err
		}
		requests = append(requests, req)

		robotRoute[p.robot][nodeToPosition[p.pickup.Target.ID]] = &p.pickup
		robotRoute[p.robot][nodeToPosition[p.delivery.Target.ID]] = &p.delivery
	}

	for robot, slots := range robotRoute {
		for _, job := range slots {
			if job == nil {
				continue
			}
			c.fleet.AssignJob(robot, *job)
		}
	}

	return requests, nil
}

// CancelJobOrder fetches the job; a terminal job, or a job currently
// executing on its robot, is returned unchanged (cancelling an
// in-flight job is not supported by this operation — see DESIGN.md).
// Otherwise it is removed from its robot's queue, marked CANCELED and
// persisted.
func (c *Controller) CancelJobOrder(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	job, err := c.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrJobNotFound, id)
	}
	if job.Status.IsTerminal() {
		return job, nil
	}
	if current := c.fleet.GetCurrentJob(job.HandlingRobot); current != nil && current.ID == job.ID {
		return job, nil
	}

	c.fleet.RemoveQueuedJob(job.HandlingRobot, job.ID)
	job.Status = types.StatusCanceled
	if _, err := c.store.SetJob(ctx, *job); err != nil {
		return nil, err
	}
	return job, nil
}

// CancelJobOrders maps CancelJobOrder over ids, skipping any id that errors.
func (c *Controller) CancelJobOrders(ctx context.Context, ids []uuid.UUID) []types.Job {
	canceled := make([]types.Job, 0, len(ids))
	for _, id := range ids {
		job, err := c.CancelJobOrder(ctx, id)
		if err != nil {
			c.log.Warn("cancel_job_orders: skipping", zap.String("job", id.String()), zap.Error(err))
			continue
		}
		canceled = append(canceled, *job)
	}
	return canceled
}

// CancelRequestOrder cancels both of a Request's member jobs and returns it.
func (c *Controller) CancelRequestOrder(ctx context.Context, id uuid.UUID) (*types.Request, error) {
	req, err := c.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrRequestNotFound, id)
	}

	var errs []error
	if _, err := c.CancelJobOrder(ctx, req.Pickup); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.CancelJobOrder(ctx, req.Delivery); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return req, fmt.Errorf("cancel request %s: %v", id, errs)
	}
	return req, nil
}
