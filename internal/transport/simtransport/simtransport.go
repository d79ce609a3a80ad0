// Package simtransport is an in-process simulated RobotTransport, used by
// tests and local runs in place of a real robot connection. It is grounded
// in the teacher's simulated robot execution loop
// (b-librobot/librobot/librobot_robot.go: executeTask/executeCommand):
// each goal is "driven" node by node with a fixed per-hop delay, and a
// terminal result fires once the path is walked (or a fault is injected).
package simtransport

import (
	"context"
	"sync"
	"time"

	"warehousefleet/internal/transport"
	"warehousefleet/internal/types"
)

// StepDuration is the simulated time taken to move between two consecutive
// path nodes, analogous to the teacher's CommandExecutionTime.
const StepDuration = 20 * time.Millisecond

// Client simulates one robot's connection. Safe for concurrent use.
type Client struct {
	mu         sync.Mutex
	connection types.RobotConnectionStatus
	lastTagID  string
	failNext   *types.TransportResult // if set, the next SendGoal settles with this result instead of walking the path
	cancelFn   func()
}

// New creates a simulated transport, online by default, starting at startTagID.
func New(startTagID string) *Client {
	return &Client{
		connection: types.ConnOnline,
		lastTagID:  startTagID,
	}
}

// LastTagID returns the simulated robot's current tag. RobotHandler does not
// call it; it tracks its own last tag from feedback.
func (c *Client) LastTagID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTagID
}

// SetConnectionStatus lets tests flip the simulated link up/down.
func (c *Client) SetConnectionStatus(s types.RobotConnectionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connection = s
}

// ForceNextResult makes the next SendGoal settle immediately with the given
// terminal result instead of walking the path, for exercising
// ABORTED/CANCELED handling in tests.
func (c *Client) ForceNextResult(result types.TransportResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := result
	c.failNext = &r
}

func (c *Client) ConnectionStatus() types.RobotConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connection
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connection = types.ConnOffline
	if c.cancelFn != nil {
		c.cancelFn()
	}
	return nil
}

func (c *Client) SendGoal(ctx context.Context, goal transport.Goal, onFeedback transport.FeedbackCallback, onResult transport.ResultCallback, onError transport.ErrorCallback) (func(), error) {
	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.cancelFn = cancel
	forced := c.failNext
	c.failNext = nil
	c.mu.Unlock()

	go c.run(runCtx, goal, forced, onFeedback, onResult)

	return cancel, nil
}

func (c *Client) run(ctx context.Context, goal transport.Goal, forced *types.TransportResult, onFeedback transport.FeedbackCallback, onResult transport.ResultCallback) {
	if forced != nil {
		onResult(*forced)
		return
	}

	for _, node := range goal.Nodes {
		select {
		case <-ctx.Done():
			onResult(types.ResultCanceled)
			return
		case <-time.After(StepDuration):
		}

		c.mu.Lock()
		c.lastTagID = node.TagID
		c.mu.Unlock()

		if onFeedback != nil {
			onFeedback(transport.Feedback{Pose: node, TagID: node.TagID})
		}
	}

	onResult(types.ResultSucceeded)
}

var _ transport.Client = (*Client)(nil)
