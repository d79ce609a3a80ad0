// Package transport declares the RobotTransport collaborator interface: the
// wire protocol talking to each physical robot. SPEC_FULL.md §4.6 treats
// this as an abstract asynchronous command channel and explicitly scopes its
// real network implementation out; only the simulated adapter under
// simtransport/ is shipped here.
package transport

import (
	"context"

	"warehousefleet/internal/types"
)

// Goal is handed to the transport by RobotHandler.send_job. RobotCell is -1
// when unused (TRAVEL and DELIVERY operations).
type Goal struct {
	Nodes     []types.Node
	Operation types.JobOperation
	RobotCell int
}

// Feedback carries an in-flight position/tag update.
type Feedback struct {
	Pose  types.Node
	TagID string
}

// ResultCallback is invoked exactly once per goal, with the transport's
// terminal outcome.
type ResultCallback func(result types.TransportResult)

// FeedbackCallback may be invoked any number of times while a goal runs.
type FeedbackCallback func(fb Feedback)

// ErrorCallback is invoked on a transport-level fault (as opposed to a
// robot-reported ABORTED), e.g. a dropped connection mid-goal.
type ErrorCallback func(err error)

// Client is a single robot's live connection. All three callbacks may fire
// on the transport's own goroutine, not the caller's — RobotHandler
// implementations must not assume callbacks run on any particular
// goroutine.
type Client interface {
	// SendGoal dispatches a goal and registers callbacks for it. It returns
	// a cancel function that requests cancellation of the in-flight goal
	// (best-effort; the terminal callback still fires with whatever the
	// transport settles on).
	SendGoal(ctx context.Context, goal Goal, onFeedback FeedbackCallback, onResult ResultCallback, onError ErrorCallback) (cancel func(), err error)

	// ConnectionStatus reports the transport's current health.
	ConnectionStatus() types.RobotConnectionStatus

	// Close tears down the connection. Any in-flight goal's terminal
	// callback fires with whatever the transport last observed.
	Close() error
}
