package types

// NodeType classifies a Node in the warehouse path graph.
type NodeType int

const (
	NodeWaypoint NodeType = iota
	NodeConveyor
	NodeShelf
	NodeCell
	NodeDepot
)

func (t NodeType) String() string {
	switch t {
	case NodeWaypoint:
		return "WAYPOINT"
	case NodeConveyor:
		return "CONVEYOR"
	case NodeShelf:
		return "SHELF"
	case NodeCell:
		return "CELL"
	case NodeDepot:
		return "DEPOT"
	default:
		return "UNKNOWN"
	}
}

// JobOperation is the action a Job asks a robot to perform at its target node.
type JobOperation int

const (
	OpTravel JobOperation = iota
	OpPickup
	OpDelivery
)

func (o JobOperation) String() string {
	switch o {
	case OpTravel:
		return "TRAVEL"
	case OpPickup:
		return "PICKUP"
	case OpDelivery:
		return "DELIVERY"
	default:
		return "UNKNOWN"
	}
}

// OrderStatus is the lifecycle status of a Job, and the derived status of a Request.
type OrderStatus int

const (
	StatusQueuing OrderStatus = iota
	StatusInProgress
	StatusFailed
	StatusCanceled
	StatusCompleted
)

func (s OrderStatus) String() string {
	switch s {
	case StatusQueuing:
		return "QUEUING"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusFailed:
		return "FAILED"
	case StatusCanceled:
		return "CANCELED"
	case StatusCompleted:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further status transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusFailed, StatusCanceled, StatusCompleted:
		return true
	default:
		return false
	}
}

// RobotConnectionStatus reflects transport health for a robot.
type RobotConnectionStatus int

const (
	ConnOffline RobotConnectionStatus = iota
	ConnOnline
)

func (c RobotConnectionStatus) String() string {
	if c == ConnOnline {
		return "ONLINE"
	}
	return "OFFLINE"
}

// RobotActionStatus is the local FSM state of a RobotHandler.
type RobotActionStatus int

const (
	ActionIdle RobotActionStatus = iota
	ActionOperating
	ActionError
	ActionCanceled
	ActionSucceeded
)

func (a RobotActionStatus) String() string {
	switch a {
	case ActionIdle:
		return "IDLE"
	case ActionOperating:
		return "OPERATING"
	case ActionError:
		return "ERROR"
	case ActionCanceled:
		return "CANCELED"
	case ActionSucceeded:
		return "SUCCEEDED"
	default:
		return "UNKNOWN"
	}
}

// IsReady reports whether trigger may dispatch a job while the robot is in this state.
func (a RobotActionStatus) IsReady() bool {
	switch a {
	case ActionIdle, ActionCanceled, ActionSucceeded:
		return true
	default:
		return false
	}
}

// TransportResult is the terminal outcome reported by RobotTransport for a goal.
type TransportResult int

const (
	ResultSucceeded TransportResult = iota
	ResultCanceled
	ResultAborted
)

func (r TransportResult) String() string {
	switch r {
	case ResultSucceeded:
		return "SUCCEEDED"
	case ResultCanceled:
		return "CANCELED"
	case ResultAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}
