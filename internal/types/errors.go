package types

import "errors"

// Sentinel errors for the orchestrator core. Matched with errors.Is/errors.As
// by callers the way the teacher's librobot_errors.go sentinels are matched.
var (
	// ErrNodeNotFound indicates a RouteOracle lookup (by id or alias) found nothing.
	ErrNodeNotFound = errors.New("node not found")
	// ErrUnknownRobot indicates an order named a robot the FleetHandler doesn't know.
	ErrUnknownRobot = errors.New("unknown robot")
	// ErrTravelTargetNotWaypoint indicates a TRAVEL job's target is not a WAYPOINT node.
	ErrTravelTargetNotWaypoint = errors.New("travel job target is not a waypoint")
	// ErrAmbiguousNodeAssignment indicates a warehouse order routed one node to two robots.
	ErrAmbiguousNodeAssignment = errors.New("node assigned to more than one robot")
	// ErrCrossRobotRequest indicates a warehouse order's pickup/delivery nodes resolve to different robots.
	ErrCrossRobotRequest = errors.New("pickup and delivery resolve to different robots")
	// ErrNodeNotInRoute indicates a warehouse order request references a node absent from every assignment's route.
	ErrNodeNotInRoute = errors.New("node not present in any assignment route")

	// ErrNoFreeCell indicates cell allocation at PICKUP start found every cell occupied.
	ErrNoFreeCell = errors.New("no free cell available")
	// ErrUnknownStartTag indicates the robot's last known tag does not resolve to a node.
	ErrUnknownStartTag = errors.New("unknown start tag")
	// ErrNoPathFound indicates the RouteOracle returned an empty path.
	ErrNoPathFound = errors.New("no path found")
	// ErrTransportAborted indicates the transport reported a non-terminal-success outcome.
	ErrTransportAborted = errors.New("transport aborted goal")

	// ErrInconsistentState indicates a Request's pickup or delivery job is missing from the store.
	ErrInconsistentState = errors.New("inconsistent state: referenced job missing")
	// ErrStoreWrite indicates an OrderStore write failed.
	ErrStoreWrite = errors.New("store write failed")

	// ErrJobNotFound indicates a cancel/lookup referenced an unknown job id.
	ErrJobNotFound = errors.New("job not found")
	// ErrRequestNotFound indicates a cancel/lookup referenced an unknown request id.
	ErrRequestNotFound = errors.New("request not found")
)
