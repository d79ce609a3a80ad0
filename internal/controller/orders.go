package controller

import "warehousefleet/internal/types"

// NodeRef identifies a node by stable id or by human alias; exactly one
// should be set. Shared by every order shape and by the HTTP API layer —
// kept here, in the one package both the controller and internal/api
// depend on, rather than duplicated as API DTOs (avoids the cyclic
// type-reference trap called out in SPEC_FULL.md §3/§9).
type NodeRef struct {
	ID    *int   `json:"id,omitempty" validate:"required_without=Alias"`
	Alias string `json:"alias,omitempty" validate:"required_without=ID"`
}

// JobOrder is {robot_name, operation, target node id or alias}. Resolves to
// one Job.
type JobOrder struct {
	RobotName string             `json:"robot_name" validate:"required"`
	Operation types.JobOperation `json:"operation" validate:"min=0,max=2"`
	Target    NodeRef            `json:"target" validate:"required"`
}

// RequestOrder is {robot_name, pickup node id|alias, delivery node id|alias}.
// Resolves to two jobs bound by one Request, enqueued pickup then delivery
// on the same robot.
type RequestOrder struct {
	RobotName string  `json:"robot_name" validate:"required"`
	Pickup    NodeRef `json:"pickup" validate:"required"`
	Delivery  NodeRef `json:"delivery" validate:"required"`
}

// WarehouseRequestSpec is one request within a WarehouseOrder: just its
// pickup and delivery node refs. The owning robot is derived from which
// assignment's route contains those nodes, not stated directly.
type WarehouseRequestSpec struct {
	Pickup   NodeRef `json:"pickup" validate:"required"`
	Delivery NodeRef `json:"delivery" validate:"required"`
}

// WarehouseAssignment is one robot's ordered route of node refs within a
// WarehouseOrder.
type WarehouseAssignment struct {
	RobotName string    `json:"robot_name" validate:"required"`
	Route     []NodeRef `json:"route" validate:"required,min=1,dive"`
}

// WarehouseOrder is {requests, assignments}: multiple requests routed across
// multiple robots, each robot's jobs ordered by its route.
type WarehouseOrder struct {
	Requests    []WarehouseRequestSpec `json:"requests" validate:"required,min=1,dive"`
	Assignments []WarehouseAssignment  `json:"assignments" validate:"required,min=1,dive"`
}

// Result is the {success, message} envelope shape, per SPEC_FULL.md §7.
// internal/api writes its failure bodies in this shape as gin.H maps and
// returns the created Job or Request on success; it does not use this type.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
