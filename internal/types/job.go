package types

import "github.com/google/uuid"

// Job is an atomic robot task: move to a node and optionally pick up or
// deliver there. Once a Job enters a terminal OrderStatus it never leaves it.
type Job struct {
	ID            uuid.UUID    `json:"id"`
	Status        OrderStatus  `json:"status"`
	Operation     JobOperation `json:"operation"`
	Target        Node         `json:"target_node"`
	Request       uuid.UUID    `json:"request,omitempty"`
	HandlingRobot string       `json:"handling_robot"`
}

// HasRequest reports whether this Job belongs to a Request (as opposed to a
// standalone job-order).
func (j Job) HasRequest() bool {
	return j.Request != uuid.Nil
}

// Request is a pickup-and-delivery pair bound to one robot. Its status is
// never stored; it is always derived from its two jobs (see OrderStore).
type Request struct {
	ID            uuid.UUID `json:"id"`
	Pickup        uuid.UUID `json:"pickup"`
	Delivery      uuid.UUID `json:"delivery"`
	HandlingRobot string    `json:"handling_robot"`
}
