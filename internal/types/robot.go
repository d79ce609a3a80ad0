package types

import "github.com/google/uuid"

// RobotCell is a vertical storage slot on a robot, characterized by a
// physical shelf height. A cell either holds nothing, or holds exactly one
// PICKUP job's id until an operator frees it.
type RobotCell struct {
	Height  float64    `json:"height"`
	Holding *uuid.UUID `json:"holding,omitempty"`
}

// Free reports whether the cell currently holds nothing.
func (c RobotCell) Free() bool {
	return c.Holding == nil
}

// RobotSnapshot is a read-only view of a robot's operational state, produced
// by RobotHandler.ToSnapshot for the query layer.
type RobotSnapshot struct {
	Name             string                `json:"name"`
	Active           bool                  `json:"active"`
	ConnectionStatus RobotConnectionStatus `json:"connection_status"`
	ActionStatus     RobotActionStatus     `json:"action_status"`
	LastTagID        string                `json:"last_tag_id,omitempty"`
	CurrentJob       *Job                  `json:"current_job,omitempty"`
	Queue            []Job                 `json:"queue"`
	Cells            []RobotCell           `json:"cells"`
}
