package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"warehousefleet/internal/types"
)

// Each record is a flat map of strings, matching the wire layout in
// SPEC_FULL.md §6. Nested values (the target Node) are JSON-encoded text;
// enums are stored as their integer code; uuids are stringified.
// Deserializers tolerate missing optional fields (left at their zero value)
// and never panic: an empty record yields a nil job/request, and a field
// that fails to parse yields an error.

func jobToFields(j types.Job) (map[string]string, error) {
	targetJSON, err := json.Marshal(j.Target)
	if err != nil {
		return nil, fmt.Errorf("marshal job target node: %w", err)
	}

	request := ""
	if j.Request != uuid.Nil {
		request = j.Request.String()
	}

	return map[string]string{
		"status":         strconv.Itoa(int(j.Status)),
		"operation":      strconv.Itoa(int(j.Operation)),
		"target_node":    string(targetJSON),
		"request":        request,
		"handling_robot": j.HandlingRobot,
	}, nil
}

func fieldsToJob(id uuid.UUID, fields map[string]string) (*types.Job, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	j := types.Job{ID: id}

	if v, ok := fields["status"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("job %s: parse status: %w", id, err)
		}
		j.Status = types.OrderStatus(n)
	}
	if v, ok := fields["operation"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("job %s: parse operation: %w", id, err)
		}
		j.Operation = types.JobOperation(n)
	}
	if v, ok := fields["target_node"]; ok && v != "" {
		var node types.Node
		if err := json.Unmarshal([]byte(v), &node); err != nil {
			return nil, fmt.Errorf("job %s: parse target node: %w", id, err)
		}
		j.Target = node
	}
	if v, ok := fields["request"]; ok && v != "" {
		rid, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("job %s: parse request id: %w", id, err)
		}
		j.Request = rid
	}
	if v, ok := fields["handling_robot"]; ok {
		j.HandlingRobot = v
	}

	return &j, nil
}

func requestToFields(r types.Request) map[string]string {
	return map[string]string{
		"pickup":         r.Pickup.String(),
		"delivery":       r.Delivery.String(),
		"handling_robot": r.HandlingRobot,
	}
}

func fieldsToRequest(id uuid.UUID, fields map[string]string) (*types.Request, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	r := types.Request{ID: id}

	if v, ok := fields["pickup"]; ok && v != "" {
		pid, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("request %s: parse pickup id: %w", id, err)
		}
		r.Pickup = pid
	}
	if v, ok := fields["delivery"]; ok && v != "" {
		did, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("request %s: parse delivery id: %w", id, err)
		}
		r.Delivery = did
	}
	if v, ok := fields["handling_robot"]; ok {
		r.HandlingRobot = v
	}

	return &r, nil
}
