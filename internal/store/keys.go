package store

import "github.com/google/uuid"

// Key and channel naming, frozen per SPEC_FULL.md §6.

func jobKey(id uuid.UUID) string {
	return "job:" + id.String()
}

func jobUpdateChannel(id uuid.UUID) string {
	return "job:" + id.String() + ":update"
}

func requestKey(id uuid.UUID) string {
	return "request:" + id.String()
}

func requestUpdateChannel(id uuid.UUID) string {
	return "request:" + id.String() + ":update"
}

const updatedPayload = "updated"

const (
	jobKeyPrefix     = "job:"
	requestKeyPrefix = "request:"
)
