// Package routeoracle declares the RouteOracle collaborator interface the
// core depends on, and ships a thin HTTP adapter against a concrete
// implementation. Route planning itself is out of scope for this repo;
// every call here is treated as a simple fallible function, possibly
// blocking on network I/O.
package routeoracle

import (
	"context"

	"warehousefleet/internal/types"
)

// Oracle resolves node identifiers and computes shortest paths. All methods
// take an optional graphID; an empty graphID falls back to the adapter's
// constructor-time default. Supplying neither is a programming error.
type Oracle interface {
	GetNodeByID(ctx context.Context, graphID string, id int) (*types.Node, error)
	GetNodeByAlias(ctx context.Context, graphID string, alias string) (*types.Node, error)
	GetNodeByTagID(ctx context.Context, graphID string, tagID string) (*types.Node, error)
	GetNodesByIDs(ctx context.Context, graphID string, ids []int) ([]types.Node, error)
	GetShortestPathByID(ctx context.Context, graphID string, startID, endID int) ([]int, error)
	GetShortestPathByAlias(ctx context.Context, graphID string, startAlias, endAlias string) ([]int, error)
}
