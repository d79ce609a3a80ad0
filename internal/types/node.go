package types

// Node is a point in the warehouse path graph, supplied by the RouteOracle.
// Node values are immutable once resolved.
type Node struct {
	ID       int      `json:"id"`
	Alias    string   `json:"alias,omitempty"`
	TagID    string   `json:"tag_id,omitempty"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Height   float64  `json:"height"`
	NodeType NodeType `json:"node_type"`
}
