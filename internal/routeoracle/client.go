package routeoracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"warehousefleet/internal/types"
)

// ClientConfig configures the HTTP adapter against a real RouteOracle service.
type ClientConfig struct {
	BaseURL        string
	APIKey         string
	DefaultGraph   string
	RequestTimeout time.Duration
}

// Client is the HTTP implementation of Oracle. It wraps every call in a
// circuit breaker so a degraded oracle fails fast instead of stalling every
// RobotHandler.trigger across the fleet.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *zap.Logger
}

// NewClient builds an HTTP RouteOracle adapter. log may be nil, in which
// case a no-op logger is used.
func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "route-oracle",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Named(name).Warn("circuit breaker state change", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		log:        log.Named("route_oracle"),
	}
}

// Connect pings the oracle with capped exponential backoff, used at startup
// so a transient DNS/connect failure doesn't abort the process.
func (c *Client) Connect(ctx context.Context) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if perr := c.ping(ctx); perr != nil {
			c.log.Warn("route oracle unreachable, retrying", zap.Error(perr))
			return struct{}{}, perr
		}
		return struct{}{}, nil
	}, backoff.WithMaxTries(8))
	return err
}

func (c *Client) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("route oracle health check: unexpected status %s", resp.Status)
	}
	return nil
}

func (c *Client) resolveGraph(graphID string) (string, error) {
	if graphID != "" {
		return graphID, nil
	}
	if c.cfg.DefaultGraph != "" {
		return c.cfg.DefaultGraph, nil
	}
	return "", fmt.Errorf("route oracle: no graph id supplied and no default configured")
}

type nodeResponse struct {
	ID       int     `json:"id"`
	Alias    string  `json:"alias"`
	TagID    string  `json:"tag_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Height   float64 `json:"height"`
	NodeType int     `json:"node_type"`
}

func (n nodeResponse) toNode() types.Node {
	return types.Node{
		ID:       n.ID,
		Alias:    n.Alias,
		TagID:    n.TagID,
		X:        n.X,
		Y:        n.Y,
		Height:   n.Height,
		NodeType: types.NodeType(n.NodeType),
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		u := c.cfg.BaseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}

		var reqBody *bytes.Reader
		if body != nil {
			data, merr := json.Marshal(body)
			if merr != nil {
				return nil, merr
			}
			reqBody = bytes.NewReader(data)
		} else {
			reqBody = bytes.NewReader(nil)
		}

		req, rerr := http.NewRequestWithContext(ctx, method, u, reqBody)
		if rerr != nil {
			return nil, rerr
		}
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, derr := c.httpClient.Do(req)
		if derr != nil {
			return nil, derr
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, types.ErrNodeNotFound
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("route oracle: unexpected status %s for %s %s", resp.Status, method, path)
		}
		if out != nil {
			if derr := json.NewDecoder(resp.Body).Decode(out); derr != nil {
				return nil, fmt.Errorf("route oracle: decode response: %w", derr)
			}
		}
		return nil, nil
	})
	return err
}

func (c *Client) GetNodeByID(ctx context.Context, graphID string, id int) (*types.Node, error) {
	graph, err := c.resolveGraph(graphID)
	if err != nil {
		return nil, err
	}
	var resp nodeResponse
	q := url.Values{"graph": {graph}, "id": {strconv.Itoa(id)}}
	if err := c.doJSON(ctx, http.MethodGet, "/nodes/by-id", q, nil, &resp); err != nil {
		return nil, err
	}
	node := resp.toNode()
	return &node, nil
}

func (c *Client) GetNodeByAlias(ctx context.Context, graphID string, alias string) (*types.Node, error) {
	graph, err := c.resolveGraph(graphID)
	if err != nil {
		return nil, err
	}
	var resp nodeResponse
	q := url.Values{"graph": {graph}, "alias": {alias}}
	if err := c.doJSON(ctx, http.MethodGet, "/nodes/by-alias", q, nil, &resp); err != nil {
		return nil, err
	}
	node := resp.toNode()
	return &node, nil
}

func (c *Client) GetNodeByTagID(ctx context.Context, graphID string, tagID string) (*types.Node, error) {
	graph, err := c.resolveGraph(graphID)
	if err != nil {
		return nil, err
	}
	var resp nodeResponse
	q := url.Values{"graph": {graph}, "tag_id": {tagID}}
	if err := c.doJSON(ctx, http.MethodGet, "/nodes/by-tag", q, nil, &resp); err != nil {
		return nil, err
	}
	node := resp.toNode()
	return &node, nil
}

func (c *Client) GetNodesByIDs(ctx context.Context, graphID string, ids []int) ([]types.Node, error) {
	graph, err := c.resolveGraph(graphID)
	if err != nil {
		return nil, err
	}
	var resp []nodeResponse
	body := struct {
		Graph string `json:"graph"`
		IDs   []int  `json:"ids"`
	}{Graph: graph, IDs: ids}
	if err := c.doJSON(ctx, http.MethodPost, "/nodes/batch", nil, body, &resp); err != nil {
		return nil, err
	}
	nodes := make([]types.Node, 0, len(resp))
	for _, n := range resp {
		nodes = append(nodes, n.toNode())
	}
	return nodes, nil
}

func (c *Client) GetShortestPathByID(ctx context.Context, graphID string, startID, endID int) ([]int, error) {
	graph, err := c.resolveGraph(graphID)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Path []int `json:"path"`
	}
	q := url.Values{"graph": {graph}, "start": {strconv.Itoa(startID)}, "end": {strconv.Itoa(endID)}}
	if err := c.doJSON(ctx, http.MethodGet, "/paths/by-id", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Path, nil
}

func (c *Client) GetShortestPathByAlias(ctx context.Context, graphID string, startAlias, endAlias string) ([]int, error) {
	graph, err := c.resolveGraph(graphID)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Path []int `json:"path"`
	}
	q := url.Values{"graph": {graph}, "start": {startAlias}, "end": {endAlias}}
	if err := c.doJSON(ctx, http.MethodGet, "/paths/by-alias", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Path, nil
}

var _ Oracle = (*Client)(nil)
