package sui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/layer-3/dealguard/core"
	"github.com/layer-3/dealguard/ports"
)

// Client talks to a Sui fullnode over JSON-RPC
type Client struct {
	rpc *rpc.Client
}

type moveModuleFilter struct {
	MoveModule struct {
		Package string `json:"package"`
		Module  string `json:"module"`
	} `json:"MoveModule"`
}

type eventPage struct {
	Data        []suiEvent      `json:"data"`
	NextCursor  json.RawMessage `json:"nextCursor"`
	HasNextPage bool            `json:"hasNextPage"`
}

type suiEvent struct {
	ID          core.EventID    `json:"id"`
	PackageID   string          `json:"packageId"`
	Module      string          `json:"transactionModule"`
	Sender      string          `json:"sender"`
	Type        string          `json:"type"`
	ParsedJSON  json.RawMessage `json:"parsedJson"`
	TimestampMs string          `json:"timestampMs"`
}

type balance struct {
	CoinType     string `json:"coinType"`
	TotalBalance string `json:"totalBalance"`
}

// Dial connects to the fullnode at url
func Dial(ctx context.Context, url string, httpClient *http.Client) (*Client, error) {
	opts := []rpc.ClientOption{}
	if httpClient != nil {
		opts = append(opts, rpc.WithHTTPClient(httpClient))
	}

	c, err := rpc.DialOptions(ctx, url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial sui node: %w", err)
	}
	return &Client{rpc: c}, nil
}

// QueryEvents calls suix_queryEvents for one package/module pair
func (c *Client) QueryEvents(ctx context.Context, query ports.EventQuery) ([]core.ChainEvent, error) {
	var filter moveModuleFilter
	filter.MoveModule.Package = query.Package
	filter.MoveModule.Module = query.Module

	var page eventPage
	if err := c.rpc.CallContext(ctx, &page, "suix_queryEvents", filter, nil, query.Limit, query.Descending); err != nil {
		return nil, fmt.Errorf("suix_queryEvents failed: %w", err)
	}

	events := make([]core.ChainEvent, 0, len(page.Data))
	for _, e := range page.Data {
		ts, err := strconv.ParseInt(e.TimestampMs, 10, 64)
		if err != nil && e.TimestampMs != "" {
			return nil, fmt.Errorf("bad timestampMs %q in event %s: %w", e.TimestampMs, e.ID.TxDigest, err)
		}
		events = append(events, core.ChainEvent{
			ID:          e.ID,
			Type:        e.Type,
			TimestampMs: ts,
			ParsedJSON:  e.ParsedJSON,
		})
	}
	return events, nil
}

// Balance calls suix_getBalance for the native coin
func (c *Client) Balance(ctx context.Context, owner string) (string, error) {
	addr, err := NormalizeAddress(owner)
	if err != nil {
		return "", err
	}

	var out balance
	if err := c.rpc.CallContext(ctx, &out, "suix_getBalance", addr, nil); err != nil {
		return "", fmt.Errorf("suix_getBalance failed: %w", err)
	}
	return out.TotalBalance, nil
}

// ChainIdentifier returns the identifier of the chain the node serves. It is
// used as a reachability check since dialing over HTTP does not connect.
func (c *Client) ChainIdentifier(ctx context.Context) (string, error) {
	var id string
	if err := c.rpc.CallContext(ctx, &id, "sui_getChainIdentifier"); err != nil {
		return "", fmt.Errorf("sui_getChainIdentifier failed: %w", err)
	}
	return id, nil
}

// Close closes the underlying RPC client
func (c *Client) Close() {
	c.rpc.Close()
}
