// Package sui is a thin JSON-RPC client for a Sui fullnode.
//
// It covers only the read methods the risk analyzers need. Calls are traced,
// measured, and guarded by a per-method circuit breaker; nothing is retried.
package sui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel/codes"

	"github.com/mbd888/nexaguard/internal/circuitbreaker"
	"github.com/mbd888/nexaguard/internal/metrics"
	"github.com/mbd888/nexaguard/internal/traces"
)

// Default endpoints by network name.
const (
	MainnetURL = "https://fullnode.mainnet.sui.io:443"
	TestnetURL = "https://fullnode.testnet.sui.io:443"
	DevnetURL  = "https://fullnode.devnet.sui.io:443"
)

// FullnodeURL returns the public fullnode endpoint for a network name,
// falling back to mainnet.
func FullnodeURL(network string) string {
	switch network {
	case "testnet":
		return TestnetURL
	case "devnet":
		return DevnetURL
	default:
		return MainnetURL
	}
}

// RPCError is returned for every failed call. Code carries the JSON-RPC error
// code when the node answered with one.
type RPCError struct {
	Method string
	Code   int
	Err    error
}

func (e *RPCError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("sui: %s failed (code %d): %v", e.Method, e.Code, e.Err)
	}
	return fmt.Sprintf("sui: %s failed: %v", e.Method, e.Err)
}

func (e *RPCError) Unwrap() error { return e.Err }

// Config configures the fullnode client.
type Config struct {
	URL              string
	Timeout          time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Client talks to one fullnode.
type Client struct {
	rpc     *rpc.Client
	url     string
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

// Dial creates a client. HTTP endpoints are not contacted until the first
// call.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = MainnetURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	rc, err := rpc.DialOptions(ctx, cfg.URL, rpc.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	if err != nil {
		return nil, fmt.Errorf("sui: dial %s: %w", cfg.URL, err)
	}

	breaker := circuitbreaker.New(cfg.BreakerThreshold, cfg.BreakerCooldown)
	breaker.OnTransition(func(method string, from, to circuitbreaker.State) {
		logger.Warn("fullnode circuit state changed",
			"method", method, "from", from.String(), "to", to.String())
	})

	return &Client{rpc: rc, url: cfg.URL, breaker: breaker, logger: logger}, nil
}

// URL returns the endpoint the client was dialed with.
func (c *Client) URL() string { return c.url }

// Close releases idle connections.
func (c *Client) Close() {
	c.rpc.Close()
}

// call performs one JSON-RPC request.
func (c *Client) call(ctx context.Context, result any, method string, args ...any) error {
	ctx, span := traces.StartSpan(ctx, "sui."+method, traces.RPCMethod(method))
	defer span.End()

	start := time.Now()
	err := c.breaker.Execute(method, countsAsFailure(ctx), func() error {
		return c.rpc.CallContext(ctx, result, method, args...)
	})
	metrics.LedgerRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.LedgerRequestsTotal.WithLabelValues(method, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "rpc call failed")

		rpcErr := &RPCError{Method: method, Err: err}
		var coded rpc.Error
		if errors.As(err, &coded) {
			rpcErr.Code = coded.ErrorCode()
		}
		c.logger.Debug("fullnode call failed", "method", method, "error", err)
		return rpcErr
	}

	metrics.LedgerRequestsTotal.WithLabelValues(method, "ok").Inc()
	return nil
}

// countsAsFailure keeps the caller's own cancellation or deadline from
// tripping the breaker. Node-side timeouts still count.
func countsAsFailure(ctx context.Context) func(error) bool {
	return func(err error) bool {
		if ctx.Err() != nil {
			return false
		}
		return !errors.Is(err, context.Canceled)
	}
}

// QueryTransactionBlocks returns one page of transactions matching query.
func (c *Client) QueryTransactionBlocks(ctx context.Context, query TransactionQuery, cursor *string, limit int, descending bool) (*TransactionBlocksPage, error) {
	var page TransactionBlocksPage
	if err := c.call(ctx, &page, "suix_queryTransactionBlocks", query, cursor, limit, descending); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetBalance returns the total balance of coinType owned by owner.
func (c *Client) GetBalance(ctx context.Context, owner, coinType string) (*Balance, error) {
	var bal Balance
	if err := c.call(ctx, &bal, "suix_getBalance", owner, coinType); err != nil {
		return nil, err
	}
	return &bal, nil
}

// GetNormalizedMoveModulesByPackage returns every module of a package keyed
// by module name.
func (c *Client) GetNormalizedMoveModulesByPackage(ctx context.Context, packageID string) (map[string]NormalizedModule, error) {
	var modules map[string]NormalizedModule
	if err := c.call(ctx, &modules, "sui_getNormalizedMoveModulesByPackage", packageID); err != nil {
		return nil, err
	}
	return modules, nil
}

// GetObject reads one object.
func (c *Client) GetObject(ctx context.Context, objectID string, opts ObjectDataOptions) (*ObjectResponse, error) {
	var obj ObjectResponse
	if err := c.call(ctx, &obj, "sui_getObject", objectID, opts); err != nil {
		return nil, err
	}
	return &obj, nil
}

// GetCoinMetadata returns display metadata for a coin type, or nil when the
// coin has none.
func (c *Client) GetCoinMetadata(ctx context.Context, coinType string) (*CoinMetadata, error) {
	var md *CoinMetadata
	if err := c.call(ctx, &md, "suix_getCoinMetadata", coinType); err != nil {
		return nil, err
	}
	return md, nil
}

// GetTotalSupply returns the raw total supply of a coin type.
func (c *Client) GetTotalSupply(ctx context.Context, coinType string) (*Supply, error) {
	var supply Supply
	if err := c.call(ctx, &supply, "suix_getTotalSupply", coinType); err != nil {
		return nil, err
	}
	return &supply, nil
}

// GetLatestCheckpointSequenceNumber is the cheapest call the node answers;
// the health check uses it.
func (c *Client) GetLatestCheckpointSequenceNumber(ctx context.Context) (string, error) {
	var seq string
	if err := c.call(ctx, &seq, "sui_getLatestCheckpointSequenceNumber"); err != nil {
		return "", err
	}
	return seq, nil
}

// GetLatestSuiSystemState returns the current epoch and validator set.
func (c *Client) GetLatestSuiSystemState(ctx context.Context) (*SystemState, error) {
	var state SystemState
	if err := c.call(ctx, &state, "suix_getLatestSuiSystemState"); err != nil {
		return nil, err
	}
	return &state, nil
}
