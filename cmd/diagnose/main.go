// Command diagnose runs one wallet analysis against a live fullnode and
// prints the assessment as JSON.
//
// Usage:
//
//	go run ./cmd/diagnose                          # first active mainnet validator
//	go run ./cmd/diagnose -address 0x...           # a specific wallet
//	go run ./cmd/diagnose -network testnet -v      # debug logging
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mbd888/nexaguard/internal/logging"
	"github.com/mbd888/nexaguard/internal/risk"
	"github.com/mbd888/nexaguard/internal/sui"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

type options struct {
	address string
	network string
	node    string
	timeout time.Duration
	verbose bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("diagnose", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.address, "address", "", "wallet to analyze (default: first active validator)")
	fs.StringVar(&o.network, "network", "mainnet", "mainnet, testnet or devnet")
	fs.StringVar(&o.node, "node", "", "fullnode JSON-RPC URL (overrides -network)")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "overall deadline")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.node == "" {
		o.node = sui.FullnodeURL(o.network)
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := "info"
	if opts.verbose {
		level = "debug"
	}
	logger := logging.NewWithWriter(stderr, level, "text")

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	client, err := sui.Dial(ctx, sui.Config{URL: opts.node, Timeout: opts.timeout}, logger)
	if err != nil {
		logger.Error("dial fullnode", "url", opts.node, "error", err)
		return err
	}
	defer client.Close()

	address := opts.address
	if address == "" {
		address, err = firstValidator(ctx, client)
		if err != nil {
			logger.Error("pick validator address", "error", err)
			return err
		}
		logger.Info("using first active validator", "address", address)
	}

	start := time.Now()
	a, err := risk.NewWalletAnalyzer(client, logger).Analyze(ctx, address)
	if err != nil {
		logger.Error("wallet analysis failed", "address", address, "error", err)
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	logger.Info("analysis complete",
		slog.String("address", a.Address),
		slog.Int("score", a.RiskScore),
		slog.String("level", string(a.RiskLevel)),
		slog.Int("transactions", a.Details.Transactions),
		slog.String("balance", a.Details.SuiBalance),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

var errNoValidators = errors.New("system state lists no active validators")

func firstValidator(ctx context.Context, c *sui.Client) (string, error) {
	state, err := c.GetLatestSuiSystemState(ctx)
	if err != nil {
		return "", err
	}
	if len(state.ActiveValidators) == 0 {
		return "", errNoValidators
	}
	return state.ActiveValidators[0].SuiAddress, nil
}
