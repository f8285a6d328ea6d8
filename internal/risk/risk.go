// Package risk scores Sui wallets and coin types.
//
// Both analyzers work the same way: fetch facts from the fullnode, add up a
// handful of weighted rules, clamp to [0, 100] and classify the result with a
// threshold table. The wallet and token tables are deliberately different.
package risk

import (
	"context"

	"github.com/mbd888/nexaguard/internal/sui"
)

// Level is the discrete risk classification.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelCritical Level = "CRITICAL"
)

const (
	minScore = 0
	maxScore = 100
)

// Thresholds maps a score to a Level. A score strictly above Critical is
// CRITICAL, strictly above Medium is MEDIUM, anything else is LOW.
type Thresholds struct {
	Critical int
	Medium   int
}

// WalletThresholds classifies wallet scores.
var WalletThresholds = Thresholds{Critical: 75, Medium: 40}

// TokenThresholds classifies token scores.
var TokenThresholds = Thresholds{Critical: 70, Medium: 30}

// Classify returns the level for score.
func (t Thresholds) Classify(score int) Level {
	switch {
	case score > t.Critical:
		return LevelCritical
	case score > t.Medium:
		return LevelMedium
	default:
		return LevelLow
	}
}

func clampScore(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// Ledger is the part of the fullnode client the analyzers read from.
// *sui.Client satisfies it.
type Ledger interface {
	QueryTransactionBlocks(ctx context.Context, query sui.TransactionQuery, cursor *string, limit int, descending bool) (*sui.TransactionBlocksPage, error)
	GetBalance(ctx context.Context, owner, coinType string) (*sui.Balance, error)
	GetNormalizedMoveModulesByPackage(ctx context.Context, packageID string) (map[string]sui.NormalizedModule, error)
	GetObject(ctx context.Context, objectID string, opts sui.ObjectDataOptions) (*sui.ObjectResponse, error)
	GetCoinMetadata(ctx context.Context, coinType string) (*sui.CoinMetadata, error)
	GetTotalSupply(ctx context.Context, coinType string) (*sui.Supply, error)
}

// fetched is the outcome of an optional fetch: either a value or the error
// that made the caller fall back to a default.
type fetched[T any] struct {
	value T
	err   error
}

func fetch[T any](fn func() (T, error)) fetched[T] {
	v, err := fn()
	return fetched[T]{value: v, err: err}
}

// or returns the fetched value, or def when the fetch failed.
func (f fetched[T]) or(def T) T {
	if f.err != nil {
		return def
	}
	return f.value
}
