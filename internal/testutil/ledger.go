// Package testutil provides shared test infrastructure.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mbd888/nexaguard/internal/sui"
)

// ErrUnavailable is the default failure injected by Ledger.
var ErrUnavailable = errors.New("fullnode unavailable")

// Ledger is an in-memory fullnode. Zero-valued fields return empty results;
// the *Err fields make the matching call fail.
//
//	l := testutil.NewLedger()
//	l.Transactions = testutil.Transactions(3, 0)
//	l.BalanceMist = "500000000"
type Ledger struct {
	mu sync.Mutex

	Transactions []sui.TransactionBlock
	BalanceMist  string
	Modules      map[string]sui.NormalizedModule
	Owner        *sui.Owner
	ObjectErr    *sui.ObjectError
	Metadata     *sui.CoinMetadata
	Supply       string
	Checkpoint   string

	TxErr         error
	BalanceErr    error
	ModulesErr    error
	OwnerErr      error
	MetadataErr   error
	SupplyErr     error
	CheckpointErr error

	Calls map[string]int
}

// NewLedger returns a ledger holding an empty zero-balance wallet.
func NewLedger() *Ledger {
	return &Ledger{BalanceMist: "0", Checkpoint: "1", Calls: map[string]int{}}
}

func (l *Ledger) record(method string) {
	l.mu.Lock()
	if l.Calls == nil {
		l.Calls = map[string]int{}
	}
	l.Calls[method]++
	l.mu.Unlock()
}

// CallCount returns how often method was called.
func (l *Ledger) CallCount(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Calls[method]
}

func (l *Ledger) QueryTransactionBlocks(_ context.Context, _ sui.TransactionQuery, _ *string, limit int, _ bool) (*sui.TransactionBlocksPage, error) {
	l.record("suix_queryTransactionBlocks")
	if l.TxErr != nil {
		return nil, l.TxErr
	}
	txs := l.Transactions
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return &sui.TransactionBlocksPage{Data: txs}, nil
}

func (l *Ledger) GetBalance(_ context.Context, _, coinType string) (*sui.Balance, error) {
	l.record("suix_getBalance")
	if l.BalanceErr != nil {
		return nil, l.BalanceErr
	}
	return &sui.Balance{CoinType: coinType, TotalBalance: l.BalanceMist}, nil
}

func (l *Ledger) GetNormalizedMoveModulesByPackage(context.Context, string) (map[string]sui.NormalizedModule, error) {
	l.record("sui_getNormalizedMoveModulesByPackage")
	if l.ModulesErr != nil {
		return nil, l.ModulesErr
	}
	return l.Modules, nil
}

func (l *Ledger) GetObject(_ context.Context, id string, _ sui.ObjectDataOptions) (*sui.ObjectResponse, error) {
	l.record("sui_getObject")
	if l.OwnerErr != nil {
		return nil, l.OwnerErr
	}
	if l.ObjectErr != nil {
		return &sui.ObjectResponse{Error: l.ObjectErr}, nil
	}
	return &sui.ObjectResponse{Data: &sui.ObjectData{ObjectID: id, Owner: l.Owner}}, nil
}

func (l *Ledger) GetCoinMetadata(context.Context, string) (*sui.CoinMetadata, error) {
	l.record("suix_getCoinMetadata")
	if l.MetadataErr != nil {
		return nil, l.MetadataErr
	}
	return l.Metadata, nil
}

func (l *Ledger) GetTotalSupply(context.Context, string) (*sui.Supply, error) {
	l.record("suix_getTotalSupply")
	if l.SupplyErr != nil {
		return nil, l.SupplyErr
	}
	if l.Supply == "" {
		return nil, nil
	}
	return &sui.Supply{Value: l.Supply}, nil
}

func (l *Ledger) GetLatestCheckpointSequenceNumber(context.Context) (string, error) {
	l.record("sui_getLatestCheckpointSequenceNumber")
	if l.CheckpointErr != nil {
		return "", l.CheckpointErr
	}
	return l.Checkpoint, nil
}

// Transactions builds n transactions. The first created of them each
// published an immutable object.
func Transactions(n, created int) []sui.TransactionBlock {
	txs := make([]sui.TransactionBlock, n)
	for i := range txs {
		txs[i] = sui.TransactionBlock{Digest: fmt.Sprintf("tx%d", i), Effects: &sui.TransactionEffects{}}
		if i < created {
			txs[i].Effects.Created = []sui.OwnedObjectRef{{Owner: sui.Owner{Kind: sui.OwnerImmutable}}}
		}
	}
	return txs
}

// Module builds a normalized module exposing fns.
func Module(name string, fns ...string) sui.NormalizedModule {
	m := sui.NormalizedModule{Name: name, ExposedFunctions: map[string]json.RawMessage{}}
	for _, fn := range fns {
		m.ExposedFunctions[fn] = json.RawMessage(`{}`)
	}
	return m
}

// AddressOwner returns an owner tag for a plain account.
func AddressOwner(addr string) *sui.Owner {
	return &sui.Owner{Kind: sui.OwnerAddress, Address: addr}
}

// Immutable returns the immutable owner tag.
func Immutable() *sui.Owner {
	return &sui.Owner{Kind: sui.OwnerImmutable}
}
