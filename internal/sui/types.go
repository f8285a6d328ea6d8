package sui

import (
	"encoding/json"
	"fmt"
)

// NativeCoinType is the coin type of SUI itself.
const NativeCoinType = "0x2::sui::SUI"

// MistPerSui is the number of MIST in one SUI.
const MistPerSui = 1_000_000_000

// OwnerKind tags how an object is owned.
type OwnerKind string

const (
	OwnerImmutable OwnerKind = "Immutable"
	OwnerAddress   OwnerKind = "AddressOwner"
	OwnerObject    OwnerKind = "ObjectOwner"
	OwnerShared    OwnerKind = "Shared"
	OwnerConsensus OwnerKind = "ConsensusAddressOwner"
	OwnerUnknown   OwnerKind = "Unknown"
)

// Owner is the ownership tag of an object. The node encodes it either as the
// bare string "Immutable" or as a single-key object such as
// {"AddressOwner": "0x..."} or {"Shared": {"initial_shared_version": 7}}.
type Owner struct {
	Kind    OwnerKind `json:"kind"`
	Address string    `json:"address,omitempty"`
}

// IsImmutable reports whether the object is frozen forever.
func (o *Owner) IsImmutable() bool {
	return o != nil && o.Kind == OwnerImmutable
}

// UnmarshalJSON decodes both owner encodings.
func (o *Owner) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag == string(OwnerImmutable) {
			*o = Owner{Kind: OwnerImmutable}
		} else {
			*o = Owner{Kind: OwnerUnknown}
		}
		return nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("sui: decode owner: %w", err)
	}

	switch {
	case tagged[string(OwnerAddress)] != nil:
		*o = Owner{Kind: OwnerAddress, Address: rawString(tagged[string(OwnerAddress)])}
	case tagged[string(OwnerObject)] != nil:
		*o = Owner{Kind: OwnerObject, Address: rawString(tagged[string(OwnerObject)])}
	case tagged[string(OwnerShared)] != nil:
		*o = Owner{Kind: OwnerShared}
	case tagged[string(OwnerConsensus)] != nil:
		var c struct {
			Owner string `json:"owner"`
		}
		_ = json.Unmarshal(tagged[string(OwnerConsensus)], &c)
		*o = Owner{Kind: OwnerConsensus, Address: c.Owner}
	default:
		*o = Owner{Kind: OwnerUnknown}
	}
	return nil
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// ObjectRef identifies one version of an object.
type ObjectRef struct {
	ObjectID string          `json:"objectId"`
	Version  json.RawMessage `json:"version,omitempty"`
	Digest   string          `json:"digest"`
}

// OwnedObjectRef is an object reference together with its owner, as reported
// in transaction effects.
type OwnedObjectRef struct {
	Owner     Owner     `json:"owner"`
	Reference ObjectRef `json:"reference"`
}

// TransactionEffects is the subset of effects the analyzers read.
type TransactionEffects struct {
	Status struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	} `json:"status"`
	Created []OwnedObjectRef `json:"created,omitempty"`
	Mutated []OwnedObjectRef `json:"mutated,omitempty"`
}

// TransactionBlock is one entry of a transaction query.
type TransactionBlock struct {
	Digest      string              `json:"digest"`
	TimestampMs string              `json:"timestampMs,omitempty"`
	Effects     *TransactionEffects `json:"effects,omitempty"`
}

// CreatedImmutable reports whether the transaction created at least one
// immutable object, which is how published packages show up.
func (tx TransactionBlock) CreatedImmutable() bool {
	if tx.Effects == nil {
		return false
	}
	for _, ref := range tx.Effects.Created {
		if ref.Owner.IsImmutable() {
			return true
		}
	}
	return false
}

// TransactionBlocksPage is one page of suix_queryTransactionBlocks.
type TransactionBlocksPage struct {
	Data        []TransactionBlock `json:"data"`
	NextCursor  *string            `json:"nextCursor"`
	HasNextPage bool               `json:"hasNextPage"`
}

// TransactionFilter selects transactions. Only the sender filter is used.
type TransactionFilter struct {
	FromAddress string `json:"FromAddress,omitempty"`
}

// TransactionResponseOptions controls which parts of a transaction the node
// returns.
type TransactionResponseOptions struct {
	ShowInput          bool `json:"showInput,omitempty"`
	ShowEffects        bool `json:"showEffects,omitempty"`
	ShowEvents         bool `json:"showEvents,omitempty"`
	ShowObjectChanges  bool `json:"showObjectChanges,omitempty"`
	ShowBalanceChanges bool `json:"showBalanceChanges,omitempty"`
}

// TransactionQuery is the first positional argument of
// suix_queryTransactionBlocks.
type TransactionQuery struct {
	Filter  TransactionFilter          `json:"filter"`
	Options TransactionResponseOptions `json:"options"`
}

// Balance is the result of suix_getBalance. TotalBalance is a decimal string
// in the coin's smallest unit.
type Balance struct {
	CoinType        string `json:"coinType"`
	CoinObjectCount int    `json:"coinObjectCount"`
	TotalBalance    string `json:"totalBalance"`
}

// NormalizedModule is the subset of a normalized Move module the analyzers
// read: the names of its exposed functions.
type NormalizedModule struct {
	Address          string                     `json:"address"`
	Name             string                     `json:"name"`
	ExposedFunctions map[string]json.RawMessage `json:"exposedFunctions"`
}

// FunctionNames returns the exposed function names in no particular order.
func (m NormalizedModule) FunctionNames() []string {
	names := make([]string, 0, len(m.ExposedFunctions))
	for name := range m.ExposedFunctions {
		names = append(names, name)
	}
	return names
}

// ObjectDataOptions controls which parts of an object the node returns.
type ObjectDataOptions struct {
	ShowType    bool `json:"showType,omitempty"`
	ShowOwner   bool `json:"showOwner,omitempty"`
	ShowContent bool `json:"showContent,omitempty"`
}

// ObjectData is the subset of object data the analyzers read.
type ObjectData struct {
	ObjectID string `json:"objectId"`
	Digest   string `json:"digest"`
	Type     string `json:"type,omitempty"`
	Owner    *Owner `json:"owner,omitempty"`
}

// ObjectError is returned in place of data when an object cannot be read.
type ObjectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id,omitempty"`
}

// ObjectResponse is the result of sui_getObject.
type ObjectResponse struct {
	Data  *ObjectData  `json:"data,omitempty"`
	Error *ObjectError `json:"error,omitempty"`
}

// CoinMetadata is the result of suix_getCoinMetadata.
type CoinMetadata struct {
	ID          *string `json:"id,omitempty"`
	Decimals    int     `json:"decimals"`
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	IconURL     *string `json:"iconUrl,omitempty"`
}

// Supply is the result of suix_getTotalSupply.
type Supply struct {
	Value string `json:"value"`
}

// ValidatorSummary is the subset of an active validator the CLI reads.
type ValidatorSummary struct {
	SuiAddress string `json:"suiAddress"`
	Name       string `json:"name"`
}

// SystemState is the subset of suix_getLatestSuiSystemState the CLI reads.
type SystemState struct {
	Epoch            string             `json:"epoch"`
	ActiveValidators []ValidatorSummary `json:"activeValidators"`
}
