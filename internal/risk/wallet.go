package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"github.com/mbd888/nexaguard/internal/logging"
	"github.com/mbd888/nexaguard/internal/sui"
	"github.com/mbd888/nexaguard/internal/traces"
)

// TransactionSampleSize is how many of a wallet's most recent outgoing
// transactions are inspected.
const TransactionSampleSize = 50

// Wallet rule weights and trigger points.
const (
	burnerTxThreshold   = 5 // fewer transactions than this looks like a burner
	burnerWeight        = 20
	scamWeight          = 50
	tokenCreationCutoff = 10 // more creations than this is unusual
	tokenCreationWeight = 10
	lowBalanceSui       = 1.0
	lowBalanceWeight    = 5
)

const (
	walletDescriptionLow      = "This wallet appears to be a standard user wallet with normal activity patterns."
	walletDescriptionMedium   = "WARNING: This wallet has some flags (e.g., low activity, potential spam behavior) that warrant caution."
	walletDescriptionCritical = "CRITICAL: This wallet exhibits high-risk behaviors, including suspicious interactions or patterns associated with scam activity."
)

// ScamDetector decides whether a transaction touched a known-bad contract.
type ScamDetector interface {
	IsScamInteraction(tx sui.TransactionBlock) bool
}

// NoScamDetector flags nothing. There is no scam address list yet; the rule
// it feeds stays wired so a real detector can be dropped in.
type NoScamDetector struct{}

func (NoScamDetector) IsScamInteraction(sui.TransactionBlock) bool { return false }

// WalletFacts are the inputs to the wallet rules.
type WalletFacts struct {
	Transactions     int
	CreatedTokens    int
	ScamInteractions int
	Balance          float64 // in SUI
}

// ScoreWallet applies the wallet rules in order and returns the clamped score
// with the reasons that fired. The low-balance rule adds points without a
// reason.
func ScoreWallet(f WalletFacts) (int, []string) {
	score := 0
	reasons := []string{}

	if f.Transactions < burnerTxThreshold {
		score += burnerWeight
		reasons = append(reasons, "Low transaction history (potential burner)")
	}
	if f.ScamInteractions > 0 {
		score += scamWeight
		reasons = append(reasons, fmt.Sprintf("Detected %d interactions with suspicious contracts", f.ScamInteractions))
	}
	if f.CreatedTokens > tokenCreationCutoff {
		score += tokenCreationWeight
		reasons = append(reasons, "High volume of token creation")
	}
	if f.Balance < lowBalanceSui {
		score += lowBalanceWeight
	}

	return clampScore(score), reasons
}

// DescribeWallet returns the fixed explanation for a wallet level.
func DescribeWallet(level Level) string {
	switch level {
	case LevelCritical:
		return walletDescriptionCritical
	case LevelMedium:
		return walletDescriptionMedium
	default:
		return walletDescriptionLow
	}
}

// WalletDetails are the facts behind a wallet score.
type WalletDetails struct {
	Transactions     int    `json:"transactions"`
	CreatedTokens    int    `json:"createdTokens"`
	ScamInteractions int    `json:"scamInteractions"`
	SuiBalance       string `json:"suiBalance"`
}

// WalletAssessment is the result of a wallet analysis.
type WalletAssessment struct {
	Address     string        `json:"address"`
	RiskLevel   Level         `json:"riskLevel"`
	RiskScore   int           `json:"riskScore"`
	Description string        `json:"description"`
	Details     WalletDetails `json:"details"`
	AIInsight   string        `json:"aiInsight"`
}

// WalletAnalyzer scores wallet addresses.
type WalletAnalyzer struct {
	ledger   Ledger
	detector ScamDetector
	logger   *slog.Logger
}

// NewWalletAnalyzer creates a wallet analyzer reading from ledger.
func NewWalletAnalyzer(ledger Ledger, logger *slog.Logger) *WalletAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WalletAnalyzer{ledger: ledger, detector: NoScamDetector{}, logger: logger}
}

// WithScamDetector replaces the default no-op detector.
func (a *WalletAnalyzer) WithScamDetector(d ScamDetector) *WalletAnalyzer {
	a.detector = d
	return a
}

// Analyze scores address. Both the transaction query and the balance are
// required; if either fails no partial result is returned.
func (a *WalletAnalyzer) Analyze(ctx context.Context, address string) (result *WalletAssessment, err error) {
	defer recoverComputation(&err, "score wallet")

	address = strings.TrimSpace(address)
	if address == "" {
		return nil, failed(&ValidationError{Field: "address", Message: "Address required"})
	}

	ctx = logging.WithAnalysis(ctx, a.logger, "wallet", address)
	log := logging.L(ctx)
	ctx, span := traces.StartSpan(ctx, "risk.AnalyzeWallet", traces.WalletAddr(address))
	defer span.End()

	log.Info("scanning wallet")

	page, err := a.ledger.QueryTransactionBlocks(ctx, sui.TransactionQuery{
		Filter: sui.TransactionFilter{FromAddress: address},
		Options: sui.TransactionResponseOptions{
			ShowEffects:        true,
			ShowInput:          true,
			ShowBalanceChanges: true,
			ShowObjectChanges:  true,
		},
	}, nil, TransactionSampleSize, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction query failed")
		return nil, failed(&FetchError{Op: "query transactions", Err: err})
	}

	var txs []sui.TransactionBlock
	if page != nil {
		txs = page.Data
	}
	log.Debug("transactions fetched", "count", len(txs))

	facts := WalletFacts{Transactions: len(txs)}
	for _, tx := range txs {
		if tx.CreatedImmutable() {
			facts.CreatedTokens++
		}
		if a.detector.IsScamInteraction(tx) {
			facts.ScamInteractions++
		}
	}

	bal, err := a.ledger.GetBalance(ctx, address, sui.NativeCoinType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "balance fetch failed")
		return nil, failed(&FetchError{Op: "fetch balance", Err: err})
	}
	if bal == nil {
		return nil, failed(&FetchError{Op: "fetch balance", Err: fmt.Errorf("empty response")})
	}
	facts.Balance, err = mistToSui(bal.TotalBalance)
	if err != nil {
		return nil, failed(&FetchError{Op: "parse balance", Err: err})
	}

	score, reasons := ScoreWallet(facts)
	level := WalletThresholds.Classify(score)
	span.SetAttributes(traces.RiskScore(score), traces.RiskLevel(string(level)))

	log.Info("wallet scored", "score", score, "level", level,
		"transactions", facts.Transactions, "created_tokens", facts.CreatedTokens)

	return &WalletAssessment{
		Address:     address,
		RiskLevel:   level,
		RiskScore:   score,
		Description: DescribeWallet(level),
		Details: WalletDetails{
			Transactions:     facts.Transactions,
			CreatedTokens:    facts.CreatedTokens,
			ScamInteractions: facts.ScamInteractions,
			SuiBalance:       fmt.Sprintf("%.2f", facts.Balance),
		},
		AIInsight: strings.Join(reasons, ". "),
	}, nil
}

// mistToSui converts a decimal MIST string to SUI.
func mistToSui(raw string) (float64, error) {
	mist, ok := new(big.Float).SetString(strings.TrimSpace(raw))
	if !ok {
		return 0, fmt.Errorf("invalid balance %q", raw)
	}
	whole, _ := new(big.Float).Quo(mist, big.NewFloat(sui.MistPerSui)).Float64()
	return whole, nil
}
