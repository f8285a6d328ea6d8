package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/mbd888/nexaguard/internal/logging"
	"github.com/mbd888/nexaguard/internal/metrics"
	"github.com/mbd888/nexaguard/internal/traces"
)

// UnknownSupply is reported when the total supply cannot be read.
const UnknownSupply = "Unknown"

// Authority states reported for mint and freeze.
const (
	AuthorityEnabled  = "Enabled"
	AuthorityDisabled = "Disabled"
)

const (
	factorMint    = "Mint Authority (inflation risk)"
	factorFreeze  = "Freeze Authority (censorship risk)"
	factorUpgrade = "Upgradeable Contract (code change risk)"

	tokenDescriptionSafe = "SAFE: This token appears to have a fixed supply and immutable contract logic, reducing centralized risk."
)

// ErrCoinTypeFormat is the message for a coin type that is not three
// "::"-separated segments.
const ErrCoinTypeFormat = "Invalid coin type format. Expected format: Package::Module::Symbol"

// CoinType is a parsed Move coin type, package::module::SYMBOL.
type CoinType struct {
	PackageID string
	Module    string
	Symbol    string
}

// ParseCoinType splits raw into its three segments, none of which may be
// empty.
func ParseCoinType(raw string) (CoinType, error) {
	parts := strings.Split(strings.TrimSpace(raw), "::")
	if len(parts) != 3 || slices.Contains(parts, "") {
		return CoinType{}, &ValidationError{Field: "address", Message: ErrCoinTypeFormat}
	}
	return CoinType{PackageID: parts[0], Module: parts[1], Symbol: parts[2]}, nil
}

func (c CoinType) String() string {
	return c.PackageID + "::" + c.Module + "::" + c.Symbol
}

// TokenRisks are the authorities reported for a coin's package.
type TokenRisks struct {
	MintAuthority    string   `json:"mintAuthority"`
	FreezeAuthority  string   `json:"freezeAuthority"`
	IsUpgradeable    bool     `json:"isUpgradeable"`
	MatchedFunctions []string `json:"matchedFunctions"`
}

// TokenAssessment is the result of a token analysis.
type TokenAssessment struct {
	CoinType    string     `json:"coinType"`
	Symbol      string     `json:"symbol"`
	Name        string     `json:"name"`
	Decimals    int        `json:"decimals"`
	TotalSupply string     `json:"totalSupply"`
	Risks       TokenRisks `json:"risks"`
	RiskScore   int        `json:"riskScore"`
	RiskLevel   Level      `json:"riskLevel"`
	Description string     `json:"description"`
	AIInsight   string     `json:"aiInsight"`
}

// TokenAnalyzer scores coin types.
type TokenAnalyzer struct {
	ledger   Ledger
	packages *PackageAnalyzer
	logger   *slog.Logger
}

// NewTokenAnalyzer creates a token analyzer reading from ledger.
func NewTokenAnalyzer(ledger Ledger, logger *slog.Logger) *TokenAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenAnalyzer{
		ledger:   ledger,
		packages: NewPackageAnalyzer(ledger, logger),
		logger:   logger,
	}
}

// Analyze scores coinType. Metadata and supply are best effort; a malformed
// coin type or an internal fault fails the whole analysis.
func (a *TokenAnalyzer) Analyze(ctx context.Context, coinType string) (result *TokenAssessment, err error) {
	defer recoverComputation(&err, "score token")

	coinType = strings.TrimSpace(coinType)
	if coinType == "" {
		return nil, failed(&ValidationError{Field: "address", Message: "Coin type required"})
	}
	ct, err := ParseCoinType(coinType)
	if err != nil {
		return nil, failed(err)
	}

	ctx = logging.WithAnalysis(ctx, a.logger, "token", coinType)
	log := logging.L(ctx)
	ctx, span := traces.StartSpan(ctx, "risk.AnalyzeToken", traces.CoinType(coinType))
	defer span.End()

	log.Info("starting token analysis")

	out := &TokenAssessment{
		CoinType:    coinType,
		Symbol:      ct.Symbol,
		Name:        ct.Symbol,
		TotalSupply: UnknownSupply,
	}

	meta, err := a.ledger.GetCoinMetadata(ctx, coinType)
	switch {
	case err != nil:
		metrics.FallbacksTotal.WithLabelValues("metadata").Inc()
		log.Warn("metadata fetch failed", "error", err)
	case meta != nil:
		if meta.Name != "" {
			out.Name = meta.Name
		}
		if meta.Symbol != "" {
			out.Symbol = meta.Symbol
		}
		out.Decimals = meta.Decimals
	}

	supply, err := a.ledger.GetTotalSupply(ctx, coinType)
	if err == nil && supply != nil {
		var formatted string
		formatted, err = FormatSupply(supply.Value, out.Decimals)
		if err == nil {
			out.TotalSupply = formatted
		}
	}
	if err != nil {
		metrics.FallbacksTotal.WithLabelValues("supply").Inc()
		log.Warn("supply fetch failed", "error", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, failed(&FetchError{Op: "analyze token", Err: err})
	}

	pkg := a.packages.AnalyzePackage(ctx, ct.PackageID, ct.Module)
	// AnalyzePackage absorbs fetch errors; a result built after the request
	// ended would look safe.
	if err := ctx.Err(); err != nil {
		return nil, failed(&FetchError{Op: "analyze token", Err: err})
	}
	caps := pkg.Capabilities

	out.Risks = TokenRisks{
		MintAuthority:    authority(caps.CanMint),
		FreezeAuthority:  authority(caps.CanFreeze),
		IsUpgradeable:    caps.IsUpgradeable,
		MatchedFunctions: caps.MatchedFunctions,
	}
	if out.Risks.MatchedFunctions == nil {
		out.Risks.MatchedFunctions = []string{}
	}

	out.RiskScore = clampScore(pkg.Score)
	out.RiskLevel = TokenThresholds.Classify(out.RiskScore)
	out.Description = DescribeToken(out.RiskLevel, caps)
	out.AIInsight = out.Description

	span.SetAttributes(traces.RiskScore(out.RiskScore), traces.RiskLevel(string(out.RiskLevel)))
	log.Info("token scored", "score", out.RiskScore, "level", out.RiskLevel, "supply", out.TotalSupply)

	return out, nil
}

func authority(enabled bool) string {
	if enabled {
		return AuthorityEnabled
	}
	return AuthorityDisabled
}

// RiskFactors lists the present capabilities in mint, freeze, upgrade order.
func RiskFactors(caps Capabilities) []string {
	var factors []string
	if caps.CanMint {
		factors = append(factors, factorMint)
	}
	if caps.CanFreeze {
		factors = append(factors, factorFreeze)
	}
	if caps.IsUpgradeable {
		factors = append(factors, factorUpgrade)
	}
	return factors
}

// DescribeToken builds the explanation for a token level. LOW always gets the
// fixed safe message, even when an individual capability is present.
func DescribeToken(level Level, caps Capabilities) string {
	factors := strings.Join(RiskFactors(caps), ", ")
	switch level {
	case LevelCritical:
		return fmt.Sprintf("CRITICAL RISK: This token has dangerous capabilities enabled: %s. The owner has significant control over the token's lifecycle.", factors)
	case LevelMedium:
		return fmt.Sprintf("WARNING: This token has some centralized control features: %s. Proceed with caution.", factors)
	default:
		return tokenDescriptionSafe
	}
}

// FormatSupply divides a raw integer supply by 10^decimals, rounding half
// up, and renders it as an en-US grouped whole number, e.g. "1,000,000".
func FormatSupply(raw string, decimals int) (string, error) {
	val, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || val.Sign() < 0 {
		return "", fmt.Errorf("invalid supply %q", raw)
	}
	if decimals < 0 {
		return "", fmt.Errorf("invalid decimals %d", decimals)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, rem := new(big.Int).QuoRem(val, scale, new(big.Int))
	if rem.Lsh(rem, 1).Cmp(scale) >= 0 {
		whole.Add(whole, big.NewInt(1))
	}

	if whole.IsUint64() {
		// message.Printer is not safe for concurrent use.
		p := message.NewPrinter(language.AmericanEnglish)
		return p.Sprint(number.Decimal(whole.Uint64())), nil
	}
	return groupThousands(whole.String()), nil
}

// groupThousands inserts en-US separators into a string of digits. x/text
// number formatting stops at uint64.
func groupThousands(digits string) string {
	var sb strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	sb.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		sb.WriteByte(',')
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}
