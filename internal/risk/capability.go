package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mbd888/nexaguard/internal/logging"
	"github.com/mbd888/nexaguard/internal/metrics"
	"github.com/mbd888/nexaguard/internal/sui"
	"github.com/mbd888/nexaguard/internal/traces"
)

// Capability weights in the package score.
const (
	mintWeight    = 40
	freezeWeight  = 30
	upgradeWeight = 20
)

// Capabilities are the authorities a package appears to hold over the coin it
// issues, inferred from function names and package ownership.
type Capabilities struct {
	CanMint          bool     `json:"canMint"`
	CanFreeze        bool     `json:"canFreeze"`
	IsUpgradeable    bool     `json:"isUpgradeable"`
	MatchedFunctions []string `json:"matchedFunctions"`
}

// Score is the package-local score: 40 for mint, 30 for freeze, 20 for
// upgradeable. It is not capped.
func (c Capabilities) Score() int {
	score := 0
	if c.CanMint {
		score += mintWeight
	}
	if c.CanFreeze {
		score += freezeWeight
	}
	if c.IsUpgradeable {
		score += upgradeWeight
	}
	return score
}

// PackageAnalysis is the result of AnalyzePackage.
type PackageAnalysis struct {
	Capabilities Capabilities `json:"risks"`
	Score        int          `json:"score"`
}

// InferCapabilities scans exposed function names (module name → function
// names). With moduleName set only that module is scanned and every match is
// labelled; otherwise all modules are scanned without labels. Matching is a
// case-insensitive substring test: "mint" grants mint, "freeze" or "block"
// grants freeze. IsUpgradeable is left false.
func InferCapabilities(modules map[string][]string, moduleName string) Capabilities {
	caps := Capabilities{MatchedFunctions: []string{}}

	var names []string
	if moduleName != "" {
		if _, ok := modules[moduleName]; ok {
			names = []string{moduleName}
		}
	} else {
		for name := range modules {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	labelled := moduleName != ""
	for _, mod := range names {
		funcs := append([]string(nil), modules[mod]...)
		sort.Strings(funcs)

		for _, fn := range funcs {
			lower := strings.ToLower(fn)
			if strings.Contains(lower, "mint") {
				caps.CanMint = true
				if labelled {
					caps.MatchedFunctions = append(caps.MatchedFunctions, fmt.Sprintf("%s::%s (Mint possible)", mod, fn))
				}
			}
			if strings.Contains(lower, "freeze") || strings.Contains(lower, "block") {
				caps.CanFreeze = true
				if labelled {
					caps.MatchedFunctions = append(caps.MatchedFunctions, fmt.Sprintf("%s::%s (Freeze possible)", mod, fn))
				}
			}
		}
	}
	return caps
}

// PackageAnalyzer inspects Move packages on chain.
type PackageAnalyzer struct {
	ledger Ledger
	logger *slog.Logger
}

// NewPackageAnalyzer creates a package analyzer reading from ledger.
func NewPackageAnalyzer(ledger Ledger, logger *slog.Logger) *PackageAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PackageAnalyzer{ledger: ledger, logger: logger}
}

// AnalyzePackage infers the capabilities of packageID, optionally narrowed to
// one module, and scores them. It never fails: a module fetch error leaves
// mint and freeze unset, an ownership error counts as upgradeable, and any
// internal fault yields the zero analysis.
func (a *PackageAnalyzer) AnalyzePackage(ctx context.Context, packageID, moduleName string) (result PackageAnalysis) {
	log := logging.LOr(ctx, a.logger)
	defer func() {
		if r := recover(); r != nil {
			log.Error("package analysis failed", "package", packageID, "panic", r)
			result = PackageAnalysis{Capabilities: Capabilities{MatchedFunctions: []string{}}}
		}
	}()

	ctx, span := traces.StartSpan(ctx, "risk.AnalyzePackage", traces.PackageID(packageID))
	defer span.End()

	modules := fetch(func() (map[string][]string, error) {
		return a.exposedFunctions(ctx, packageID)
	})
	if modules.err != nil {
		metrics.FallbacksTotal.WithLabelValues("modules").Inc()
		log.Warn("module analysis failed", "package", packageID, "error", modules.err)
	}

	caps := InferCapabilities(modules.or(nil), moduleName)
	caps.IsUpgradeable = a.isUpgradeable(ctx, packageID)

	score := caps.Score()
	span.SetAttributes(traces.RiskScore(score))
	return PackageAnalysis{Capabilities: caps, Score: score}
}

func (a *PackageAnalyzer) exposedFunctions(ctx context.Context, packageID string) (map[string][]string, error) {
	modules, err := a.ledger.GetNormalizedMoveModulesByPackage(ctx, packageID)
	if err != nil {
		return nil, &FetchError{Op: "fetch package modules", Err: err}
	}
	out := make(map[string][]string, len(modules))
	for name, mod := range modules {
		out[name] = mod.FunctionNames()
	}
	return out, nil
}

// isUpgradeable reports false only when the package object is provably
// immutable.
func (a *PackageAnalyzer) isUpgradeable(ctx context.Context, packageID string) bool {
	log := logging.LOr(ctx, a.logger)

	obj, err := a.ledger.GetObject(ctx, packageID, sui.ObjectDataOptions{ShowOwner: true})
	if err != nil {
		metrics.FallbacksTotal.WithLabelValues("ownership").Inc()
		log.Warn("owner check failed", "package", packageID, "error", err)
		return true
	}
	if obj == nil {
		return true
	}
	if obj.Error != nil {
		log.Debug("package object unreadable", "package", packageID, "code", obj.Error.Code)
		return true
	}
	if obj.Data != nil && obj.Data.Owner.IsImmutable() {
		return false
	}
	return true
}
