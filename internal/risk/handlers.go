package risk

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/nexaguard/internal/history"
	"github.com/mbd888/nexaguard/internal/logging"
	"github.com/mbd888/nexaguard/internal/metrics"
	"github.com/mbd888/nexaguard/internal/validation"
)

// WalletScorer analyzes wallet addresses. *WalletAnalyzer implements it.
type WalletScorer interface {
	Analyze(ctx context.Context, address string) (*WalletAssessment, error)
}

// TokenScorer analyzes coin types. *TokenAnalyzer implements it.
type TokenScorer interface {
	Analyze(ctx context.Context, coinType string) (*TokenAssessment, error)
}

// EventEmitter receives completed analyses, e.g. the realtime hub.
type EventEmitter interface {
	PublishAnalysis(kind, subject string, score int, level string, analysis any)
}

// AnalyzeRequest is the body of both analyze endpoints. For tokens Address
// holds the coin type.
type AnalyzeRequest struct {
	Address string `json:"address"`
}

// Handler provides HTTP endpoints for risk analysis
type Handler struct {
	wallets WalletScorer
	tokens  TokenScorer
	history *history.Log
	events  EventEmitter
}

// NewHandler creates a new risk handler
func NewHandler(wallets WalletScorer, tokens TokenScorer, log *history.Log) *Handler {
	if log == nil {
		log = history.New(history.DefaultCapacity)
	}
	return &Handler{wallets: wallets, tokens: tokens, history: log}
}

// WithEvents publishes every successful analysis to e.
func (h *Handler) WithEvents(e EventEmitter) *Handler {
	h.events = e
	return h
}

// RegisterRoutes sets up analysis endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/analyze-wallet", h.AnalyzeWallet)
	r.POST("/analyze-token", h.AnalyzeToken)
	r.GET("/history", h.History)
}

// AnalyzeWallet scores a wallet address.
// POST /api/analyze-wallet
func (h *Handler) AnalyzeWallet(c *gin.Context) {
	address, ok := bindAddress(c, "Address required")
	if !ok {
		return
	}

	result, err := h.wallets.Analyze(c.Request.Context(), address)
	if err != nil {
		h.fail(c, "wallet", err)
		return
	}

	metrics.ObserveAnalysis("wallet", string(result.RiskLevel), result.RiskScore)
	h.history.Record(history.KindWallet, address, result.RiskScore)
	if h.events != nil {
		h.events.PublishAnalysis("wallet", address, result.RiskScore, string(result.RiskLevel), result)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "analysis": result})
}

// AnalyzeToken scores a coin type.
// POST /api/analyze-token
func (h *Handler) AnalyzeToken(c *gin.Context) {
	coinType, ok := bindAddress(c, "Coin type required")
	if !ok {
		return
	}

	result, err := h.tokens.Analyze(c.Request.Context(), coinType)
	if err != nil {
		h.fail(c, "token", err)
		return
	}

	metrics.ObserveAnalysis("token", string(result.RiskLevel), result.RiskScore)
	h.history.Record(history.KindToken, coinType, result.RiskScore)
	if h.events != nil {
		h.events.PublishAnalysis("token", coinType, result.RiskScore, string(result.RiskLevel), result)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "analysis": result})
}

// History returns recent analyses, most recent first.
// GET /api/history
func (h *Handler) History(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "history": h.history.Snapshot()})
}

// bindAddress reads the address field, writing a 400 with missingMsg when it
// is absent.
func bindAddress(c *gin.Context, missingMsg string) (string, bool) {
	var req AnalyzeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
			return "", false
		}
	}

	addr := strings.TrimSpace(req.Address)
	if errs := validation.Validate(validation.Required("address", addr)); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": missingMsg})
		return "", false
	}
	if errs := validation.Validate(validation.MaxLength("address", addr, validation.MaxStringLength)); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs.Error()})
		return "", false
	}
	return validation.SanitizeString(addr, validation.MaxStringLength), true
}

func (h *Handler) fail(c *gin.Context, kind string, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
		return
	}

	metrics.AnalysisErrorsTotal.WithLabelValues(kind).Inc()
	logging.L(c.Request.Context()).Error(kind+" analysis error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
