package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/nexaguard/internal/sui"
	"github.com/mbd888/nexaguard/internal/testutil"
)

func TestScoreWallet_Rules(t *testing.T) {
	healthy := WalletFacts{Transactions: 20, Balance: 10}

	t.Run("burner threshold", func(t *testing.T) {
		for c := 0; c <= 10; c++ {
			f := healthy
			f.Transactions = c
			score, _ := ScoreWallet(f)
			if c < 5 {
				assert.Equal(t, 20, score, "count %d", c)
			} else {
				assert.Equal(t, 0, score, "count %d", c)
			}
		}
	})

	t.Run("scam interactions", func(t *testing.T) {
		f := healthy
		f.ScamInteractions = 3
		score, reasons := ScoreWallet(f)
		assert.Equal(t, 50, score)
		assert.Equal(t, []string{"Detected 3 interactions with suspicious contracts"}, reasons)
	})

	t.Run("token creation is strictly above ten", func(t *testing.T) {
		f := healthy
		f.CreatedTokens = 10
		score, _ := ScoreWallet(f)
		assert.Equal(t, 0, score)

		f.CreatedTokens = 11
		score, reasons := ScoreWallet(f)
		assert.Equal(t, 10, score)
		assert.Equal(t, []string{"High volume of token creation"}, reasons)
	})

	t.Run("low balance has no reason", func(t *testing.T) {
		f := healthy
		f.Balance = 0.99
		score, reasons := ScoreWallet(f)
		assert.Equal(t, 5, score)
		assert.Empty(t, reasons)

		f.Balance = 1.0
		score, _ = ScoreWallet(f)
		assert.Equal(t, 0, score)
	})

	t.Run("all rules", func(t *testing.T) {
		score, reasons := ScoreWallet(WalletFacts{Transactions: 1, ScamInteractions: 1, CreatedTokens: 12, Balance: 0})
		assert.Equal(t, 85, score)
		assert.Len(t, reasons, 3)
		assert.Equal(t, LevelCritical, WalletThresholds.Classify(score))
	})
}

func TestScoreWallet_ReasonsIsNeverNil(t *testing.T) {
	_, reasons := ScoreWallet(WalletFacts{Transactions: 50, Balance: 100})
	assert.NotNil(t, reasons)
	assert.Empty(t, reasons)
}

func TestWalletAnalyzer_LowRiskBurner(t *testing.T) {
	l := testutil.NewLedger()
	l.Transactions = testutil.Transactions(3, 0)
	l.BalanceMist = "500000000"

	res, err := NewWalletAnalyzer(l, nil).Analyze(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.Equal(t, "0xabc", res.Address)
	assert.Equal(t, 25, res.RiskScore)
	assert.Equal(t, LevelLow, res.RiskLevel)
	assert.Equal(t, walletDescriptionLow, res.Description)
	assert.Equal(t, "Low transaction history (potential burner)", res.AIInsight)
	assert.Equal(t, WalletDetails{Transactions: 3, SuiBalance: "0.50"}, res.Details)
}

func TestWalletAnalyzer_CountsCreatedTokens(t *testing.T) {
	l := testutil.NewLedger()
	l.Transactions = testutil.Transactions(TransactionSampleSize, 12)
	l.BalanceMist = "2000000000"

	res, err := NewWalletAnalyzer(l, nil).Analyze(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.Equal(t, 12, res.Details.CreatedTokens)
	assert.Equal(t, 50, res.Details.Transactions)
	assert.Equal(t, "2.00", res.Details.SuiBalance)
	assert.Equal(t, 10, res.RiskScore)
	assert.Equal(t, "High volume of token creation", res.AIInsight)
}

type everyTxIsScam struct{}

func (everyTxIsScam) IsScamInteraction(sui.TransactionBlock) bool { return true }

func TestWalletAnalyzer_ScamDetectorIsWired(t *testing.T) {
	l := testutil.NewLedger()
	l.Transactions = testutil.Transactions(2, 0)
	l.BalanceMist = "0"

	a := NewWalletAnalyzer(l, nil).WithScamDetector(everyTxIsScam{})
	res, err := a.Analyze(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Details.ScamInteractions)
	assert.Equal(t, 75, res.RiskScore)
	assert.Equal(t, LevelMedium, res.RiskLevel)
	assert.Equal(t, walletDescriptionMedium, res.Description)
	assert.Equal(t, "Low transaction history (potential burner). Detected 2 interactions with suspicious contracts", res.AIInsight)
}

func TestWalletAnalyzer_DefaultDetectorFlagsNothing(t *testing.T) {
	l := testutil.NewLedger()
	l.Transactions = testutil.Transactions(10, 0)
	l.BalanceMist = "5000000000"

	res, err := NewWalletAnalyzer(l, nil).Analyze(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Details.ScamInteractions)
	assert.Equal(t, 0, res.RiskScore)
	assert.Equal(t, "", res.AIInsight)
}

func TestWalletAnalyzer_EssentialFetchFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(l *testutil.Ledger)
		op    string
	}{
		{"transactions", func(l *testutil.Ledger) { l.TxErr = testutil.ErrUnavailable }, "query transactions"},
		{"balance", func(l *testutil.Ledger) { l.BalanceErr = testutil.ErrUnavailable }, "fetch balance"},
		{"garbage balance", func(l *testutil.Ledger) { l.BalanceMist = "lots" }, "parse balance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testutil.NewLedger()
			tt.setup(l)

			res, err := NewWalletAnalyzer(l, nil).Analyze(context.Background(), "0xabc")
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrAnalysisFailed))

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.op, fe.Op)
		})
	}
}

func TestWalletAnalyzer_TransactionFailureSkipsBalance(t *testing.T) {
	l := testutil.NewLedger()
	l.TxErr = testutil.ErrUnavailable

	_, err := NewWalletAnalyzer(l, nil).Analyze(context.Background(), "0xabc")
	require.Error(t, err)
	assert.Equal(t, 0, l.CallCount("suix_getBalance"))
}

func TestWalletAnalyzer_MissingAddress(t *testing.T) {
	l := testutil.NewLedger()

	_, err := NewWalletAnalyzer(l, nil).Analyze(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, 0, l.CallCount("suix_queryTransactionBlocks"))
}

func TestDescribeWallet(t *testing.T) {
	assert.Equal(t, walletDescriptionLow, DescribeWallet(LevelLow))
	assert.Equal(t, walletDescriptionMedium, DescribeWallet(LevelMedium))
	assert.Equal(t, walletDescriptionCritical, DescribeWallet(LevelCritical))
}

func TestMistToSui(t *testing.T) {
	v, err := mistToSui("1500000000")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, v, 1e-9)

	v, err = mistToSui("18446744073709551615000")
	require.NoError(t, err)
	assert.InDelta(t, 18446744073709.551615, v, 1)

	_, err = mistToSui("")
	assert.Error(t, err)
}
