package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/nexaguard/internal/risk"
	"github.com/mbd888/nexaguard/internal/sui"
)

// newNode serves the three calls a wallet diagnosis makes.
func newNode(t *testing.T, validators string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result string
		switch req.Method {
		case "suix_getLatestSuiSystemState":
			result = `{"epoch":"812","activeValidators":` + validators + `}`
		case "suix_queryTransactionBlocks":
			result = `{"data":[{"digest":"a"},{"digest":"b"},{"digest":"c"}],"hasNextPage":false}`
		case "suix_getBalance":
			result = `{"coinType":"0x2::sui::SUI","coinObjectCount":1,"totalBalance":"500000000"}`
		default:
			t.Errorf("unexpected method %s", req.Method)
			result = "null"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_FirstValidator(t *testing.T) {
	node := newNode(t, `[{"suiAddress":"0xval1","name":"one"},{"suiAddress":"0xval2","name":"two"}]`)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-node", node.URL}, &stdout, &stderr))

	var a risk.WalletAssessment
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &a))
	assert.Equal(t, "0xval1", a.Address)
	assert.Equal(t, 25, a.RiskScore)
	assert.Equal(t, risk.LevelLow, a.RiskLevel)
	assert.Contains(t, stderr.String(), "analysis complete")
}

func TestRun_ExplicitAddress(t *testing.T) {
	node := newNode(t, `[]`)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-node", node.URL, "-address", "0xabc"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), `"address": "0xabc"`)
}

func TestRun_NoValidators(t *testing.T) {
	node := newNode(t, `[]`)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-node", node.URL}, &stdout, &stderr)
	assert.ErrorIs(t, err, errNoValidators)
	assert.Empty(t, stdout.String())
}

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-network", "testnet"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, sui.TestnetURL, o.node)

	o, err = parseFlags([]string{"-network", "testnet", "-node", "http://localhost:9000"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", o.node)

	_, err = parseFlags([]string{"-bogus"}, &bytes.Buffer{})
	assert.Error(t, err)
}
