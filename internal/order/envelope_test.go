package order

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exchangetower/tower/internal/model"
)

func testIdentity(t *testing.T) model.Identity {
	t.Helper()
	id, err := ParseFilename("paper_sentiment_stockbuy_20260213143022123456.json")
	require.NoError(t, err)
	return id
}

func envelopeBody(t *testing.T, overrides map[string]any) []byte {
	t.Helper()
	body := map[string]any{
		"agent_id":        "sentiment",
		"client_order_id": "sentiment_20260213143022123456_stockbuy",
		"order_type":      "stockbuy",
		"mode":            "paper",
		"payload": map[string]any{
			"symbol": "AAPL", "qty": 10, "order_class": "market", "time_in_force": "day",
		},
	}
	for k, v := range overrides {
		if v == nil {
			delete(body, k)
		} else {
			body[k] = v
		}
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return b
}

func TestDecodeEnvelope_OK(t *testing.T) {
	env, err := DecodeEnvelope(testIdentity(t), envelopeBody(t, nil))
	require.NoError(t, err)
	assert.Equal(t, "sentiment", env.AgentID)
	assert.Equal(t, model.OrderStockBuy, env.OrderType)
	assert.Equal(t, model.ModePaper, env.Mode)
	assert.NotEmpty(t, env.Payload)
}

func TestDecodeEnvelope_ModeMismatch(t *testing.T) {
	_, err := DecodeEnvelope(testIdentity(t), envelopeBody(t, map[string]any{"mode": "live"}))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeModeMismatch, verr.Code)
}

func TestDecodeEnvelope_IdentityMismatch(t *testing.T) {
	cases := []struct {
		name      string
		overrides map[string]any
	}{
		{"agent", map[string]any{"agent_id": "momentum"}},
		{"order type", map[string]any{"order_type": "stocksell"}},
		{"client order id", map[string]any{"client_order_id": "sentiment_20260213143022123456_stocksell"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeEnvelope(testIdentity(t), envelopeBody(t, tc.overrides))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, CodeIdentityMismatch, verr.Code)
		})
	}
}

func TestDecodeEnvelope_SchemaViolations(t *testing.T) {
	cases := []struct {
		name      string
		overrides map[string]any
		code      string
	}{
		{"missing agent_id", map[string]any{"agent_id": nil}, CodeEnvelopeSchema},
		{"missing payload", map[string]any{"payload": nil}, CodeEnvelopeSchema},
		{"payload not object", map[string]any{"payload": "oops"}, CodeEnvelopeSchema},
		{"bad mode value", map[string]any{"mode": "sandbox"}, CodeEnvelopeSchema},
		{"unknown extra field", map[string]any{"priority": 3}, CodeEnvelopeSchema},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeEnvelope(testIdentity(t), envelopeBody(t, tc.overrides))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.code, verr.Code)
		})
	}
}

func TestDecodeEnvelope_NotJSON(t *testing.T) {
	_, err := DecodeEnvelope(testIdentity(t), []byte("{truncated"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeInvalidJSON, verr.Code)
}
