package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exchangetower/tower/internal/model"
)

func TestParseFilename_RoundTrip(t *testing.T) {
	cases := []model.Identity{
		{Mode: model.ModePaper, AgentID: "sentiment", OrderType: model.OrderStockBuy, Timestamp: "20260213143022123456"},
		{Mode: model.ModeLive, AgentID: "a1", OrderType: model.OrderCancel, Timestamp: "20251231235959999999"},
		{Mode: model.ModePaper, AgentID: "momentum7", OrderType: model.OrderOptionMulti, Timestamp: "20260101000000000000"},
		{Mode: model.ModeLive, AgentID: "x", OrderType: model.OrderAccountInfo, Timestamp: "20260606120000000001"},
	}
	for _, want := range cases {
		t.Run(want.Filename(), func(t *testing.T) {
			got, err := ParseFilename(want.Filename())
			require.NoError(t, err)
			assert.Equal(t, want.Mode, got.Mode)
			assert.Equal(t, want.AgentID, got.AgentID)
			assert.Equal(t, want.OrderType, got.OrderType)
			assert.Equal(t, want.Timestamp, got.Timestamp)
			assert.False(t, got.At.IsZero())
		})
	}
}

func TestParseFilename_Invalid(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		code     string
	}{
		{"wrong extension", "paper_agent1_stockbuy_20260213143022123456.yaml", CodeMalformedFilename},
		{"no extension", "paper_agent1_stockbuy_20260213143022123456", CodeMalformedFilename},
		{"three fields", "paper_agent1_20260213143022123456.json", CodeMalformedFilename},
		{"five fields", "paper_agent_1_stockbuy_20260213143022123456.json", CodeMalformedFilename},
		{"uppercase mode", "Paper_agent1_stockbuy_20260213143022123456.json", CodeInvalidMode},
		{"mode synonym", "sim_agent1_stockbuy_20260213143022123456.json", CodeInvalidMode},
		{"uppercase agent", "paper_Agent1_stockbuy_20260213143022123456.json", CodeInvalidAgentID},
		{"agent too long", "paper_abcdefghijklmnopqrstu_stockbuy_20260213143022123456.json", CodeInvalidAgentID},
		{"empty agent", "paper__stockbuy_20260213143022123456.json", CodeInvalidAgentID},
		{"unknown order type", "paper_agent1_stockshort_20260213143022123456.json", CodeUnknownOrderType},
		{"uppercase order type", "paper_agent1_StockBuy_20260213143022123456.json", CodeUnknownOrderType},
		{"timestamp 19 digits", "paper_agent1_stockbuy_2026021314302212345.json", CodeInvalidTimestamp},
		{"timestamp impossible date", "paper_agent1_stockbuy_20260231143022123456.json", CodeInvalidTimestamp},
		{"timestamp non-digit", "paper_agent1_stockbuy_2026021314302212345x.json", CodeInvalidTimestamp},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFilename(tc.filename)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.code, verr.Code)
		})
	}
}
