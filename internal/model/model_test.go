package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityClientOrderID(t *testing.T) {
	id := Identity{
		Mode:      ModePaper,
		AgentID:   "sentiment",
		OrderType: OrderStockBuy,
		Timestamp: "20260213143022123456",
	}
	assert.Equal(t, "sentiment_20260213143022123456_stockbuy", id.ClientOrderID())
	assert.Equal(t, "paper_sentiment_stockbuy_20260213143022123456.json", id.Filename())
	assert.Equal(t, "20260213", id.DateDir())
}

func TestParseOrderTimestamp(t *testing.T) {
	ts, err := ParseOrderTimestamp("20260213143022123456")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 13, 14, 30, 22, 123456000, time.UTC), ts)
}

func TestParseOrderTimestamp_Invalid(t *testing.T) {
	cases := []struct {
		name string
		ts   string
	}{
		{"too short", "2026021314302212345"},
		{"too long", "202602131430221234567"},
		{"month 13", "20261313143022123456"},
		{"day 32", "20260232143022123456"},
		{"hour 25", "20260213253022123456"},
		{"non-digit", "2026021314302212345x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseOrderTimestamp(tc.ts)
			assert.Error(t, err)
		})
	}
}

func TestModeIsValid(t *testing.T) {
	assert.True(t, Mode("paper").IsValid())
	assert.True(t, Mode("live").IsValid())
	assert.False(t, Mode("Paper").IsValid())
	assert.False(t, Mode("LIVE").IsValid())
	assert.False(t, Mode("sandbox").IsValid())
}

func TestOrderTypeClassification(t *testing.T) {
	assert.Len(t, AllOrderTypes, 13)
	for _, ot := range AllOrderTypes {
		assert.True(t, ot.IsValid(), string(ot))
	}
	assert.False(t, OrderType("stockBuy").IsValid())
	assert.False(t, OrderType("").IsValid())

	assert.True(t, OrderStockBuy.IsSubmission())
	assert.True(t, OrderOptionMulti.IsSubmission())
	assert.False(t, OrderCancel.IsSubmission())
	assert.False(t, OrderMarketData.IsSubmission())

	assert.True(t, OrderCancel.IsCancel())
	assert.False(t, OrderStockSell.IsCancel())
}

func TestStateTransitions(t *testing.T) {
	valid := [][2]State{
		{StateDiscovered, StateClaimed},
		{StateClaimed, StateValidated},
		{StateClaimed, StateFailed},
		{StateValidated, StateAdmitted},
		{StateValidated, StateFailed},
		{StateAdmitted, StateDispatched},
		{StateDispatched, StateSucceeded},
		{StateDispatched, StateFailed},
	}
	for _, tr := range valid {
		assert.NoError(t, ValidateStateTransition(tr[0], tr[1]), "%s → %s", tr[0], tr[1])
	}

	invalid := [][2]State{
		{StateDiscovered, StateValidated}, // skips claim
		{StateClaimed, StateAdmitted},     // skips validation
		{StateValidated, StateDispatched}, // skips admission
		{StateSucceeded, StateFailed},     // terminal
		{StateFailed, StateClaimed},       // terminal
		{StateClaimed, StateDiscovered},   // backwards
	}
	for _, tr := range invalid {
		assert.Error(t, ValidateStateTransition(tr[0], tr[1]), "%s → %s", tr[0], tr[1])
	}
}

func TestJobTransition(t *testing.T) {
	job := &Job{State: StateDiscovered}
	require.NoError(t, job.Transition(StateClaimed))
	require.NoError(t, job.Transition(StateValidated))
	assert.Equal(t, StateValidated, job.State)

	err := job.Transition(StateSucceeded)
	assert.Error(t, err)
	assert.Equal(t, StateValidated, job.State, "failed transition must not mutate state")
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StateSucceeded))
	assert.True(t, IsTerminal(StateFailed))
	assert.False(t, IsTerminal(StateDispatched))
	assert.False(t, IsTerminal(StateDiscovered))
}
