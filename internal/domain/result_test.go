package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// --- ParseMoney ---

func TestParseMoney_WithCurrency(t *testing.T) {
	d, err := ParseMoney("3.12 USD")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("3.12")), d.String())
}

func TestParseMoney_Negative(t *testing.T) {
	d, err := ParseMoney(" -5.00 USD ")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("-5")), d.String())
}

func TestParseMoney_UnicodeMinus(t *testing.T) {
	d, err := ParseMoney("−0.45 USD")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("-0.45")), d.String())
}

func TestParseMoney_ThousandsSeparator(t *testing.T) {
	d, err := ParseMoney("1,024.50 USD")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("1024.5")), d.String())
}

func TestParseMoney_Empty(t *testing.T) {
	_, err := ParseMoney("USD")
	assert.Error(t, err)
}

func TestParseMoney_Garbage(t *testing.T) {
	_, err := ParseMoney("1.2.3")
	assert.Error(t, err)
}

func TestParseCount(t *testing.T) {
	n, err := ParseCount("1,204")
	require.NoError(t, err)
	assert.Equal(t, 1204, n)

	_, err = ParseCount("")
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "+3.10", FormatMoney(dec("3.1")))
	assert.Equal(t, "-5.00", FormatMoney(dec("-5")))
	assert.Equal(t, "0.00", FormatMoney(decimal.Zero))
}

// --- Thresholds ---

func TestThresholds_Boundaries(t *testing.T) {
	th, err := NewThresholds(3, -5)
	require.NoError(t, err)

	cases := []struct {
		pl     string
		reason StopReason
		stop   bool
	}{
		{"3", StopTakeProfit, true},
		{"3.01", StopTakeProfit, true},
		{"2.99", "", false},
		{"0", "", false},
		{"-4.99", "", false},
		{"-5", StopStopLoss, true},
		{"-7.5", StopStopLoss, true},
	}
	for _, c := range cases {
		reason, stop := th.Check(dec(c.pl))
		assert.Equal(t, c.stop, stop, "pl=%s", c.pl)
		assert.Equal(t, c.reason, reason, "pl=%s", c.pl)
	}
}

func TestNewThresholds_Invalid(t *testing.T) {
	_, err := NewThresholds(-5, 3)
	assert.Error(t, err)

	_, err = NewThresholds(1, 1)
	assert.Error(t, err)
}

// --- Panel / Result ---

func TestSnapshotFromTiles_MissingTilesReadAsZero(t *testing.T) {
	snap := SnapshotFromTiles(map[string]string{
		TileTotalProfitLoss: " 3.20 USD ",
		TileNumRuns:         "",
	})
	assert.Equal(t, "3.20 USD", snap.TotalProfitLoss)
	assert.Equal(t, "0", snap.NumRuns)
	assert.Equal(t, "0", snap.ContractsWon)
	assert.Equal(t, "0", snap.TotalStake)
}

func TestNewResult(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	snap := PanelSnapshot{
		NumRuns:         "7",
		ContractsLost:   "3",
		ContractsWon:    "4",
		TotalProfitLoss: "3.45 USD",
		TotalStake:      "7.00 USD",
		TotalPayout:     "10.45 USD",
	}

	r := NewResult("sess-1", 2, at, snap, StopTakeProfit)

	assert.Equal(t, "sess-1", r.SessionID)
	assert.Equal(t, 2, r.Iteration)
	assert.Equal(t, time.UTC, r.Timestamp.Location())
	assert.Equal(t, 7, r.NumRuns)
	assert.Equal(t, 3, r.ContractsLost)
	assert.Equal(t, 4, r.ContractsWon)
	assert.True(t, r.TotalProfitLoss.Equal(dec("3.45")))
	assert.True(t, r.TotalStake.Equal(dec("7")))
	assert.True(t, r.TotalPayout.Equal(dec("10.45")))
	assert.Equal(t, StopTakeProfit, r.StopReason)
}

func TestNewResult_UnparsableTilesAreZero(t *testing.T) {
	r := NewResult("s", 1, time.Now(), PanelSnapshot{NumRuns: "n/a", TotalStake: "-"}, StopStopLoss)
	assert.Equal(t, 0, r.NumRuns)
	assert.True(t, r.TotalStake.IsZero())
}

// --- Summarize ---

func TestSummarize(t *testing.T) {
	results := []Result{
		{Iteration: 1, TotalProfitLoss: dec("3.2"), TotalStake: dec("5"), TotalPayout: dec("8.2"), ContractsWon: 3, ContractsLost: 2, StopReason: StopTakeProfit},
		{Iteration: 2, TotalProfitLoss: dec("-5.1"), TotalStake: dec("6"), TotalPayout: dec("0.9"), ContractsWon: 1, ContractsLost: 5, StopReason: StopStopLoss},
		{Iteration: 3, TotalProfitLoss: dec("3"), TotalStake: dec("4"), TotalPayout: dec("7"), ContractsWon: 3, ContractsLost: 1, StopReason: StopTakeProfit},
	}

	s := Summarize("sess", results)

	assert.Equal(t, 3, s.Iterations)
	assert.Equal(t, 2, s.TakeProfits)
	assert.Equal(t, 1, s.StopLosses)
	assert.True(t, s.NetPL.Equal(dec("1.1")), s.NetPL.String())
	assert.True(t, s.TotalStake.Equal(dec("15")))
	assert.True(t, s.BestPL.Equal(dec("3.2")))
	assert.True(t, s.WorstPL.Equal(dec("-5.1")))
	assert.Equal(t, 7, s.ContractsWon)
	assert.Equal(t, 8, s.ContractsLost)
	assert.InDelta(t, 66.67, s.WinRate(), 0.01)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize("sess", nil)
	assert.Equal(t, 0, s.Iterations)
	assert.True(t, s.NetPL.IsZero())
	assert.Equal(t, 0.0, s.WinRate())
}
