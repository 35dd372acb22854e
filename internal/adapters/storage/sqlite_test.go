package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/derivbot/internal/adapters/storage"
	"github.com/alejandrodnm/derivbot/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeResult(sessionID string, iteration int, pl string, reason domain.StopReason) domain.Result {
	return domain.Result{
		SessionID:       sessionID,
		Timestamp:       time.Now().UTC().Truncate(time.Second),
		Iteration:       iteration,
		TotalStake:      decimal.RequireFromString("6.5"),
		TotalPayout:     decimal.RequireFromString("9.75"),
		NumRuns:         6,
		ContractsLost:   2,
		ContractsWon:    4,
		TotalProfitLoss: decimal.RequireFromString(pl),
		StopReason:      reason,
	}
}

func openStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func startSession(t *testing.T, db *storage.SQLiteStorage, id string, at time.Time) {
	t.Helper()
	require.NoError(t, db.StartSession(context.Background(), domain.Session{
		ID:        id,
		StartedAt: at,
		BotURL:    "https://dbot.deriv.com/#bot_builder",
	}))
}

func TestSQLiteStorage_SaveAndGetResults(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()
	startSession(t, db, "s1", time.Now())

	require.NoError(t, db.SaveResult(ctx, makeResult("s1", 2, "-5.10", domain.StopStopLoss)))
	require.NoError(t, db.SaveResult(ctx, makeResult("s1", 1, "3.25", domain.StopTakeProfit)))

	results, err := db.GetSessionResults(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Ordenados por iteración
	assert.Equal(t, 1, results[0].Iteration)
	assert.True(t, results[0].TotalProfitLoss.Equal(decimal.RequireFromString("3.25")))
	assert.True(t, results[0].TotalPayout.Equal(decimal.RequireFromString("9.75")))
	assert.Equal(t, domain.StopTakeProfit, results[0].StopReason)
	assert.Equal(t, 4, results[0].ContractsWon)
	assert.False(t, results[0].Timestamp.IsZero())

	assert.Equal(t, 2, results[1].Iteration)
	assert.Equal(t, domain.StopStopLoss, results[1].StopReason)
}

func TestSQLiteStorage_SaveResultIsIdempotentPerIteration(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()
	startSession(t, db, "s1", time.Now())

	require.NoError(t, db.SaveResult(ctx, makeResult("s1", 1, "3", domain.StopTakeProfit)))
	require.NoError(t, db.SaveResult(ctx, makeResult("s1", 1, "4", domain.StopTakeProfit)))

	results, err := db.GetSessionResults(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].TotalProfitLoss.Equal(decimal.NewFromInt(4)))
}

func TestSQLiteStorage_GetResults_UnknownSession(t *testing.T) {
	db := openStore(t)

	results, err := db.GetSessionResults(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLiteStorage_ListSessions(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	startSession(t, db, "old", now.Add(-2*time.Hour))
	startSession(t, db, "new", now.Add(-time.Hour))
	require.NoError(t, db.FinishSession(ctx, "old", now.Add(-90*time.Minute), 20))

	sessions, err := db.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, "new", sessions[0].ID)
	assert.Nil(t, sessions[0].FinishedAt)

	assert.Equal(t, "old", sessions[1].ID)
	require.NotNil(t, sessions[1].FinishedAt)
	assert.Equal(t, 20, sessions[1].Iterations)
}

func TestSQLiteStorage_FinishUnknownSession(t *testing.T) {
	db := openStore(t)
	err := db.FinishSession(context.Background(), "ghost", time.Now(), 1)
	assert.Error(t, err)
}
