package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StopReason indica por qué se detuvo una ejecución del bot.
type StopReason string

const (
	StopTakeProfit StopReason = "take_profit"
	StopStopLoss   StopReason = "stop_loss"
	StopTimeout    StopReason = "timeout" // se superó max_run_seconds
)

// Icon devuelve un indicador corto para la consola.
func (r StopReason) Icon() string {
	switch r {
	case StopTakeProfit:
		return "TP"
	case StopStopLoss:
		return "SL"
	case StopTimeout:
		return "TO"
	default:
		return "??"
	}
}

// Result es el registro persistente de una iteración completada.
// Se escribe una sola vez (append-only); una fila por iteración.
type Result struct {
	SessionID       string
	Timestamp       time.Time
	Iteration       int
	TotalStake      decimal.Decimal
	TotalPayout     decimal.Decimal
	NumRuns         int
	ContractsLost   int
	ContractsWon    int
	TotalProfitLoss decimal.Decimal
	StopReason      StopReason
}

// NewResult construye el Result de una iteración a partir del panel leído tras el stop.
// Los tiles que no se pueden parsear cuentan como cero, igual que un tile ausente.
func NewResult(sessionID string, iteration int, at time.Time, panel PanelSnapshot, reason StopReason) Result {
	return Result{
		SessionID:       sessionID,
		Timestamp:       at.UTC(),
		Iteration:       iteration,
		TotalStake:      moneyOrZero(panel.TotalStake),
		TotalPayout:     moneyOrZero(panel.TotalPayout),
		NumRuns:         countOrZero(panel.NumRuns),
		ContractsLost:   countOrZero(panel.ContractsLost),
		ContractsWon:    countOrZero(panel.ContractsWon),
		TotalProfitLoss: moneyOrZero(panel.TotalProfitLoss),
		StopReason:      reason,
	}
}

func moneyOrZero(s string) decimal.Decimal {
	d, err := ParseMoney(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func countOrZero(s string) int {
	n, err := ParseCount(s)
	if err != nil {
		return 0
	}
	return n
}
