package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Thresholds es la condición de parada: dos umbrales fijos sobre el P/L acumulado.
type Thresholds struct {
	TakeProfit decimal.Decimal // parar cuando P/L >= TakeProfit
	StopLoss   decimal.Decimal // parar cuando P/L <= StopLoss
}

// NewThresholds crea los umbrales desde la configuración.
func NewThresholds(takeProfit, stopLoss float64) (Thresholds, error) {
	t := Thresholds{
		TakeProfit: decimal.NewFromFloat(takeProfit),
		StopLoss:   decimal.NewFromFloat(stopLoss),
	}
	if !t.StopLoss.LessThan(t.TakeProfit) {
		return Thresholds{}, fmt.Errorf("domain.NewThresholds: stop loss %s must be below take profit %s",
			t.StopLoss, t.TakeProfit)
	}
	return t, nil
}

// Check devuelve el motivo de parada si el P/L cruzó algún umbral.
// Los dos bordes son inclusivos.
func (t Thresholds) Check(pl decimal.Decimal) (StopReason, bool) {
	if pl.GreaterThanOrEqual(t.TakeProfit) {
		return StopTakeProfit, true
	}
	if pl.LessThanOrEqual(t.StopLoss) {
		return StopStopLoss, true
	}
	return "", false
}
