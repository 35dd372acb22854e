package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session es la cabecera de una ejecución completa del programa.
type Session struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	BotURL     string
	Iterations int
}

// SessionSummary agrega los resultados de una sesión para el reporte final.
type SessionSummary struct {
	SessionID     string
	Iterations    int
	TakeProfits   int
	StopLosses    int
	Timeouts      int
	NetPL         decimal.Decimal
	TotalStake    decimal.Decimal
	TotalPayout   decimal.Decimal
	BestPL        decimal.Decimal
	WorstPL       decimal.Decimal
	ContractsWon  int
	ContractsLost int
}

// Summarize calcula el resumen de una lista de resultados de la misma sesión.
func Summarize(sessionID string, results []Result) SessionSummary {
	s := SessionSummary{SessionID: sessionID}
	for i, r := range results {
		s.Iterations++
		switch r.StopReason {
		case StopTakeProfit:
			s.TakeProfits++
		case StopStopLoss:
			s.StopLosses++
		case StopTimeout:
			s.Timeouts++
		}
		s.NetPL = s.NetPL.Add(r.TotalProfitLoss)
		s.TotalStake = s.TotalStake.Add(r.TotalStake)
		s.TotalPayout = s.TotalPayout.Add(r.TotalPayout)
		s.ContractsWon += r.ContractsWon
		s.ContractsLost += r.ContractsLost

		if i == 0 || r.TotalProfitLoss.GreaterThan(s.BestPL) {
			s.BestPL = r.TotalProfitLoss
		}
		if i == 0 || r.TotalProfitLoss.LessThan(s.WorstPL) {
			s.WorstPL = r.TotalProfitLoss
		}
	}
	return s
}

// WinRate devuelve el porcentaje de iteraciones cerradas por take profit.
func (s SessionSummary) WinRate() float64 {
	if s.Iterations == 0 {
		return 0
	}
	return float64(s.TakeProfits) / float64(s.Iterations) * 100
}
