package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alejandrodnm/derivbot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// IterationDone imprime una línea compacta por iteración.
func (c *Console) IterationDone(_ context.Context, r domain.Result) error {
	fmt.Fprintf(c.out, "[%s] #%d %s P/L %s USD  runs:%d W:%d L:%d\n",
		r.Timestamp.Local().Format("15:04:05"),
		r.Iteration,
		r.StopReason.Icon(),
		domain.FormatMoney(r.TotalProfitLoss),
		r.NumRuns,
		r.ContractsWon,
		r.ContractsLost,
	)
	return nil
}

// PrintSessionReport imprime la tabla de iteraciones y el resumen de la sesión.
func (c *Console) PrintSessionReport(summary domain.SessionSummary, results []domain.Result) {
	if len(results) == 0 {
		fmt.Fprintf(c.out, "\nsession %s: no completed iterations\n\n", shortID(summary.SessionID))
		return
	}

	fmt.Fprintf(c.out, "\n=== SESSION %s (%d iterations) ===\n", shortID(summary.SessionID), summary.Iterations)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Time", "Stop", "Runs", "Won", "Lost", "Stake", "Payout", "P/L")
	for _, r := range results {
		table.Append(
			fmt.Sprintf("%d", r.Iteration),
			r.Timestamp.Local().Format("15:04:05"),
			r.StopReason.Icon(),
			fmt.Sprintf("%d", r.NumRuns),
			fmt.Sprintf("%d", r.ContractsWon),
			fmt.Sprintf("%d", r.ContractsLost),
			r.TotalStake.StringFixed(2),
			r.TotalPayout.StringFixed(2),
			domain.FormatMoney(r.TotalProfitLoss),
		)
	}
	table.Render()

	c.printSummary(summary)
}

// PrintSessions imprime la lista de sesiones guardadas (modo -report).
func (c *Console) PrintSessions(sessions []domain.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(c.out, "no sessions recorded")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Session", "Started", "Finished", "Iterations")
	for _, s := range sessions {
		finished := "running/aborted"
		if s.FinishedAt != nil {
			finished = s.FinishedAt.Local().Format(time.DateTime)
		}
		table.Append(
			s.ID,
			s.StartedAt.Local().Format(time.DateTime),
			finished,
			fmt.Sprintf("%d", s.Iterations),
		)
	}
	table.Render()
}

func (c *Console) printSummary(s domain.SessionSummary) {
	fmt.Fprintf(c.out, "  Take profit: %d  Stop loss: %d  Timeout: %d  (win rate %.1f%%)\n",
		s.TakeProfits, s.StopLosses, s.Timeouts, s.WinRate())
	fmt.Fprintf(c.out, "  Contracts: %d won / %d lost\n", s.ContractsWon, s.ContractsLost)
	fmt.Fprintf(c.out, "  Stake: %s USD  Payout: %s USD\n", s.TotalStake.StringFixed(2), s.TotalPayout.StringFixed(2))
	fmt.Fprintf(c.out, "  Best: %s  Worst: %s\n", domain.FormatMoney(s.BestPL), domain.FormatMoney(s.WorstPL))
	fmt.Fprintf(c.out, "  ─────────────────────────────────────────────\n")
	fmt.Fprintf(c.out, "  NET P/L: %s USD\n\n", domain.FormatMoney(s.NetPL))
}

// shortID recorta el uuid para la consola.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
