package ports

import (
	"context"

	"github.com/alejandrodnm/derivbot/internal/domain"
)

// Notifier presenta el progreso de la sesión al usuario.
type Notifier interface {
	// IterationDone se llama una vez por iteración, después de grabar el resultado.
	IterationDone(ctx context.Context, result domain.Result) error
}

// Metrics recibe los eventos del runner. La implementación de Prometheus vive en adapters/metrics.
type Metrics interface {
	IterationDone(reason domain.StopReason, runSeconds float64)
	ProfitLoss(value float64)
	Retry(op string)
}
