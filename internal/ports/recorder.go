package ports

import (
	"context"

	"github.com/alejandrodnm/derivbot/internal/domain"
)

// ResultRecorder es el sink append-only de resultados (el CSV).
type ResultRecorder interface {
	// Record añade una fila por iteración completada.
	Record(ctx context.Context, result domain.Result) error

	Close() error
}
