package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/derivbot/internal/domain"
)

// ResultStorage es el espejo consultable de los resultados, usado para reportes.
type ResultStorage interface {
	StartSession(ctx context.Context, session domain.Session) error
	FinishSession(ctx context.Context, sessionID string, finishedAt time.Time, iterations int) error

	SaveResult(ctx context.Context, result domain.Result) error

	// GetSessionResults devuelve los resultados de una sesión ordenados por iteración.
	GetSessionResults(ctx context.Context, sessionID string) ([]domain.Result, error)

	// ListSessions devuelve las últimas sesiones, más recientes primero.
	ListSessions(ctx context.Context, limit int) ([]domain.Session, error)

	Close() error
}
