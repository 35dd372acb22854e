// Package retry envuelve operaciones contra la página con reintentos de espera fija.
//
// Semántica: se intenta la operación; si falla se espera Delay y se reintenta
// hasta Retries veces; si el último intento falla se devuelve el error.
// Con Retries = 3 hay como máximo 4 intentos.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultRetries = 3
	DefaultDelay   = 2 * time.Second
)

// Policy configura los reintentos.
type Policy struct {
	Retries int
	Delay   time.Duration

	// OnRetry se llama antes de cada espera (opcional, para métricas).
	OnRetry func(op string, err error)
}

// DefaultPolicy devuelve la política por defecto: 3 reintentos, 2s entre intentos.
func DefaultPolicy() Policy {
	return Policy{Retries: DefaultRetries, Delay: DefaultDelay}
}

// ExhaustedError indica que se agotaron los reintentos.
// Envuelve el error del último intento.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do ejecuta fn con la política dada. op identifica la operación en logs y errores.
// Si el contexto se cancela durante la espera, devuelve el error del contexto.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	if p.Retries < 0 {
		p.Retries = 0
	}

	var err error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}

		left := p.Retries - attempt
		if left == 0 {
			break
		}

		slog.Warn("retrying", "op", op, "attempts_left", left, "err", err)
		if p.OnRetry != nil {
			p.OnRetry(op, err)
		}

		if err := Sleep(ctx, p.Delay); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return &ExhaustedError{Op: op, Attempts: p.Retries + 1, Err: err}
}

// Sleep espera d respetando el contexto.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
