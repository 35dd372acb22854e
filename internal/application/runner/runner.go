// Package runner contiene el loop de iteraciones contra el Bot Builder:
// arrancar, vigilar el P/L, parar al cruzar un umbral, grabar y resetear.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/derivbot/internal/domain"
	"github.com/alejandrodnm/derivbot/internal/ports"
	"github.com/alejandrodnm/derivbot/internal/retry"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxIterations = 20
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultSettleDelay   = 2 * time.Second

	// cleanupTimeout acota el stop de emergencia y el cierre de sesión tras una cancelación.
	cleanupTimeout = 15 * time.Second
)

// Config controla el loop.
type Config struct {
	SessionID      string
	BotURL         string
	MaxIterations  int
	Thresholds     domain.Thresholds
	PollInterval   time.Duration
	SettleDelay    time.Duration
	WaitTimeout    time.Duration
	MaxRunDuration time.Duration // 0 = sin límite
	Retry          retry.Policy
	Selectors      Selectors
}

// Runner ejecuta una sesión completa. store, notifier y metrics son opcionales.
type Runner struct {
	controls *Controls
	recorder ports.ResultRecorder
	store    ports.ResultStorage
	notifier ports.Notifier
	metrics  ports.Metrics
	cfg      Config
	now      func() time.Time

	results []domain.Result
}

// New crea un runner sobre una página ya lanzada.
func New(
	page ports.Page,
	recorder ports.ResultRecorder,
	store ports.ResultStorage,
	notifier ports.Notifier,
	metrics ports.Metrics,
	cfg Config,
) *Runner {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.Thresholds.TakeProfit.IsZero() && cfg.Thresholds.StopLoss.IsZero() {
		cfg.Thresholds, _ = domain.NewThresholds(3, -5)
	}
	if metrics != nil {
		onRetry := cfg.Retry.OnRetry
		cfg.Retry.OnRetry = func(op string, err error) {
			metrics.Retry(op)
			if onRetry != nil {
				onRetry(op, err)
			}
		}
	}

	return &Runner{
		controls: NewControls(page, cfg.Selectors, cfg.WaitTimeout, cfg.Retry),
		recorder: recorder,
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Run abre la página y ejecuta hasta MaxIterations iteraciones.
// Devuelve el resumen de las iteraciones completadas también cuando hay error;
// una cancelación del contexto se devuelve envolviendo context.Canceled.
func (r *Runner) Run(ctx context.Context) (domain.SessionSummary, error) {
	r.results = nil
	r.startSession(ctx, r.now())
	defer func() {
		r.finishSession(len(r.results))
	}()

	slog.Info("navigating to bot builder", "url", r.cfg.BotURL)
	if err := r.controls.Open(ctx, r.cfg.BotURL); err != nil {
		return domain.Summarize(r.cfg.SessionID, r.results), fmt.Errorf("runner.Run: open: %w", err)
	}
	slog.Info("page loaded")

	for iteration := 1; iteration <= r.cfg.MaxIterations; iteration++ {
		res, recorded, err := r.runIteration(ctx, iteration)
		if recorded {
			r.results = append(r.results, res)
		}
		if err != nil {
			return domain.Summarize(r.cfg.SessionID, r.results), fmt.Errorf("runner.Run: iteration %d: %w", iteration, err)
		}
	}

	slog.Info("session completed", "iterations", len(r.results))
	return domain.Summarize(r.cfg.SessionID, r.results), nil
}

// Results devuelve las iteraciones completadas en la última llamada a Run.
func (r *Runner) Results() []domain.Result {
	return r.results
}

// runIteration ejecuta una iteración: start, poll, stop, grabar, reset.
// recorded indica si la fila ya está en el CSV, aunque después falle el reset.
func (r *Runner) runIteration(ctx context.Context, iteration int) (res domain.Result, recorded bool, err error) {
	slog.Info("starting iteration", "iteration", iteration)

	if err := r.controls.Start(ctx); err != nil {
		// el click de run pudo llegar antes de la cancelación
		if ctx.Err() != nil {
			r.emergencyStop()
		}
		return res, false, fmt.Errorf("start: %w", err)
	}
	runStarted := r.now()

	reason, err := r.poll(ctx)
	if err != nil {
		r.emergencyStop()
		return res, false, fmt.Errorf("poll: %w", err)
	}

	slog.Info("stopping bot", "iteration", iteration, "reason", reason)
	if err := r.controls.Stop(ctx); err != nil {
		if ctx.Err() != nil {
			r.emergencyStop()
		}
		return res, false, fmt.Errorf("stop: %w", err)
	}

	panel, err := r.controls.ReadPanel(ctx)
	if err != nil {
		return res, false, fmt.Errorf("read panel: %w", err)
	}

	res = domain.NewResult(r.cfg.SessionID, iteration, r.now(), panel, reason)
	if err := r.record(ctx, res, r.now().Sub(runStarted)); err != nil {
		return res, false, err
	}

	if err := retry.Sleep(ctx, r.cfg.SettleDelay); err != nil {
		return res, true, err
	}
	if err := r.controls.Reset(ctx); err != nil {
		return res, true, fmt.Errorf("reset: %w", err)
	}
	if err := retry.Sleep(ctx, r.cfg.SettleDelay); err != nil {
		return res, true, err
	}
	return res, true, nil
}

// poll lee el P/L cada PollInterval hasta que cruce un umbral o venza MaxRunDuration.
// Un valor no numérico se ignora hasta el siguiente tick. Los fallos de lectura se
// reintentan con la política de reintentos; agotada, el error termina la sesión.
func (r *Runner) poll(ctx context.Context) (domain.StopReason, error) {
	runCtx := ctx
	if r.cfg.MaxRunDuration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.MaxRunDuration)
		defer cancel()
	}

	limiter := rate.NewLimiter(rate.Every(r.cfg.PollInterval), 1)
	for {
		// Wait también falla si la próxima lectura caería después del deadline
		if err := limiter.Wait(runCtx); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			slog.Warn("run exceeded max duration", "max", r.cfg.MaxRunDuration)
			return domain.StopTimeout, nil
		}

		var (
			pl  decimal.Decimal
			raw string
			ok  bool
		)
		err := retry.Do(runCtx, r.cfg.Retry, "read_profit_loss", func(ctx context.Context) error {
			var err error
			pl, raw, ok, err = r.controls.ReadProfitLoss(ctx)
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if runCtx.Err() != nil {
				// venció MaxRunDuration: el próximo Wait devuelve timeout
				continue
			}
			return "", err
		}
		if !ok {
			slog.Debug("profit/loss not numeric yet", "raw", raw)
			continue
		}

		if r.metrics != nil {
			r.metrics.ProfitLoss(pl.InexactFloat64())
		}
		if reason, stop := r.cfg.Thresholds.Check(pl); stop {
			slog.Info("profit/loss condition met", "pl", pl.String(), "reason", reason)
			return reason, nil
		}
	}
}

// record escribe el CSV y después el espejo, la consola y las métricas.
// Solo el CSV es obligatorio.
func (r *Runner) record(ctx context.Context, res domain.Result, runDuration time.Duration) error {
	if err := r.recorder.Record(ctx, res); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	slog.Info("results recorded",
		"iteration", res.Iteration,
		"pl", res.TotalProfitLoss.String(),
		"runs", res.NumRuns,
		"won", res.ContractsWon,
		"lost", res.ContractsLost,
	)

	if r.store != nil {
		if err := r.store.SaveResult(ctx, res); err != nil {
			slog.Warn("saving result to storage failed", "iteration", res.Iteration, "err", err)
		}
	}
	if r.notifier != nil {
		if err := r.notifier.IterationDone(ctx, res); err != nil {
			slog.Warn("notifier failed", "iteration", res.Iteration, "err", err)
		}
	}
	if r.metrics != nil {
		r.metrics.IterationDone(res.StopReason, runDuration.Seconds())
	}
	return nil
}

// emergencyStop intenta parar el bot de la página tras una cancelación,
// con un contexto nuevo y un solo intento.
func (r *Runner) emergencyStop() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	slog.Info("stopping bot before exit")
	c := *r.controls
	c.policy = retry.Policy{}
	if err := c.Stop(ctx); err != nil {
		slog.Warn("best-effort stop failed", "err", err)
	}
}

func (r *Runner) startSession(ctx context.Context, at time.Time) {
	if r.store == nil {
		return
	}
	err := r.store.StartSession(ctx, domain.Session{
		ID:        r.cfg.SessionID,
		StartedAt: at,
		BotURL:    r.cfg.BotURL,
	})
	if err != nil {
		slog.Warn("registering session failed", "session", r.cfg.SessionID, "err", err)
	}
}

func (r *Runner) finishSession(iterations int) {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := r.store.FinishSession(ctx, r.cfg.SessionID, r.now(), iterations); err != nil {
		slog.Warn("closing session failed", "session", r.cfg.SessionID, "err", err)
	}
}
