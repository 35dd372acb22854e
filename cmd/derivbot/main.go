package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/derivbot/config"
	"github.com/alejandrodnm/derivbot/internal/adapters/browser"
	"github.com/alejandrodnm/derivbot/internal/adapters/csvlog"
	"github.com/alejandrodnm/derivbot/internal/adapters/metrics"
	"github.com/alejandrodnm/derivbot/internal/adapters/notify"
	"github.com/alejandrodnm/derivbot/internal/adapters/storage"
	"github.com/alejandrodnm/derivbot/internal/application/runner"
	"github.com/alejandrodnm/derivbot/internal/domain"
	"github.com/alejandrodnm/derivbot/internal/ports"
	"github.com/alejandrodnm/derivbot/internal/retry"
	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	iterations := flag.Int("iterations", 0, "number of iterations (overrides config)")
	headless := flag.Bool("headless", false, "run the browser headless (overrides config)")
	driver := flag.String("driver", "", "browser driver: chromedp|playwright (overrides config)")
	report := flag.Bool("report", false, "print stored sessions and exit")
	sessionID := flag.String("session", "", "with -report: print the results of one session")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *iterations > 0 {
		cfg.Bot.MaxIterations = *iterations
	}
	if *headless {
		cfg.Browser.Headless = true
	}
	if *driver != "" {
		cfg.Browser.Driver = *driver
		if err := cfg.Validate(); err != nil {
			slog.Error("invalid flags", "err", err)
			os.Exit(1)
		}
	}
	setupLogger(cfg.Log)

	notifier := notify.NewConsole()

	if *report {
		if err := runReport(cfg, notifier, *sessionID); err != nil {
			slog.Error("report failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := runSession(cfg, notifier, *configPath); err != nil {
		slog.Error("session failed", "err", err)
		os.Exit(1)
	}
}

// runSession lanza el navegador y ejecuta el loop. Los defers cierran navegador,
// CSV y base antes de que main decida el código de salida.
func runSession(cfg *config.Config, notifier *notify.Console, configPath string) error {
	id := uuid.NewString()
	slog.Info("derivbot starting",
		"config", configPath,
		"session", id,
		"iterations", cfg.Bot.MaxIterations,
		"take_profit", cfg.Bot.TakeProfit,
		"stop_loss", cfg.Bot.StopLoss,
		"driver", cfg.Browser.Driver,
		"csv", cfg.Output.CSVPath,
	)

	thresholds, err := domain.NewThresholds(cfg.Bot.TakeProfit, cfg.Bot.StopLoss)
	if err != nil {
		return err
	}

	recorder, err := csvlog.Open(cfg.Output.CSVPath)
	if err != nil {
		return err
	}
	defer recorder.Close()

	var store ports.ResultStorage
	if cfg.Storage.DSN != "" {
		db, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
	}

	var m ports.Metrics
	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer srv.Close()
		m = metrics.Prometheus{}
	}

	page, err := browser.New(browser.Options{
		Driver:           cfg.Browser.Driver,
		Headless:         cfg.Browser.Headless,
		ExecPath:         cfg.Browser.ExecPath,
		UserDataDir:      cfg.Browser.UserDataDir,
		ProfileDirectory: cfg.Browser.ProfileDirectory,
		Width:            cfg.Browser.Width,
		Height:           cfg.Browser.Height,
		Install:          cfg.Browser.Install,
	})
	if err != nil {
		return err
	}
	defer func() {
		slog.Info("closing browser")
		if err := page.Close(); err != nil {
			slog.Warn("closing browser failed", "err", err)
		}
	}()

	r := runner.New(page, recorder, store, notifier, m, runner.Config{
		SessionID:      id,
		BotURL:         cfg.Bot.URL,
		MaxIterations:  cfg.Bot.MaxIterations,
		Thresholds:     thresholds,
		PollInterval:   cfg.PollInterval(),
		SettleDelay:    cfg.SettleDelay(),
		WaitTimeout:    cfg.WaitTimeout(),
		MaxRunDuration: cfg.MaxRunDuration(),
		Retry:          retry.Policy{Retries: cfg.RetryCount(), Delay: cfg.RetryDelay()},
		Selectors:      selectors(cfg.Bot.Selectors),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	summary, err := r.Run(ctx)
	notifier.PrintSessionReport(summary, r.Results())

	switch {
	case err == nil:
		slog.Info("derivbot finished", "iterations", summary.Iterations, "elapsed", time.Since(start).Round(time.Second))
	case errors.Is(err, context.Canceled):
		slog.Info("derivbot stopped by signal", "iterations", summary.Iterations)
	default:
		return err
	}
	return nil
}

func selectors(c config.SelectorsConfig) runner.Selectors {
	return runner.Selectors{
		Run:         c.Run,
		Stop:        c.Stop,
		StopEnabled: c.StopEnabled,
		Reset:       c.Reset,
		Tile:        c.Tile,
		TileTitle:   c.TileTitle,
		TileContent: c.TileContent,
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
