package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/derivbot/config"
	"github.com/alejandrodnm/derivbot/internal/adapters/notify"
	"github.com/alejandrodnm/derivbot/internal/adapters/storage"
	"github.com/alejandrodnm/derivbot/internal/domain"
)

const reportSessionsLimit = 20

// runReport imprime las sesiones guardadas, o las iteraciones de una sesión concreta.
func runReport(cfg *config.Config, notifier *notify.Console, sessionID string) error {
	if cfg.Storage.DSN == "" {
		return errors.New("report: storage.dsn is not configured (set it in the config or DERIVBOT_DSN)")
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sessionID == "" {
		sessions, err := store.ListSessions(ctx, reportSessionsLimit)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		notifier.PrintSessions(sessions)
		return nil
	}

	results, err := store.GetSessionResults(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	notifier.PrintSessionReport(domain.Summarize(sessionID, results), results)
	return nil
}
