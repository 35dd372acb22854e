package storage

// sqlite.go: espejo consultable del CSV de resultados.
//
// El CSV es la fuente de verdad; esta base solo existe para reportes entre sesiones.
//   - `sessions`: una fila por ejecución del programa (uuid, inicio, fin, iteraciones).
//   - `results`: una fila por iteración completada. Los importes se guardan como TEXT
//     para no perder precisión del decimal.
//   - Prune automático al arrancar: sesiones de más de 90 días.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/derivbot/internal/domain"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id          TEXT PRIMARY KEY,
    started_at  TEXT    NOT NULL,
    finished_at TEXT,
    bot_url     TEXT    NOT NULL DEFAULT '',
    iterations  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS results (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id     TEXT    NOT NULL REFERENCES sessions(id),
    iteration      INTEGER NOT NULL,
    recorded_at    TEXT    NOT NULL,
    total_stake    TEXT    NOT NULL DEFAULT '0',
    total_payout   TEXT    NOT NULL DEFAULT '0',
    num_runs       INTEGER NOT NULL DEFAULT 0,
    contracts_lost INTEGER NOT NULL DEFAULT 0,
    contracts_won  INTEGER NOT NULL DEFAULT 0,
    total_pl       TEXT    NOT NULL DEFAULT '0',
    stop_reason    TEXT    NOT NULL DEFAULT '',
    UNIQUE(session_id, iteration)
);

CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_results_session  ON results(session_id, iteration);
`

const retentionSessions = 90 * 24 * time.Hour

// timeLayout es el formato de los timestamps guardados (ordenable como texto).
const timeLayout = time.RFC3339Nano

// SQLiteStorage implementa ports.ResultStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada,
// aplica el schema y limpia sesiones antiguas.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// StartSession registra el inicio de una sesión.
func (s *SQLiteStorage) StartSession(ctx context.Context, session domain.Session) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, bot_url) VALUES (?, ?, ?)`,
		session.ID, formatTime(session.StartedAt), session.BotURL,
	); err != nil {
		return fmt.Errorf("storage.StartSession: %w", err)
	}
	return nil
}

// FinishSession marca la sesión como terminada con el número de iteraciones completadas.
func (s *SQLiteStorage) FinishSession(ctx context.Context, sessionID string, finishedAt time.Time, iterations int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET finished_at = ?, iterations = ? WHERE id = ?`,
		formatTime(finishedAt), iterations, sessionID,
	)
	if err != nil {
		return fmt.Errorf("storage.FinishSession: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.FinishSession: session %q not found", sessionID)
	}
	return nil
}

// SaveResult inserta el resultado de una iteración. Repetir la misma
// (session, iteration) sobreescribe la fila anterior.
func (s *SQLiteStorage) SaveResult(ctx context.Context, r domain.Result) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO results
			(session_id, iteration, recorded_at, total_stake, total_payout,
			 num_runs, contracts_lost, contracts_won, total_pl, stop_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, iteration) DO UPDATE SET
			recorded_at    = excluded.recorded_at,
			total_stake    = excluded.total_stake,
			total_payout   = excluded.total_payout,
			num_runs       = excluded.num_runs,
			contracts_lost = excluded.contracts_lost,
			contracts_won  = excluded.contracts_won,
			total_pl       = excluded.total_pl,
			stop_reason    = excluded.stop_reason
	`,
		r.SessionID,
		r.Iteration,
		formatTime(r.Timestamp),
		r.TotalStake.String(),
		r.TotalPayout.String(),
		r.NumRuns,
		r.ContractsLost,
		r.ContractsWon,
		r.TotalProfitLoss.String(),
		string(r.StopReason),
	); err != nil {
		return fmt.Errorf("storage.SaveResult: session %s iteration %d: %w", r.SessionID, r.Iteration, err)
	}
	return nil
}

// GetSessionResults devuelve los resultados de una sesión ordenados por iteración.
func (s *SQLiteStorage) GetSessionResults(ctx context.Context, sessionID string) ([]domain.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, iteration, recorded_at, total_stake, total_payout,
		       num_runs, contracts_lost, contracts_won, total_pl, stop_reason
		FROM results
		WHERE session_id = ?
		ORDER BY iteration ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetSessionResults: query: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		var r domain.Result
		var recordedAt, stake, payout, pl, reason string

		if err := rows.Scan(
			&r.SessionID,
			&r.Iteration,
			&recordedAt,
			&stake,
			&payout,
			&r.NumRuns,
			&r.ContractsLost,
			&r.ContractsWon,
			&pl,
			&reason,
		); err != nil {
			return nil, fmt.Errorf("storage.GetSessionResults: scan row: %w", err)
		}

		r.Timestamp, _ = time.Parse(timeLayout, recordedAt)
		r.TotalStake = parseDecimal(stake)
		r.TotalPayout = parseDecimal(payout)
		r.TotalProfitLoss = parseDecimal(pl)
		r.StopReason = domain.StopReason(reason)
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListSessions devuelve las últimas sesiones, más recientes primero.
func (s *SQLiteStorage) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, bot_url, iterations
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListSessions: query: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var sess domain.Session
		var startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(&sess.ID, &startedAt, &finishedAt, &sess.BotURL, &sess.Iterations); err != nil {
			return nil, fmt.Errorf("storage.ListSessions: scan row: %w", err)
		}
		sess.StartedAt, _ = time.Parse(timeLayout, startedAt)
		if finishedAt.Valid {
			if t, err := time.Parse(timeLayout, finishedAt.String); err == nil {
				sess.FinishedAt = &t
			}
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina sesiones antiguas y sus resultados.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := formatTime(time.Now().Add(-retentionSessions))
	s.db.ExecContext(ctx, `DELETE FROM results WHERE session_id IN (SELECT id FROM sessions WHERE started_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM sessions WHERE started_at < ?`, cutoff)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
