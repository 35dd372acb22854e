package csvlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/alejandrodnm/derivbot/internal/domain"
)

// Header es la cabecera fija del CSV de resultados.
var Header = []string{
	"Timestamp",
	"Iteration",
	"Total Stake",
	"Total Payout",
	"Number of Runs",
	"Contracts Lost",
	"Contracts Won",
	"Total Profit/Loss",
}

// Recorder implementa ports.ResultRecorder sobre un archivo CSV append-only.
type Recorder struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *csv.Writer
}

// Open abre (o crea) el CSV en modo append. La cabecera solo se escribe si el
// archivo es nuevo o está vacío, así que reabrir nunca la duplica.
func Open(path string) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("csvlog.Open: mkdir %q: %w", dir, err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csvlog.Open: open %q: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("csvlog.Open: stat %q: %w", path, err)
	}

	r := &Recorder{path: path, file: file, w: csv.NewWriter(file)}
	if info.Size() == 0 {
		if err := r.writeRow(Header); err != nil {
			file.Close()
			return nil, fmt.Errorf("csvlog.Open: write header: %w", err)
		}
	}
	return r, nil
}

// Path devuelve la ruta del archivo.
func (r *Recorder) Path() string {
	return r.path
}

// Record añade una fila y la sincroniza a disco.
func (r *Recorder) Record(_ context.Context, res domain.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return fmt.Errorf("csvlog.Record: recorder closed")
	}
	if err := r.writeRow(Row(res)); err != nil {
		return fmt.Errorf("csvlog.Record: iteration %d: %w", res.Iteration, err)
	}
	return nil
}

// Close cierra el archivo. Llamar dos veces es seguro.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	r.w.Flush()
	err := r.file.Close()
	r.file = nil
	return err
}

// Row convierte un Result en la fila del CSV, en el orden de Header.
func Row(res domain.Result) []string {
	return []string{
		res.Timestamp.UTC().Format(time.RFC3339),
		strconv.Itoa(res.Iteration),
		res.TotalStake.StringFixed(2),
		res.TotalPayout.StringFixed(2),
		strconv.Itoa(res.NumRuns),
		strconv.Itoa(res.ContractsLost),
		strconv.Itoa(res.ContractsWon),
		res.TotalProfitLoss.StringFixed(2),
	}
}

func (r *Recorder) writeRow(row []string) error {
	if err := r.w.Write(row); err != nil {
		return err
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return err
	}
	return r.file.Sync()
}
