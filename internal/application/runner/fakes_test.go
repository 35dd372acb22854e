package runner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/derivbot/internal/domain"
)

// fakePage simula el panel de Deriv Bot. Cada lectura del P/L consume el siguiente
// valor de pl; el último se repite.
type fakePage struct {
	mu sync.Mutex

	pl      []string
	plCalls int
	current string

	clickFails map[string]int  // selector -> fallos pendientes
	blocked    map[string]bool // WaitVisible no vuelve hasta que se cancele el contexto
	evalErr    error
	evalCalls  int
	clicks     []string
	navigated  []string
	closed     bool
}

func newFakePage(pl ...string) *fakePage {
	return &fakePage{pl: pl, clickFails: map[string]int{}, blocked: map[string]bool{}}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	return ctx.Err()
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	p.mu.Lock()
	blocked := p.blocked[selector]
	p.mu.Unlock()
	if blocked {
		<-ctx.Done()
	}
	return ctx.Err()
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clickFails[selector] > 0 {
		p.clickFails[selector]--
		return errors.New("element not clickable")
	}
	p.clicks = append(p.clicks, selector)
	return nil
}

func (p *fakePage) Evaluate(ctx context.Context, script string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.evalCalls++
	if p.evalErr != nil {
		return p.evalErr
	}

	tiles := map[string]string{}
	if strings.Contains(script, domain.TileNumRuns) {
		tiles = map[string]string{
			domain.TileNumRuns:         "4",
			domain.TileContractsWon:    "3",
			domain.TileContractsLost:   "1",
			domain.TileTotalStake:      "4.00 USD",
			domain.TileTotalPayout:     "7.20 USD",
			domain.TileTotalProfitLoss: p.current,
		}
	} else {
		if len(p.pl) > 0 {
			i := min(p.plCalls, len(p.pl)-1)
			p.current = p.pl[i]
		}
		p.plCalls++
		tiles[domain.TileTotalProfitLoss] = p.current
	}

	raw, err := json.Marshal(tiles)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

func (p *fakePage) clickCount(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.clicks {
		if c == selector {
			n++
		}
	}
	return n
}

type fakeRecorder struct {
	results []domain.Result
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, res domain.Result) error {
	if r.err != nil {
		return r.err
	}
	r.results = append(r.results, res)
	return nil
}

func (r *fakeRecorder) Close() error { return nil }

type fakeStore struct {
	saveErr  error
	started  []domain.Session
	finished map[string]int
	saved    int
}

func (s *fakeStore) StartSession(_ context.Context, sess domain.Session) error {
	s.started = append(s.started, sess)
	return nil
}

func (s *fakeStore) FinishSession(_ context.Context, id string, _ time.Time, iterations int) error {
	if s.finished == nil {
		s.finished = map[string]int{}
	}
	s.finished[id] = iterations
	return nil
}

func (s *fakeStore) SaveResult(context.Context, domain.Result) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved++
	return nil
}

func (s *fakeStore) GetSessionResults(context.Context, string) ([]domain.Result, error) {
	return nil, nil
}

func (s *fakeStore) ListSessions(context.Context, int) ([]domain.Session, error) {
	return nil, nil
}

func (s *fakeStore) Close() error { return nil }

type fakeNotifier struct {
	calls int
	err   error
}

func (n *fakeNotifier) IterationDone(context.Context, domain.Result) error {
	n.calls++
	return n.err
}

type fakeMetrics struct {
	mu         sync.Mutex
	iterations map[domain.StopReason]int
	retries    map[string]int
	lastPL     float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{iterations: map[domain.StopReason]int{}, retries: map[string]int{}}
}

func (m *fakeMetrics) IterationDone(reason domain.StopReason, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.iterations[reason]++
}

func (m *fakeMetrics) ProfitLoss(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPL = v
}

func (m *fakeMetrics) Retry(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries[op]++
}
