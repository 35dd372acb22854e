package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/derivbot/internal/domain"
	"github.com/alejandrodnm/derivbot/internal/ports"
	"github.com/alejandrodnm/derivbot/internal/retry"
	"github.com/shopspring/decimal"
)

// Selectors son los selectores CSS del panel de ejecución del Bot Builder.
type Selectors struct {
	Run         string
	Stop        string
	StopEnabled string
	Reset       string
	Tile        string
	TileTitle   string
	TileContent string
}

// DefaultSelectors devuelve los selectores de dbot.deriv.com.
func DefaultSelectors() Selectors {
	return Selectors{
		Run:         "#db-animation__run-button",
		Stop:        "#db-animation__stop-button",
		StopEnabled: "#db-animation__stop-button:not([disabled])",
		Reset:       "#db-run-panel__clear-button",
		Tile:        ".run-panel__tile",
		TileTitle:   ".run-panel__tile-title",
		TileContent: ".run-panel__tile-content",
	}
}

// withDefaults completa los selectores vacíos.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&s.Run, d.Run)
	fill(&s.Stop, d.Stop)
	fill(&s.StopEnabled, d.StopEnabled)
	fill(&s.Reset, d.Reset)
	fill(&s.Tile, d.Tile)
	fill(&s.TileTitle, d.TileTitle)
	fill(&s.TileContent, d.TileContent)
	return s
}

// Controls agrupa las acciones sobre el panel. Cada acción se reintenta con la política dada.
type Controls struct {
	page   ports.Page
	sel    Selectors
	wait   time.Duration
	policy retry.Policy
	allJS  string
	plJS   string
}

// NewControls crea los controles del panel sobre una página ya abierta.
func NewControls(page ports.Page, sel Selectors, wait time.Duration, policy retry.Policy) *Controls {
	sel = sel.withDefaults()
	if wait <= 0 {
		wait = 60 * time.Second
	}
	return &Controls{
		page:   page,
		sel:    sel,
		wait:   wait,
		policy: policy,
		allJS:  tilesScript(sel, domain.PanelTiles),
		plJS:   tilesScript(sel, []string{domain.TileTotalProfitLoss}),
	}
}

// Open navega al Bot Builder y espera a que el botón de run sea visible.
func (c *Controls) Open(ctx context.Context, url string) error {
	return retry.Do(ctx, c.policy, "open", func(ctx context.Context) error {
		if err := c.page.Navigate(ctx, url); err != nil {
			return err
		}
		return c.page.WaitVisible(ctx, c.sel.Run, c.wait)
	})
}

// Start pulsa run y espera a que el botón de stop quede habilitado.
func (c *Controls) Start(ctx context.Context) error {
	return c.clickAndWait(ctx, "start", c.sel.Run, c.sel.StopEnabled)
}

// Stop pulsa stop y espera a que aparezca el botón de reset.
func (c *Controls) Stop(ctx context.Context) error {
	return c.clickAndWait(ctx, "stop", c.sel.Stop, c.sel.Reset)
}

// Reset limpia el panel y espera a que vuelva el botón de run.
func (c *Controls) Reset(ctx context.Context) error {
	return c.clickAndWait(ctx, "reset", c.sel.Reset, c.sel.Run)
}

func (c *Controls) clickAndWait(ctx context.Context, op, click, visible string) error {
	return retry.Do(ctx, c.policy, op, func(ctx context.Context) error {
		if err := c.page.Click(ctx, click); err != nil {
			return err
		}
		return c.page.WaitVisible(ctx, visible, c.wait)
	})
}

// ReadPanel lee todos los tiles del panel.
func (c *Controls) ReadPanel(ctx context.Context) (domain.PanelSnapshot, error) {
	var tiles map[string]string
	err := retry.Do(ctx, c.policy, "read_panel", func(ctx context.Context) error {
		return c.page.Evaluate(ctx, c.allJS, &tiles)
	})
	if err != nil {
		return domain.PanelSnapshot{}, err
	}
	return domain.SnapshotFromTiles(tiles), nil
}

// ReadProfitLoss lee solo el tile de P/L. Sin reintentos: lo llama el poll.
// ok es false si el texto del tile no es un número.
func (c *Controls) ReadProfitLoss(ctx context.Context) (pl decimal.Decimal, raw string, ok bool, err error) {
	var tiles map[string]string
	if err := c.page.Evaluate(ctx, c.plJS, &tiles); err != nil {
		return decimal.Zero, "", false, fmt.Errorf("read profit/loss: %w", err)
	}
	raw = domain.SnapshotFromTiles(tiles).TotalProfitLoss
	pl, err = domain.ParseMoney(raw)
	if err != nil {
		return decimal.Zero, raw, false, nil
	}
	return pl, raw, true, nil
}

// tilesScript genera una IIFE que devuelve {título: contenido} para los tiles pedidos.
// El tile se elige por título que contiene el texto; sin tile o sin contenido vale "0".
func tilesScript(sel Selectors, titles []string) string {
	q := func(v any) string {
		b, _ := json.Marshal(v)
		return string(b)
	}

	var sb strings.Builder
	sb.WriteString("(() => {\n")
	fmt.Fprintf(&sb, "  const tiles = Array.from(document.querySelectorAll(%s));\n", q(sel.Tile))
	sb.WriteString("  const get = (title) => {\n")
	fmt.Fprintf(&sb, "    const tile = tiles.find((t) => (t.querySelector(%s)?.textContent || '').includes(title));\n", q(sel.TileTitle))
	fmt.Fprintf(&sb, "    return tile?.querySelector(%s)?.textContent.trim() || '0';\n", q(sel.TileContent))
	sb.WriteString("  };\n")
	sb.WriteString("  const out = {};\n")
	fmt.Fprintf(&sb, "  for (const title of %s) out[title] = get(title);\n", q(titles))
	sb.WriteString("  return out;\n")
	sb.WriteString("})()")
	return sb.String()
}
