package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

const playwrightNavTimeout = 60 * time.Second

// PlaywrightPage implementa ports.Page sobre playwright-go (Chromium).
// playwright-go no acepta context.Context: el contexto se respeta antes de
// cada llamada y acotando el timeout de la operación a su deadline.
type PlaywrightPage struct {
	pw      *playwright.Playwright
	browser playwright.Browser // nil con contexto persistente
	context playwright.BrowserContext
	page    playwright.Page
}

// NewPlaywright arranca el driver de Playwright y abre una página.
// Con UserDataDir usa un contexto persistente para reutilizar la sesión iniciada.
func NewPlaywright(opts Options) (*PlaywrightPage, error) {
	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if opts.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("browser.NewPlaywright: install: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("browser.NewPlaywright: start: %w", err)
	}

	p := &PlaywrightPage{pw: pw}
	if err := p.launch(opts); err != nil {
		pw.Stop()
		return nil, fmt.Errorf("browser.NewPlaywright: %w", err)
	}

	p.page.OnConsole(func(msg playwright.ConsoleMessage) {
		slog.Debug("browser console", "type", msg.Type(), "text", msg.Text())
	})
	p.page.OnPageError(func(err error) {
		slog.Warn("page error", "err", err)
	})
	return p, nil
}

func (p *PlaywrightPage) launch(opts Options) error {
	viewport := &playwright.Size{Width: opts.Width, Height: opts.Height}
	args := chromeArgs(opts)

	var execPath *string
	if opts.ExecPath != "" {
		execPath = playwright.String(opts.ExecPath)
	}

	if opts.UserDataDir != "" {
		bctx, err := p.pw.Chromium.LaunchPersistentContext(opts.UserDataDir,
			playwright.BrowserTypeLaunchPersistentContextOptions{
				Headless:       playwright.Bool(opts.Headless),
				ExecutablePath: execPath,
				Args:           args,
				Viewport:       viewport,
			})
		if err != nil {
			return fmt.Errorf("launch persistent context: %w", err)
		}
		p.context = bctx

		if pages := bctx.Pages(); len(pages) > 0 {
			p.page = pages[0]
			return nil
		}
		page, err := bctx.NewPage()
		if err != nil {
			bctx.Close()
			return fmt.Errorf("new page: %w", err)
		}
		p.page = page
		return nil
	}

	browser, err := p.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless:       playwright.Bool(opts.Headless),
		ExecutablePath: execPath,
		Args:           args,
	})
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{Viewport: viewport})
	if err != nil {
		browser.Close()
		return fmt.Errorf("new context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		return fmt.Errorf("new page: %w", err)
	}

	p.browser, p.context, p.page = browser, bctx, page
	return nil
}

// Navigate carga la URL y espera a que la red quede inactiva.
func (p *PlaywrightPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(timeoutMs(ctx, playwrightNavTimeout)),
	})
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitVisible espera a que el selector sea visible.
func (p *PlaywrightPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(timeoutMs(ctx, timeout)),
	})
	if err != nil {
		return fmt.Errorf("wait visible %s: %w", selector, err)
	}
	return nil
}

// Click hace click en el elemento que cumpla el selector.
func (p *PlaywrightPage) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(timeoutMs(ctx, playwrightNavTimeout)),
	}); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// Evaluate ejecuta la expresión y decodifica el resultado en out vía JSON.
func (p *PlaywrightPage) Evaluate(ctx context.Context, script string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := p.page.Evaluate(script)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("evaluate: encode result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("evaluate: decode result: %w", err)
	}
	return nil
}

// Close cierra página, contexto, navegador y el driver. Los errores de cierre
// intermedios se ignoran para completar la limpieza.
func (p *PlaywrightPage) Close() error {
	_ = p.page.Close()
	_ = p.context.Close()
	if p.browser != nil {
		_ = p.browser.Close()
	}
	if err := p.pw.Stop(); err != nil {
		return fmt.Errorf("browser.Close: stop playwright: %w", err)
	}
	return nil
}
