package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromedpPage implementa ports.Page sobre una pestaña de chromedp.
type ChromedpPage struct {
	allocCancel context.CancelFunc
	tab         context.Context
	tabCancel   context.CancelFunc
}

// NewChromedp lanza Chrome y abre una pestaña. El navegador vive hasta Close,
// independiente del contexto de las operaciones.
func NewChromedp(opts Options) (*ChromedpPage, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)

	tab, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			slog.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			slog.Debug("chromedp error", "msg", fmt.Sprintf(format, args...))
		}),
	)

	chromedp.ListenTarget(tab, forwardPageEvents)

	// Run sin acciones arranca el navegador y adjunta la pestaña.
	if err := chromedp.Run(tab); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("browser.NewChromedp: start: %w", err)
	}

	return &ChromedpPage{allocCancel: allocCancel, tab: tab, tabCancel: tabCancel}, nil
}

// Navigate carga la URL y espera el evento load.
func (p *ChromedpPage) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitVisible espera a que el selector sea visible, como mucho timeout.
func (p *ChromedpPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()
	if timeout > 0 {
		var tcancel context.CancelFunc
		runCtx, tcancel = context.WithTimeout(runCtx, timeout)
		defer tcancel()
	}
	if err := chromedp.Run(runCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait visible %s: %w", selector, err)
	}
	return nil
}

// Click hace click en el primer nodo visible que cumpla el selector.
func (p *ChromedpPage) Click(ctx context.Context, selector string) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// Evaluate ejecuta la expresión y decodifica el valor devuelto en out.
func (p *ChromedpPage) Evaluate(ctx context.Context, script string, out any) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

// Close cierra la pestaña y el navegador.
func (p *ChromedpPage) Close() error {
	err := chromedp.Cancel(p.tab)
	p.tabCancel()
	p.allocCancel()
	if err != nil && err != context.Canceled {
		return fmt.Errorf("browser.Close: %w", err)
	}
	return nil
}

// bind deriva de la pestaña un contexto que además se cancela con ctx.
// Cancelar el derivado aborta la acción en curso sin cerrar la pestaña.
func (p *ChromedpPage) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(p.tab)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	for name, value := range chromeFlags(opts) {
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}
	return allocOpts
}

// forwardPageEvents reenvía la consola del navegador y los errores de la página a slog.
func forwardPageEvents(ev any) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		slog.Debug("browser console", "type", ev.Type, "text", consoleText(ev.Args))
	case *runtime.EventExceptionThrown:
		if ev.ExceptionDetails != nil {
			slog.Warn("page error", "err", ev.ExceptionDetails.Error())
		}
	}
}

func consoleText(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case len(arg.Value) > 0:
			parts = append(parts, strings.Trim(string(arg.Value), `"`))
		case arg.Description != "":
			parts = append(parts, arg.Description)
		default:
			parts = append(parts, string(arg.Type))
		}
	}
	return strings.Join(parts, " ")
}
