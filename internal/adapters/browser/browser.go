// Package browser implementa ports.Page sobre chromedp y playwright-go.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/derivbot/internal/ports"
)

const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"

	defaultWidth  = 1920
	defaultHeight = 1080
)

// Options controla cómo se lanza el navegador.
type Options struct {
	Driver           string
	Headless         bool
	ExecPath         string // vacío: buscar Chrome/Chromium en el sistema
	UserDataDir      string // perfil con la sesión de Deriv iniciada
	ProfileDirectory string // p.ej. "Profile 5" dentro de UserDataDir
	Width            int
	Height           int
	Install          bool // playwright: descargar drivers y Chromium al arrancar
}

// KnownDriver indica si name es un driver soportado.
func KnownDriver(name string) bool {
	switch name {
	case DriverChromedp, DriverPlaywright:
		return true
	}
	return false
}

// New lanza el navegador con el driver configurado y devuelve la página lista para navegar.
func New(opts Options) (ports.Page, error) {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}

	slog.Info("launching browser",
		"driver", opts.Driver,
		"headless", opts.Headless,
		"profile", opts.ProfileDirectory,
	)

	switch opts.Driver {
	case DriverChromedp, "":
		return NewChromedp(opts)
	case DriverPlaywright:
		return NewPlaywright(opts)
	default:
		return nil, fmt.Errorf("browser.New: unknown driver %q", opts.Driver)
	}
}

// chromeFlags son los flags extra de Chrome comunes a los dos drivers.
func chromeFlags(opts Options) map[string]any {
	flags := map[string]any{
		"start-maximized": true,
	}
	if opts.ProfileDirectory != "" {
		flags["profile-directory"] = opts.ProfileDirectory
	}
	return flags
}

// chromeArgs convierte chromeFlags en argumentos de línea de comandos, en orden estable.
func chromeArgs(opts Options) []string {
	flags := chromeFlags(opts)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]string, 0, len(names))
	for _, name := range names {
		switch v := flags[name].(type) {
		case bool:
			if v {
				args = append(args, "--"+name)
			}
		default:
			args = append(args, fmt.Sprintf("--%s=%v", name, v))
		}
	}
	return args
}

// timeoutMs devuelve el timeout efectivo en milisegundos: el menor entre
// timeout y lo que le queda al contexto.
func timeoutMs(ctx context.Context, timeout time.Duration) float64 {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return 1
	}
	return float64(timeout.Milliseconds())
}
