package ports

import (
	"context"
	"time"
)

// Page es la frontera con la librería de automatización del navegador.
// Toda la lógica de render, estado de elementos y eventos vive en la página remota.
type Page interface {
	// Navigate carga la URL y espera a que termine la navegación.
	Navigate(ctx context.Context, url string) error

	// WaitVisible espera hasta que un elemento que cumpla el selector sea visible.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Click hace click en el primer elemento que cumpla el selector.
	Click(ctx context.Context, selector string) error

	// Evaluate ejecuta una expresión JavaScript en la página y decodifica el
	// resultado (JSON) en out.
	Evaluate(ctx context.Context, script string, out any) error

	// Close cierra el navegador y libera los recursos del driver.
	Close() error
}
