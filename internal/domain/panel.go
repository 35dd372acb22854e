package domain

import "strings"

// Títulos de los tiles del panel de ejecución de Deriv Bot.
// El match es por "contiene", así que basta con un prefijo estable.
const (
	TileNumRuns         = "No. of runs"
	TileContractsLost   = "Contracts lost"
	TileContractsWon    = "Contracts won"
	TileTotalProfitLoss = "Total profit/loss"
	TileTotalStake      = "Total stake"
	TileTotalPayout     = "Total payout"
)

// PanelTiles es la lista de tiles que se leen al cerrar una iteración.
var PanelTiles = []string{
	TileNumRuns,
	TileContractsLost,
	TileContractsWon,
	TileTotalProfitLoss,
	TileTotalStake,
	TileTotalPayout,
}

// PanelSnapshot son los valores crudos (texto) de los tiles del panel.
type PanelSnapshot struct {
	NumRuns         string
	ContractsLost   string
	ContractsWon    string
	TotalProfitLoss string
	TotalStake      string
	TotalPayout     string
}

// SnapshotFromTiles construye el snapshot desde el mapa título → contenido
// devuelto por el script de la página. Ausente o vacío se lee como "0".
func SnapshotFromTiles(tiles map[string]string) PanelSnapshot {
	get := func(title string) string {
		v := strings.TrimSpace(tiles[title])
		if v == "" {
			return "0"
		}
		return v
	}
	return PanelSnapshot{
		NumRuns:         get(TileNumRuns),
		ContractsLost:   get(TileContractsLost),
		ContractsWon:    get(TileContractsWon),
		TotalProfitLoss: get(TileTotalProfitLoss),
		TotalStake:      get(TileTotalStake),
		TotalPayout:     get(TileTotalPayout),
	}
}
