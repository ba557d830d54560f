package gates

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("gate not found")

// Gate keys controlling the swap surface.
const (
	SwapEnabled       = "swap.enabled"
	SimulationOnly    = "swap.simulation_only"
	TransitiveEnabled = "swap.transitive_enabled"
)

// Defaults apply when a gate has never been set.
var Defaults = map[string]bool{
	SwapEnabled:       true,
	SimulationOnly:    false,
	TransitiveEnabled: true,
}

// Gate is one feature gate with its last update time.
type Gate struct {
	Key       string    `json:"key"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}
