package diag

import "github.com/messixukejia/openclaw/internal/config"

// Enabled reports whether producers should emit diagnostic events. It is
// advisory: the bus itself has no disabled state, and Emit works regardless.
// A nil config reads as disabled.
func Enabled(cfg *config.Config) bool {
	return cfg != nil && cfg.Diagnostics.Enabled
}
