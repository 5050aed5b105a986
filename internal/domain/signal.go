package domain

import "time"

// Signal is the metadata of the trade signal that originated a position.
// Signal generation itself lives outside the core; this is what the core
// retains about it.
type Signal struct {
	Token      string
	Direction  Direction
	Price      float64   // Price observed when the signal fired
	Confidence float64   // Signal confidence in [0, 1]
	Strategy   string    // Name of the producing strategy
	Time       time.Time // When the signal fired
}
