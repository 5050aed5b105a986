package ports

import "time"

// Clock supplies the current wall-clock time. Time-based resets (daily loss
// window, circuit-breaker expiry, max holding duration) are evaluated lazily
// against this clock, so tests can substitute a fake.
type Clock interface {
	Now() time.Time
}
