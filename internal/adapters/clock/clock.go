package clock

import "time"

// System implements ports.Clock with the real wall clock.
type System struct{}

// Now returns the current local time.
func (System) Now() time.Time { return time.Now() }
