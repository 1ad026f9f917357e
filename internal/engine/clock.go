package engine

import "time"

// Clock reads wall time in unix seconds. Strategies compare unlock times
// against it; event order never depends on it, the log's seq does that.
type Clock interface {
	Now() uint64
}

// SystemClock reads the host clock.
type SystemClock struct{}

// Now returns the current unix time.
func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// FixedClock always reads the same instant. The CLI uses it for --now.
type FixedClock uint64

// Now returns the fixed instant.
func (c FixedClock) Now() uint64 {
	return uint64(c)
}
