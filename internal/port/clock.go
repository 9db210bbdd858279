package port

import "time"

// Clock supplies the transaction timestamp for phase gating. The engine
// never reads the wall clock directly so tests can drive the window.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
