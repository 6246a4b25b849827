package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time for anything that schedules or selects by
// wall-clock, so tests can advance time deterministically.
type Clock interface {
	Now() time.Time
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)

type SystemClock struct{}

func NewSystemClock() Clock {
	return SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
