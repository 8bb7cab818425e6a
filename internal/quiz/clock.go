package quiz

import "time"

// Clock supplies the time used to advance reveal timers. Tests substitute a
// manual clock so reveal progress is deterministic.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
