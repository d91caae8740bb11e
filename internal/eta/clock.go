package eta

import "time"

// Clock abstracts wall-clock reads so estimates and countdowns can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
