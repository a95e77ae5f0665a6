package ports

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// ZoneClock reads the system clock in a fixed location. Calendar bucketing
// ("today", month windows, fetch-range dates) follows the account's zone,
// not the host's.
type ZoneClock struct {
	loc *time.Location
}

func NewZoneClock(loc *time.Location) ZoneClock {
	if loc == nil {
		loc = time.Local
	}
	return ZoneClock{loc: loc}
}

func (c ZoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}
