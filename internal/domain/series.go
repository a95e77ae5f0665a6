package domain

import (
	"sort"
	"time"
)

// DateRange is an inclusive calendar range at day granularity.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether day falls inside the range, comparing dates only.
func (r DateRange) Contains(day time.Time) bool {
	d := truncateToDay(day)
	return !d.Before(truncateToDay(r.Start)) && !d.After(truncateToDay(r.End))
}

// Overlaps reports whether two ranges share or adjoin at least one day.
// Adjoining ranges count: extending yesterday's window by one day must merge,
// not rebuild.
func (r DateRange) Overlaps(other DateRange) bool {
	if r.IsZero() || other.IsZero() {
		return false
	}
	start, end := truncateToDay(r.Start), truncateToDay(r.End)
	oStart, oEnd := truncateToDay(other.Start), truncateToDay(other.End)
	return !start.After(oEnd.AddDate(0, 0, 1)) && !oStart.After(end.AddDate(0, 0, 1))
}

// Union returns the smallest range covering both.
func (r DateRange) Union(other DateRange) DateRange {
	if r.IsZero() {
		return other
	}
	out := r
	if other.Start.Before(out.Start) {
		out.Start = other.Start
	}
	if other.End.After(out.End) {
		out.End = other.End
	}
	return out
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SeriesCache holds the hourly readings currently known per stream, keyed by
// the inclusive date range they cover. Within a stream, readings are sorted
// by period start with no duplicates. The cache is not safe for concurrent
// use; the coordinator owns the locking.
type SeriesCache struct {
	streams map[Stream][]HourlyReading
	held    DateRange
}

func NewSeriesCache() *SeriesCache {
	return &SeriesCache{streams: make(map[Stream][]HourlyReading)}
}

// Merge folds a freshly fetched batch covering rng into the cache. Readings
// are de-duplicated by period start, new data winning over old so estimated
// points revised to actual replace their predecessors. A batch whose range
// does not overlap the held range discards the cache and rebuilds from the
// batch alone.
func (c *SeriesCache) Merge(rng DateRange, batch map[Stream][]HourlyReading) {
	if !c.held.IsZero() && !c.held.Overlaps(rng) {
		c.streams = make(map[Stream][]HourlyReading)
		c.held = DateRange{}
	}

	for stream, readings := range batch {
		merged := make(map[time.Time]HourlyReading, len(c.streams[stream])+len(readings))
		for _, r := range c.streams[stream] {
			merged[r.PeriodStart.UTC()] = r
		}
		for _, r := range readings {
			merged[r.PeriodStart.UTC()] = r
		}

		out := make([]HourlyReading, 0, len(merged))
		for _, r := range merged {
			out = append(out, r)
		}
		sort.Slice(out, func(i, j int) bool {
			return out[i].PeriodStart.Before(out[j].PeriodStart)
		})
		c.streams[stream] = out
	}

	c.held = c.held.Union(rng)
}

// Series returns the cached readings for a stream in period-start order.
// The returned slice is a copy; callers may not observe later merges.
func (c *SeriesCache) Series(stream Stream) []HourlyReading {
	src := c.streams[stream]
	if len(src) == 0 {
		return nil
	}
	out := make([]HourlyReading, len(src))
	copy(out, src)
	return out
}

// Snapshot returns an independent copy of every stream, suitable for handing
// to the analytics engine without further locking.
func (c *SeriesCache) Snapshot() map[Stream][]HourlyReading {
	out := make(map[Stream][]HourlyReading, len(c.streams))
	for stream := range c.streams {
		out[stream] = c.Series(stream)
	}
	return out
}

// Held reports the date range the cache currently covers.
func (c *SeriesCache) Held() DateRange {
	return c.held
}
