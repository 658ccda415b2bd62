package schedule

import (
	"fmt"
	"strings"
	"time"

	"festsched/internal/model"
)

// Bucket is a time-until-start category. The numeric order is the display
// order.
type Bucket int

const (
	StartingSoon Bucket = iota
	Upcoming
	Future
	FarFuture
)

// Buckets lists every bucket in display order.
var Buckets = [...]Bucket{StartingSoon, Upcoming, Future, FarFuture}

// Upper bounds (inclusive, in whole minutes) of the first three buckets.
const (
	startingSoonMax = 15
	upcomingMax     = 30
	futureMax       = 45
)

// Label is the section heading shown for the bucket.
func (b Bucket) Label() string {
	switch b {
	case StartingSoon:
		return "Shows starting soon"
	case Upcoming:
		return "Upcoming shows"
	case Future:
		return "Future Shows"
	case FarFuture:
		return "Far Future shows"
	default:
		return ""
	}
}

// String returns the stable machine name used in JSON and metrics.
func (b Bucket) String() string {
	switch b {
	case StartingSoon:
		return "starting_soon"
	case Upcoming:
		return "upcoming"
	case Future:
		return "future"
	case FarFuture:
		return "far_future"
	default:
		return fmt.Sprintf("bucket(%d)", int(b))
	}
}

func (b Bucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Bucket) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for _, c := range Buckets {
		if c.String() == s {
			*b = c
			return nil
		}
	}
	return fmt.Errorf("schedule: unknown bucket %q", text)
}

// MinutesUntil returns the whole minutes from now to at, truncated toward
// zero: 59 seconds in the past is 0, 60 seconds in the past is -1. A
// non-finite instant yields 0.
func MinutesUntil(now time.Time, at model.Instant) int {
	if !at.Valid() {
		return 0
	}
	return int(at.Time().Sub(now) / time.Minute)
}

// ForMinutes maps a minute delta onto a bucket. A negative delta (already
// started) shares FarFuture with anything beyond 45 minutes.
func ForMinutes(minutes int) Bucket {
	switch {
	case minutes < 0:
		return FarFuture
	case minutes <= startingSoonMax:
		return StartingSoon
	case minutes <= upcomingMax:
		return Upcoming
	case minutes <= futureMax:
		return Future
	default:
		return FarFuture
	}
}

// Classify buckets a single start instant relative to now.
func Classify(now time.Time, at model.Instant) Bucket {
	return ForMinutes(MinutesUntil(now, at))
}
