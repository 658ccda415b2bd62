package schedule

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"festsched/internal/model"
)

// PastPolicy decides what Group does with instants that already started.
type PastPolicy int

const (
	// PastDrop leaves already-started instants out of the grouping.
	PastDrop PastPolicy = iota
	// PastFarFuture keeps them and lets Classify place them in FarFuture.
	PastFarFuture
)

// ParsePastPolicy accepts "drop" and "far_future". Empty means PastDrop.
func ParsePastPolicy(s string) (PastPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return PastDrop, nil
	case "far_future", "farfuture":
		return PastFarFuture, nil
	default:
		return PastDrop, fmt.Errorf("schedule: unknown past policy %q", s)
	}
}

func (p PastPolicy) String() string {
	if p == PastFarFuture {
		return "far_future"
	}
	return "drop"
}

// Grouping maps each bucket to its instances. A missing key reads as an
// empty bucket.
type Grouping map[Bucket][]model.ShowInstance

// Len returns the total number of instances across buckets.
func (g Grouping) Len() int {
	n := 0
	for _, v := range g {
		n += len(v)
	}
	return n
}

// Group materializes one instance per (record, instant) and assigns each to
// a bucket relative to now. Instances are appended in record order, then
// instant order; ordering for display is Order's job.
func Group(now time.Time, records []model.ShowRecord, policy PastPolicy) Grouping {
	out := make(Grouping, len(Buckets))
	for _, rec := range records {
		for _, at := range rec.Times {
			minutes := MinutesUntil(now, at)
			if minutes < 0 && policy == PastDrop {
				continue
			}
			b := ForMinutes(minutes)
			out[b] = append(out[b], model.NewShowInstance(rec, at))
		}
	}
	return out
}

// Order sorts a bucket's instances in place for display. FarFuture is
// chronological with the name as tiebreak; the near-term buckets are by name
// with the start as tiebreak.
func Order(b Bucket, shows []model.ShowInstance) {
	if b == FarFuture {
		slices.SortStableFunc(shows, func(x, y model.ShowInstance) int {
			if c := cmp.Compare(x.Start, y.Start); c != 0 {
				return c
			}
			return strings.Compare(x.Name, y.Name)
		})
		return
	}
	slices.SortStableFunc(shows, func(x, y model.ShowInstance) int {
		if c := strings.Compare(x.Name, y.Name); c != 0 {
			return c
		}
		return cmp.Compare(x.Start, y.Start)
	})
}

// Ordered returns a sorted copy of the grouping's bucket b.
func (g Grouping) Ordered(b Bucket) []model.ShowInstance {
	shows := slices.Clone(g[b])
	Order(b, shows)
	return shows
}
