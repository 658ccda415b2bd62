package model

import (
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Instant is a scheduled start time in seconds since the Unix epoch. The
// document stores it as a JSON number, so fractional seconds are possible.
type Instant float64

// Time converts the instant to a time.Time, keeping sub-second precision.
// Non-finite instants map to the zero time.
func (i Instant) Time() time.Time {
	f := float64(i)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Valid reports whether the instant is a finite number.
func (i Instant) Valid() bool {
	f := float64(i)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (i Instant) String() string {
	return strconv.FormatFloat(float64(i), 'f', -1, 64)
}

// Festival is the decoded schedule document.
type Festival struct {
	// Days are the festival day-of-month numbers ("10, 11, 17, 18").
	Days []int
	Year int

	// RawDays / RawYear keep the document strings as given.
	RawDays string
	RawYear string

	Shows []ShowRecord
}

// ShowRecord is a festival show with its full list of start instants.
// Records are immutable once loaded.
type ShowRecord struct {
	ID          int
	Name        string
	Stage       string
	Description string
	Times       []Instant
	Favorite    bool
	OneNight    bool
}

// ShowInstance is one (record, instant) projection: the unit that gets
// bucketed and displayed.
type ShowInstance struct {
	// Key identifies this instance across refreshes. It is derived from the
	// record ID and instant, so recomputing yields the same value.
	Key string

	ID          int
	Name        string
	Stage       string
	Description string
	Start       Instant
	Favorite    bool
	OneNight    bool
}

// instanceNamespace scopes the name-based UUIDs used for instance keys.
var instanceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("festsched:show-instance"))

// NewShowInstance projects rec onto a single start instant.
func NewShowInstance(rec ShowRecord, at Instant) ShowInstance {
	return ShowInstance{
		Key:         InstanceKey(rec.ID, at),
		ID:          rec.ID,
		Name:        rec.Name,
		Stage:       rec.Stage,
		Description: rec.Description,
		Start:       at,
		Favorite:    rec.Favorite,
		OneNight:    rec.OneNight,
	}
}

// InstanceKey returns the stable key for show id at instant at.
func InstanceKey(id int, at Instant) string {
	name := strconv.Itoa(id) + "@" + at.String()
	return uuid.NewSHA1(instanceNamespace, []byte(name)).String()
}

// Instances materializes every (record, instant) pair in record order.
func (r ShowRecord) Instances() []ShowInstance {
	out := make([]ShowInstance, 0, len(r.Times))
	for _, t := range r.Times {
		out = append(out, NewShowInstance(r, t))
	}
	return out
}
