package export

import (
	"io"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"festsched/internal/model"
	"festsched/internal/schedule"
)

const (
	productID = "-//festsched//Festival Schedule//EN"

	// DefaultShowLength is used for DTEND since the document only carries
	// start instants.
	DefaultShowLength = 30 * time.Minute
)

// CalendarOptions controls WriteCalendar.
type CalendarOptions struct {
	Name       string
	ShowLength time.Duration
	Policy     schedule.PastPolicy
}

// BuildCalendar renders every instance that Group would keep at now as a
// VEVENT. Events are in chronological order.
func BuildCalendar(now time.Time, records []model.ShowRecord, opts CalendarOptions) *ical.Calendar {
	length := opts.ShowLength
	if length <= 0 {
		length = DefaultShowLength
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	g := schedule.Group(now, records, opts.Policy)
	instances := make([]model.ShowInstance, 0, g.Len())
	for _, b := range schedule.Buckets {
		instances = append(instances, g[b]...)
	}
	schedule.Order(schedule.FarFuture, instances)

	stamp := now.UTC()
	for _, inst := range instances {
		start := inst.Start.Time().UTC()
		ev := cal.AddEvent(inst.Key + "@festsched")
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(length))
		ev.SetSummary(inst.Name)
		if inst.Stage != "" {
			ev.SetLocation(inst.Stage)
		}
		if inst.Description != "" {
			ev.SetDescription(inst.Description)
		}
		ev.SetProperty(ical.ComponentProperty("X-FESTSCHED-SHOW-ID"), strconv.Itoa(inst.ID))
	}
	return cal
}

// WriteCalendar serializes BuildCalendar's result to w.
func WriteCalendar(w io.Writer, now time.Time, records []model.ShowRecord, opts CalendarOptions) error {
	cal := BuildCalendar(now, records, opts)
	_, err := io.WriteString(w, cal.Serialize())
	return err
}
