// Package timefmt renders show start instants for display.
//
// A Formatter is built once at startup and shared read-only by the board
// builder, the HTTP layer and the calendar export.
package timefmt

import (
	"strings"
	"time"

	appLog "festsched/internal/log"
	"festsched/internal/model"
)

// Style selects how much of the instant is shown.
type Style string

const (
	// StyleShort shows only the local time of day, e.g. "6:50 PM".
	StyleShort Style = "short"
	// StyleFull shows the full pattern, e.g.
	// "Wed, 28 Apr 2021 18:50:31 -0700".
	StyleFull Style = "full"
)

const (
	shortLayout = "3:04 PM"
	fullLayout  = "Mon, 2 Jan 2006 15:04:05 -0700"
)

// Formatter formats instants in a fixed location and style. The zero value
// is not usable; use New.
type Formatter struct {
	loc    *time.Location
	style  Style
	layout string
}

// New returns a Formatter for the given IANA timezone and style. An empty or
// unknown timezone falls back to time.Local; an unknown style falls back to
// StyleShort.
func New(timezone string, style Style) *Formatter {
	f := &Formatter{
		loc:   ResolveLocation(timezone),
		style: StyleShort,
	}
	if Style(strings.ToLower(string(style))) == StyleFull {
		f.style = StyleFull
	}
	f.layout = shortLayout
	if f.style == StyleFull {
		f.layout = fullLayout
	}
	return f
}

// Format renders the instant. Non-finite instants render as "".
func (f *Formatter) Format(at model.Instant) string {
	if !at.Valid() {
		return ""
	}
	return at.Time().In(f.loc).Format(f.layout)
}

// Location returns the display location.
func (f *Formatter) Location() *time.Location {
	return f.loc
}

// Style returns the effective style.
func (f *Formatter) Style() Style {
	return f.style
}

// ResolveLocation loads the named zone, falling back to time.Local.
func ResolveLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
