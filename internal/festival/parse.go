package festival

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	appLog "festsched/internal/log"
	"festsched/internal/model"
)

// ErrMissingFest is returned when the document has no "fest" object.
var ErrMissingFest = errors.New("festival: document has no \"fest\" object")

// defaultDocument is the schedule bundled with the binary. It is used when
// no schedule_path is configured.
//
//go:embed festival.json
var defaultDocument []byte

// DefaultDocument returns a copy of the bundled schedule document.
func DefaultDocument() []byte {
	return bytes.Clone(defaultDocument)
}

// document mirrors the on-disk JSON shape.
type document struct {
	Fest *festDoc `json:"fest"`
}

type festDoc struct {
	Days  string    `json:"days"`
	Year  string    `json:"year"`
	Shows []showDoc `json:"shows"`
}

type showDoc struct {
	ID          int       `json:"id"`
	ShowName    string    `json:"showName"`
	StageName   string    `json:"stageName"`
	Description string    `json:"description"`
	Time        []float64 `json:"time"`
	IsFavorite  bool      `json:"isFavorite"`
	OneNight    bool      `json:"oneNight"`
}

// Decode parses a festival document. Any structural problem (invalid JSON,
// missing "fest", non-numeric days or year) fails the whole load; there is
// no partial result.
func Decode(body []byte) (*model.Festival, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("festival: empty document")
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("festival: decode: %w", err)
	}
	if doc.Fest == nil {
		return nil, ErrMissingFest
	}

	days, err := parseDays(doc.Fest.Days)
	if err != nil {
		return nil, err
	}

	var year int
	if y := strings.TrimSpace(doc.Fest.Year); y != "" {
		year, err = strconv.Atoi(y)
		if err != nil {
			return nil, fmt.Errorf("festival: invalid year %q: %w", doc.Fest.Year, err)
		}
	}

	fest := &model.Festival{
		Days:    days,
		Year:    year,
		RawDays: doc.Fest.Days,
		RawYear: doc.Fest.Year,
		Shows:   make([]model.ShowRecord, 0, len(doc.Fest.Shows)),
	}

	seen := make(map[int]struct{}, len(doc.Fest.Shows))
	for _, s := range doc.Fest.Shows {
		if _, dup := seen[s.ID]; dup {
			appLog.Debug("festival: duplicate show id", "id", s.ID, "show", s.ShowName)
		}
		seen[s.ID] = struct{}{}

		times := make([]model.Instant, 0, len(s.Time))
		for _, t := range s.Time {
			times = append(times, model.Instant(t))
		}
		fest.Shows = append(fest.Shows, model.ShowRecord{
			ID:          s.ID,
			Name:        s.ShowName,
			Stage:       s.StageName,
			Description: s.Description,
			Times:       times,
			Favorite:    s.IsFavorite,
			OneNight:    s.OneNight,
		})
	}

	return fest, nil
}

// parseDays splits "10, 11, 17, 18" into day numbers. Empty input yields
// an empty list.
func parseDays(raw string) ([]int, error) {
	days := make([]int, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("festival: invalid day %q: %w", part, err)
		}
		if n < 1 || n > 31 {
			return nil, fmt.Errorf("festival: day %d out of range", n)
		}
		days = append(days, n)
	}
	return days, nil
}

// InstanceCount returns how many (record, instant) pairs the festival has.
func InstanceCount(f *model.Festival) int {
	if f == nil {
		return 0
	}
	n := 0
	for _, s := range f.Shows {
		n += len(s.Times)
	}
	return n
}
