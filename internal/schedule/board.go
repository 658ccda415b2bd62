package schedule

import (
	"time"

	"festsched/internal/model"
	"festsched/internal/timefmt"
)

// Entry is a display-ready show instance.
type Entry struct {
	Key           string        `json:"key"`
	ShowID        int           `json:"show_id"`
	ShowName      string        `json:"show_name"`
	StageName     string        `json:"stage_name"`
	Description   string        `json:"description"`
	FormattedTime string        `json:"formatted_time"`
	Start         model.Instant `json:"start"`
	Favorite      bool          `json:"favorite"`
	OneNight      bool          `json:"one_night"`
}

// Section is one bucket of the board.
type Section struct {
	Bucket  Bucket  `json:"bucket"`
	Label   string  `json:"label"`
	Entries []Entry `json:"entries"`
}

// Board is the rendered schedule: always four sections in bucket order, some
// possibly empty.
type Board struct {
	Generation  uint64    `json:"generation"`
	GeneratedAt time.Time `json:"generated_at"`
	PastPolicy  string    `json:"past_policy"`
	Sections    []Section `json:"sections"`
}

// BoardOptions controls BuildBoard.
type BoardOptions struct {
	Policy        PastPolicy
	Formatter     *timefmt.Formatter
	FavoritesOnly bool
}

// BuildBoard groups records relative to now, orders every bucket and formats
// the entries. It does not set Generation; the refresher owns that.
func BuildBoard(now time.Time, records []model.ShowRecord, opts BoardOptions) *Board {
	if opts.FavoritesOnly {
		records = favorites(records)
	}
	g := Group(now, records, opts.Policy)

	board := &Board{
		GeneratedAt: now,
		PastPolicy:  opts.Policy.String(),
		Sections:    make([]Section, 0, len(Buckets)),
	}
	for _, b := range Buckets {
		shows := g.Ordered(b)
		entries := make([]Entry, 0, len(shows))
		for _, s := range shows {
			entries = append(entries, newEntry(s, opts.Formatter))
		}
		board.Sections = append(board.Sections, Section{
			Bucket:  b,
			Label:   b.Label(),
			Entries: entries,
		})
	}
	return board
}

// Section returns the section for b. Boards built by BuildBoard always have
// one per bucket.
func (b *Board) Section(bucket Bucket) Section {
	for _, s := range b.Sections {
		if s.Bucket == bucket {
			return s
		}
	}
	return Section{Bucket: bucket, Label: bucket.Label(), Entries: []Entry{}}
}

// Counts returns the number of entries per bucket.
func (b *Board) Counts() map[Bucket]int {
	out := make(map[Bucket]int, len(b.Sections))
	for _, s := range b.Sections {
		out[s.Bucket] = len(s.Entries)
	}
	return out
}

func newEntry(s model.ShowInstance, f *timefmt.Formatter) Entry {
	e := Entry{
		Key:         s.Key,
		ShowID:      s.ID,
		ShowName:    s.Name,
		StageName:   s.Stage,
		Description: s.Description,
		Start:       s.Start,
		Favorite:    s.Favorite,
		OneNight:    s.OneNight,
	}
	if f != nil {
		e.FormattedTime = f.Format(s.Start)
	}
	return e
}

func favorites(records []model.ShowRecord) []model.ShowRecord {
	out := make([]model.ShowRecord, 0, len(records))
	for _, r := range records {
		if r.Favorite {
			out = append(out, r)
		}
	}
	return out
}
