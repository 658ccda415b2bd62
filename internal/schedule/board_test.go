package schedule

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"festsched/internal/model"
	"festsched/internal/timefmt"
)

func TestBuildBoardSectionsAndFormatting(t *testing.T) {
	f := timefmt.New("UTC", timefmt.StyleShort)
	board := BuildBoard(time.Unix(1619664631-600, 0), bundled(t), BoardOptions{Formatter: f})

	require.Len(t, board.Sections, 4)
	for i, b := range Buckets {
		assert.Equal(t, b, board.Sections[i].Bucket)
		assert.Equal(t, b.Label(), board.Sections[i].Label)
	}

	soon := board.Section(StartingSoon)
	require.Len(t, soon.Entries, 4)
	assert.Equal(t, "Bayou Cirque", soon.Entries[0].ShowName)
	assert.Equal(t, "Washing Well Stage", soon.Entries[0].StageName)
	assert.Equal(t, "2:50 AM", soon.Entries[0].FormattedTime)
	assert.Equal(t, model.InstanceKey(16, 1619664631), soon.Entries[0].Key)

	assert.Empty(t, board.Section(Upcoming).Entries)
	assert.NotNil(t, board.Section(Upcoming).Entries)
	assert.Equal(t, "drop", board.PastPolicy)
	assert.Equal(t, map[Bucket]int{StartingSoon: 4, Upcoming: 0, Future: 0, FarFuture: 0}, board.Counts())
}

func TestBuildBoardFarFutureChronological(t *testing.T) {
	board := BuildBoard(time.Unix(1619659651-600, 0), bundled(t), BoardOptions{})
	far := board.Section(FarFuture).Entries
	require.Len(t, far, 4)
	var got []string
	for _, e := range far {
		got = append(got, e.ShowName)
	}
	// 1619664631, 1619664637, 1619664648, 1619664702
	assert.Equal(t, []string{"Bayou Cirque", "Whiskey Bay Rovers", "The Bilge Pumps", "The Duelist"}, got)
	assert.Empty(t, far[0].FormattedTime, "no formatter, no formatted time")
}

func TestBuildBoardFavoritesOnly(t *testing.T) {
	records := []model.ShowRecord{
		{ID: 1, Name: "Fav", Favorite: true, Times: []model.Instant{model.Instant(now.Unix() + 60)}},
		{ID: 2, Name: "Other", Times: []model.Instant{model.Instant(now.Unix() + 60)}},
	}
	board := BuildBoard(now, records, BoardOptions{FavoritesOnly: true})
	soon := board.Section(StartingSoon).Entries
	require.Len(t, soon, 1)
	assert.Equal(t, "Fav", soon[0].ShowName)
	assert.True(t, soon[0].Favorite)
}

func TestBuildBoardIdempotent(t *testing.T) {
	opts := BoardOptions{Formatter: timefmt.New("UTC", timefmt.StyleFull)}
	n := time.Unix(1619660000, 0)
	a := BuildBoard(n, bundled(t), opts)
	b := BuildBoard(n, bundled(t), opts)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("boards differ (-a +b):\n%s", diff)
	}
}

func TestBoardJSONShape(t *testing.T) {
	board := BuildBoard(time.Unix(1619664631-600, 0), bundled(t), BoardOptions{})
	raw, err := json.Marshal(board)
	require.NoError(t, err)

	var decoded struct {
		Sections []struct {
			Bucket  string `json:"bucket"`
			Label   string `json:"label"`
			Entries []struct {
				ShowName string  `json:"show_name"`
				Start    float64 `json:"start"`
			} `json:"entries"`
		} `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Sections, 4)
	assert.Equal(t, "starting_soon", decoded.Sections[0].Bucket)
	assert.Equal(t, "far_future", decoded.Sections[3].Bucket)
	assert.Equal(t, float64(1619664631), decoded.Sections[0].Entries[0].Start)
}

func TestBoardSectionMissing(t *testing.T) {
	b := &Board{}
	s := b.Section(Future)
	assert.Equal(t, "Future Shows", s.Label)
	assert.Empty(t, s.Entries)
}

type fixedSource struct {
	calls   atomic.Int64
	records []model.ShowRecord
}

func (f *fixedSource) Shows() []model.ShowRecord {
	f.calls.Add(1)
	return f.records
}

func TestRefresherPublishesGenerations(t *testing.T) {
	src := &fixedSource{records: bundled(t)}
	clock := time.Unix(1619664631-600, 0)
	r, err := NewRefresher(src, "", BoardOptions{}, WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	first := r.Current()
	require.NotNil(t, first)
	assert.Equal(t, uint64(1), first.Generation)
	assert.Equal(t, DefaultRefreshSpec, r.Spec())

	second := r.Refresh()
	assert.Equal(t, uint64(2), second.Generation)
	assert.Same(t, second, r.Current())
	assert.NotSame(t, first, second, "each refresh replaces the board wholesale")
	assert.Equal(t, first.Sections, second.Sections)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestRefresherRejectsBadSpec(t *testing.T) {
	_, err := NewRefresher(&fixedSource{}, "every now and then", BoardOptions{})
	assert.Error(t, err)
}

func TestRefresherRunTicksAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, err := NewRefresher(&fixedSource{records: bundled(t)}, "@every 1s", BoardOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return r.Current().Generation >= 2
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
