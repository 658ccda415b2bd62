package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	appLog "festsched/internal/log"
	"festsched/internal/model"
)

// DefaultRefreshSpec recomputes the board every 30 seconds.
const DefaultRefreshSpec = "@every 30s"

// RecordSource supplies the current immutable record snapshot.
type RecordSource interface {
	Shows() []model.ShowRecord
}

// Refresher republishes the board on a cron trigger. Each refresh builds a
// complete new Board and swaps it in; readers never see a partial board.
type Refresher struct {
	src  RecordSource
	opts BoardOptions
	spec string
	now  func() time.Time

	mu         sync.Mutex // serializes refreshes so generations stay ordered
	generation uint64
	current    atomic.Pointer[Board]
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithClock overrides the time source used for each refresh.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

// NewRefresher validates spec and returns a Refresher. The first board is
// built immediately so Current never returns nil.
func NewRefresher(src RecordSource, spec string, opts BoardOptions, options ...Option) (*Refresher, error) {
	if spec == "" {
		spec = DefaultRefreshSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("schedule: invalid refresh spec %q: %w", spec, err)
	}
	r := &Refresher{
		src:  src,
		opts: opts,
		spec: spec,
		now:  time.Now,
	}
	for _, o := range options {
		o(r)
	}
	r.Refresh()
	return r, nil
}

// Current returns the most recently published board.
func (r *Refresher) Current() *Board {
	return r.current.Load()
}

// Options returns the board options every refresh uses.
func (r *Refresher) Options() BoardOptions {
	return r.opts
}

// Spec returns the cron spec driving the refresher.
func (r *Refresher) Spec() string {
	return r.spec
}

// Refresh rebuilds and publishes the board now. It is also the cron job.
func (r *Refresher) Refresh() *Board {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	board := BuildBoard(r.now(), r.src.Shows(), r.opts)
	r.generation++
	board.Generation = r.generation
	r.current.Store(board)

	observeRefresh(board, time.Since(start))
	counts := board.Counts()
	appLog.Debug("board refreshed",
		"generation", board.Generation,
		StartingSoon.String(), counts[StartingSoon],
		Upcoming.String(), counts[Upcoming],
		Future.String(), counts[Future],
		FarFuture.String(), counts[FarFuture],
	)
	return board
}

// Run drives refreshes until ctx is canceled, then waits for an in-flight
// refresh to finish.
func (r *Refresher) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(r.spec, func() { r.Refresh() }); err != nil {
		return fmt.Errorf("schedule: register refresh: %w", err)
	}
	appLog.Info("board refresher started", "spec", r.spec, "past_policy", r.opts.Policy.String())
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("board refresher stopped", "generation", r.Current().Generation)
	return nil
}
