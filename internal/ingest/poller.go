package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/siasic/seismic-watch/internal/models"
	"github.com/siasic/seismic-watch/internal/observability"
	"github.com/siasic/seismic-watch/internal/query"
)

// Feed abstracts the external event source for the poller.
type Feed interface {
	Fetch(ctx context.Context, sel Selector) ([]models.SeismicEvent, Report, error)
}

// Snapshot is one accepted refresh: a complete replacement collection,
// sorted most-recent-first, already refined by the selector's region box.
// Snapshots are immutable once published.
type Snapshot struct {
	Events     []models.SeismicEvent `json:"events"`
	Selector   Selector              `json:"selector"`
	FetchedAt  time.Time             `json:"fetched_at"`
	Generation uint64                `json:"generation"`
	Skipped    int                   `json:"skipped"`
	Defaulted  int                   `json:"magnitude_defaulted"`
}

// Status describes the poller for the API.
type Status struct {
	AutoRefresh bool       `json:"auto_refresh"`
	Selector    Selector   `json:"selector"`
	LastFetch   *time.Time `json:"last_fetch,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	EventCount  int        `json:"event_count"`
}

// Poller owns the refresh lifecycle against the feed. Every issued fetch
// carries a generation number; a completion is applied only if its
// generation is still the latest, so a late response from a superseded
// request is discarded instead of overwriting newer state. Manual
// refreshes and the periodic timer share the same guard.
type Poller struct {
	feed     Feed
	clock    clockwork.Clock
	metrics  *observability.Metrics
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	selector Selector
	gen      uint64
	snap     *Snapshot
	lastErr  error
	auto     bool
	autoStop chan struct{}
	closed   bool
	onApply  []func(*Snapshot)
}

// NewPoller builds a poller. The clock is injected so the auto-refresh
// ticker is testable; production passes clockwork.NewRealClock().
func NewPoller(feed Feed, sel Selector, interval time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *Poller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		feed:     feed,
		clock:    clock,
		metrics:  metrics,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		selector: sel,
	}
}

// OnApply registers a hook invoked for every accepted snapshot, in
// registration order. Hooks run with the poller lock held and must not
// call back into the poller.
func (p *Poller) OnApply(fn func(*Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onApply = append(p.onApply, fn)
}

// Refresh issues a fetch for the current selector, superseding any fetch
// still in flight. The returned channel closes when this fetch settles,
// whether applied, discarded, or failed.
func (p *Poller) Refresh() <-chan struct{} {
	done := make(chan struct{})

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(done)
		return done
	}
	p.gen++
	gen := p.gen
	sel := p.selector
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer close(done)

		start := p.clock.Now()
		events, report, err := p.feed.Fetch(p.ctx, sel)
		p.metrics.FetchDuration.Observe(p.clock.Since(start).Seconds())
		p.apply(gen, sel, events, report, err)
	}()

	return done
}

func (p *Poller) apply(gen uint64, sel Selector, events []models.SeismicEvent, report Report, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || gen != p.gen {
		// A newer request was issued (or we tore down) while this one was
		// in flight. Its result is stale by definition: drop it silently.
		p.metrics.PollsTotal.WithLabelValues("superseded").Inc()
		slog.Debug("discarding superseded fetch", "generation", gen, "latest", p.gen)
		return
	}

	if err != nil {
		// The last-good snapshot stays in place; only the error flag moves.
		p.lastErr = err
		p.metrics.PollsTotal.WithLabelValues("error").Inc()
		slog.Error("poll failed", "error", err, "floor", sel.Floor, "window", sel.Window)
		return
	}

	// The feed's region granularity is coarser than ours, so the precise
	// bounding-box refinement is reapplied here.
	refined := make([]models.SeismicEvent, 0, len(events))
	for i := range events {
		if sel.Region.Contains(events[i].Coordinates()) {
			refined = append(refined, events[i])
		}
	}
	refined = query.Apply(refined, query.FilterState{}, query.SortState{Field: query.SortByTime, Descending: true})

	snap := &Snapshot{
		Events:     refined,
		Selector:   sel,
		FetchedAt:  p.clock.Now(),
		Generation: gen,
		Skipped:    report.Skipped,
		Defaulted:  report.MagnitudeDefaulted,
	}
	p.snap = snap
	p.lastErr = nil

	p.metrics.PollsTotal.WithLabelValues("success").Inc()
	p.metrics.RecordsSkipped.Add(float64(report.Skipped))
	p.metrics.RecordsDefaulted.Add(float64(report.MagnitudeDefaulted))
	p.metrics.EventsCurrent.Set(float64(len(refined)))

	slog.Info("snapshot applied",
		"generation", gen,
		"events", len(refined),
		"skipped", report.Skipped,
		"region", sel.Region)

	for _, fn := range p.onApply {
		fn(snap)
	}
}

// SetSelector replaces the fetch parameters and immediately issues a
// refresh, superseding anything in flight.
func (p *Poller) SetSelector(sel Selector) <-chan struct{} {
	p.mu.Lock()
	p.selector = sel
	p.mu.Unlock()
	return p.Refresh()
}

// SetAutoRefresh enables or disables the periodic refresh timer.
func (p *Poller) SetAutoRefresh(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.auto == enabled {
		return
	}
	p.auto = enabled
	if enabled {
		p.metrics.AutoRefreshOn.Set(1)
		p.autoStop = make(chan struct{})
		p.wg.Add(1)
		go p.runAuto(p.autoStop)
	} else {
		p.metrics.AutoRefreshOn.Set(0)
		close(p.autoStop)
		p.autoStop = nil
	}
}

func (p *Poller) runAuto(stop chan struct{}) {
	defer p.wg.Done()

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-p.ctx.Done():
			return
		case <-ticker.Chan():
			p.Refresh()
		}
	}
}

// Snapshot returns the current collection and the recoverable error state.
// A failed poll leaves the previous snapshot in place, so callers can keep
// rendering stale data alongside the error.
func (p *Poller) Snapshot() (*Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap, p.lastErr
}

// Status reports the poller state for the API.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{
		AutoRefresh: p.auto,
		Selector:    p.selector,
	}
	if p.lastErr != nil {
		st.LastError = p.lastErr.Error()
	}
	if p.snap != nil {
		t := p.snap.FetchedAt
		st.LastFetch = &t
		st.EventCount = len(p.snap.Events)
	}
	return st
}

// Close stops the timer, aborts any in-flight request, and waits for all
// goroutines. After Close no completion can mutate state and no timer
// callback fires.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.autoStop != nil {
		close(p.autoStop)
		p.autoStop = nil
		p.auto = false
	}
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}
