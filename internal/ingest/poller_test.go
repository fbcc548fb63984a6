package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/siasic/seismic-watch/internal/geo"
	"github.com/siasic/seismic-watch/internal/models"
	"github.com/siasic/seismic-watch/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedFeed hands every Fetch call to the test, which decides when and
// how it resolves. That lets tests interleave completions out of order.
type scriptedFeed struct {
	calls chan *feedCall
}

type feedCall struct {
	sel    Selector
	result chan feedResult
}

type feedResult struct {
	events []models.SeismicEvent
	report Report
	err    error
}

func newScriptedFeed() *scriptedFeed {
	return &scriptedFeed{calls: make(chan *feedCall, 8)}
}

func (f *scriptedFeed) Fetch(ctx context.Context, sel Selector) ([]models.SeismicEvent, Report, error) {
	call := &feedCall{sel: sel, result: make(chan feedResult, 1)}
	f.calls <- call
	select {
	case res := <-call.result:
		return res.events, res.report, res.err
	case <-ctx.Done():
		return nil, Report{}, ctx.Err()
	}
}

func (c *feedCall) resolve(events []models.SeismicEvent, report Report) {
	c.result <- feedResult{events: events, report: report}
}

func (c *feedCall) fail(err error) {
	c.result <- feedResult{err: err}
}

func waitCall(t *testing.T, f *scriptedFeed) *feedCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch")
		return nil
	}
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fetch to settle")
	}
}

func worldSelector() Selector {
	return Selector{Floor: FloorAll, Window: WindowDay, Region: geo.RegionWorld}
}

func testEvent(id string, lat, lon float64, at time.Time) models.SeismicEvent {
	return models.SeismicEvent{
		ID:         id,
		OccurredAt: at,
		Latitude:   lat,
		Longitude:  lon,
		DepthKm:    10,
		Magnitude:  3.1,
		Source:     models.SourceFeed,
	}
}

func newTestPoller(feed Feed, sel Selector, clock clockwork.Clock) *Poller {
	return NewPoller(feed, sel, time.Minute, clock, observability.NewMetricsForTesting())
}

func TestPollerLateCompletionDiscarded(t *testing.T) {
	feed := newScriptedFeed()
	p := newTestPoller(feed, worldSelector(), clockwork.NewFakeClock())
	defer p.Close()

	now := time.Now().UTC()

	doneA := p.Refresh()
	callA := waitCall(t, feed)

	doneB := p.Refresh()
	callB := waitCall(t, feed)

	callB.resolve([]models.SeismicEvent{testEvent("b1", 4.5, -74.2, now)}, Report{})
	waitDone(t, doneB)

	// A resolves after B was already applied; its result must never win.
	callA.resolve([]models.SeismicEvent{testEvent("a1", 6.7, -73.1, now)}, Report{})
	waitDone(t, doneA)

	snap, err := p.Snapshot()
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "b1", snap.Events[0].ID)
	assert.Equal(t, uint64(2), snap.Generation)
}

func TestPollerFailureRetainsLastGood(t *testing.T) {
	feed := newScriptedFeed()
	p := newTestPoller(feed, worldSelector(), clockwork.NewFakeClock())
	defer p.Close()

	now := time.Now().UTC()

	done := p.Refresh()
	waitCall(t, feed).resolve([]models.SeismicEvent{testEvent("keep", 6.7, -73.1, now)}, Report{})
	waitDone(t, done)

	done = p.Refresh()
	waitCall(t, feed).fail(&FeedError{URL: "http://feed/all_day.geojson", Err: errors.New("boom")})
	waitDone(t, done)

	snap, err := p.Snapshot()
	require.Error(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "keep", snap.Events[0].ID)
	assert.Equal(t, uint64(1), snap.Generation)

	// The next success clears the error.
	done = p.Refresh()
	waitCall(t, feed).resolve([]models.SeismicEvent{testEvent("next", 6.7, -73.1, now)}, Report{})
	waitDone(t, done)

	snap, err = p.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "next", snap.Events[0].ID)
}

func TestPollerRefinesByRegionAndSortsRecentFirst(t *testing.T) {
	feed := newScriptedFeed()
	sel := Selector{Floor: FloorM25, Window: WindowWeek, Region: geo.RegionColombia}
	p := newTestPoller(feed, sel, clockwork.NewFakeClock())
	defer p.Close()

	now := time.Now().UTC()
	events := []models.SeismicEvent{
		testEvent("older", 6.78, -73.18, now.Add(-2*time.Hour)),
		testEvent("tokyo", 35.68, 139.69, now.Add(-time.Hour)),
		testEvent("newer", 4.57, -74.29, now.Add(-time.Minute)),
	}

	done := p.Refresh()
	waitCall(t, feed).resolve(events, Report{Skipped: 2, MagnitudeDefaulted: 1})
	waitDone(t, done)

	snap, err := p.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Events, 2)
	assert.Equal(t, "newer", snap.Events[0].ID)
	assert.Equal(t, "older", snap.Events[1].ID)
	assert.Equal(t, 2, snap.Skipped)
	assert.Equal(t, 1, snap.Defaulted)
}

func TestPollerSetSelectorSupersedesInFlight(t *testing.T) {
	feed := newScriptedFeed()
	p := newTestPoller(feed, worldSelector(), clockwork.NewFakeClock())
	defer p.Close()

	now := time.Now().UTC()

	doneOld := p.Refresh()
	oldCall := waitCall(t, feed)

	newSel := Selector{Floor: FloorM45, Window: WindowMonth, Region: geo.RegionSouthAmerica}
	doneNew := p.SetSelector(newSel)
	newCall := waitCall(t, feed)
	assert.Equal(t, newSel, newCall.sel)

	newCall.resolve([]models.SeismicEvent{testEvent("sa", -12.0, -77.0, now)}, Report{})
	waitDone(t, doneNew)

	oldCall.resolve([]models.SeismicEvent{testEvent("stale", 4.5, -74.2, now)}, Report{})
	waitDone(t, doneOld)

	snap, err := p.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "sa", snap.Events[0].ID)
	assert.Equal(t, newSel, snap.Selector)
}

func TestPollerOnApplyHooks(t *testing.T) {
	feed := newScriptedFeed()
	p := newTestPoller(feed, worldSelector(), clockwork.NewFakeClock())
	defer p.Close()

	var seen []uint64
	p.OnApply(func(s *Snapshot) { seen = append(seen, s.Generation) })

	done := p.Refresh()
	waitCall(t, feed).resolve([]models.SeismicEvent{testEvent("e1", 1, 1, time.Now().UTC())}, Report{})
	waitDone(t, done)

	done = p.Refresh()
	waitCall(t, feed).fail(errors.New("down"))
	waitDone(t, done)

	// Hooks fire for accepted snapshots only.
	assert.Equal(t, []uint64{1}, seen)
}

func TestPollerAutoRefresh(t *testing.T) {
	feed := newScriptedFeed()
	fc := clockwork.NewFakeClock()
	p := newTestPoller(feed, worldSelector(), fc)
	defer p.Close()

	p.SetAutoRefresh(true)
	assert.True(t, p.Status().AutoRefresh)

	fc.BlockUntil(1)
	fc.Advance(time.Minute)
	call := waitCall(t, feed)
	call.resolve([]models.SeismicEvent{testEvent("tick", 4.5, -74.2, time.Now().UTC())}, Report{})

	snapshotHas := func(id string) bool {
		snap, _ := p.Snapshot()
		return snap != nil && len(snap.Events) == 1 && snap.Events[0].ID == id
	}
	require.Eventually(t, func() bool { return snapshotHas("tick") }, 2*time.Second, 5*time.Millisecond)

	p.SetAutoRefresh(false)
	assert.False(t, p.Status().AutoRefresh)
}

func TestPollerCloseAbortsInFlight(t *testing.T) {
	feed := newScriptedFeed()
	p := newTestPoller(feed, worldSelector(), clockwork.NewFakeClock())

	p.Refresh()
	waitCall(t, feed)

	// Close cancels the in-flight request and waits it out; no state
	// update can land afterwards.
	p.Close()

	snap, err := p.Snapshot()
	assert.Nil(t, snap)
	assert.NoError(t, err)

	waitDone(t, p.Refresh())
	snap, _ = p.Snapshot()
	assert.Nil(t, snap)
}

func TestPollerStatus(t *testing.T) {
	feed := newScriptedFeed()
	p := newTestPoller(feed, worldSelector(), clockwork.NewFakeClock())
	defer p.Close()

	st := p.Status()
	assert.Nil(t, st.LastFetch)
	assert.Zero(t, st.EventCount)

	done := p.Refresh()
	waitCall(t, feed).resolve([]models.SeismicEvent{testEvent("e1", 1, 1, time.Now().UTC())}, Report{})
	waitDone(t, done)

	st = p.Status()
	require.NotNil(t, st.LastFetch)
	assert.Equal(t, 1, st.EventCount)
	assert.Empty(t, st.LastError)
}
