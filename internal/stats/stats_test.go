package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siasic/seismic-watch/internal/models"
)

func ev(id string, at time.Time, mag, depth float64) models.SeismicEvent {
	return models.SeismicEvent{
		ID:         id,
		OccurredAt: at,
		Magnitude:  mag,
		DepthKm:    depth,
		Regime:     models.ClassifyDepth(depth),
	}
}

func TestSummarize(t *testing.T) {
	base := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	t.Run("empty collection", func(t *testing.T) {
		s := Summarize(nil)
		assert.Zero(t, s.Total)
		assert.Nil(t, s.Latest)
	})

	t.Run("means, max and counts", func(t *testing.T) {
		events := []models.SeismicEvent{
			ev("a", base, 2.0, 150),
			ev("b", base.Add(time.Hour), 4.0, 50),
			ev("c", base.Add(2*time.Hour), 3.0, 160),
		}
		events[0].InSantander = true

		s := Summarize(events)
		assert.Equal(t, 3, s.Total)
		assert.InDelta(t, 3.0, s.MeanMagnitude, 1e-9)
		assert.Equal(t, 4.0, s.MaxMagnitude)
		assert.InDelta(t, 120.0, s.MeanDepthKm, 1e-9)
		assert.Equal(t, 1, s.SantanderCount)
		assert.Equal(t, 2, s.NestCount)
		require.NotNil(t, s.Latest)
		assert.Equal(t, "c", s.Latest.ID)
	})

	t.Run("latest tie broken by id", func(t *testing.T) {
		events := []models.SeismicEvent{
			ev("zzz", base, 1, 10),
			ev("aaa", base, 1, 10),
		}
		s := Summarize(events)
		require.NotNil(t, s.Latest)
		assert.Equal(t, "zzz", s.Latest.ID)

		// Same result with the input reversed.
		s = Summarize([]models.SeismicEvent{events[1], events[0]})
		assert.Equal(t, "zzz", s.Latest.ID)
	})
}

func TestMonthlyHistogram_FixedTwelveBuckets(t *testing.T) {
	events := []models.SeismicEvent{
		ev("a", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 2, 150),
		ev("b", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), 4, 30),
		ev("c", time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), 3, 170),
	}

	h := MonthlyHistogram(events)
	require.Len(t, h, 12)

	jan := h[0]
	assert.Equal(t, time.January, jan.Month)
	assert.Equal(t, 2, jan.Count)
	assert.Equal(t, 1, jan.NestCount)
	assert.InDelta(t, 3.0, jan.MeanMagnitude, 1e-9)

	jul := h[6]
	assert.Equal(t, 1, jul.Count) // cross-year months aggregate
	assert.Equal(t, 1, jul.NestCount)

	for _, b := range []MonthBucket{h[1], h[11]} {
		assert.Zero(t, b.Count) // empty months present, not omitted
	}
}

func TestMagnitudeHistogram_EveryEventInExactlyOneBand(t *testing.T) {
	now := time.Now()
	mags := []float64{0, 1.9, 2.0, 2.99, 3.0, 4.0, 4.999, 5.0, 8.8}
	events := make([]models.SeismicEvent, 0, len(mags))
	for i, m := range mags {
		events = append(events, ev(string(rune('a'+i)), now, m, 100))
	}

	h := MagnitudeHistogram(events, DefaultMagnitudeBands())
	require.Len(t, h, 5)

	total := 0
	for _, b := range h {
		total += b.Count
	}
	assert.Equal(t, len(events), total)

	assert.Equal(t, 2, h[0].Count) // [0,2)
	assert.Equal(t, 2, h[1].Count) // [2,3)
	assert.Equal(t, 2, h[2].Count) // [3,4)
	assert.Equal(t, 1, h[3].Count) // [4,5)
	assert.Equal(t, 2, h[4].Count) // [5,inf)
}

func TestDepthHistogram(t *testing.T) {
	now := time.Now()
	events := []models.SeismicEvent{
		ev("a", now, 2, 140.0),
		ev("b", now, 2, 144.9),
		ev("c", now, 2, 145.0),
		ev("d", now, 2, 179.9),
		ev("e", now, 2, 30),    // below range, excluded
		ev("f", now, 2, 180),   // on the range end, counted in the last bin
		ev("g", now, 2, 180.1), // past the range, excluded
	}

	bins := DepthHistogram(events, 5, 140, 180)
	require.Len(t, bins, 8)
	assert.Equal(t, 140.0, bins[0].StartKm)
	assert.Equal(t, 2, bins[0].Count)
	assert.Equal(t, 1, bins[1].Count)
	assert.Equal(t, 2, bins[7].Count)

	counted := 0
	for _, b := range bins {
		counted += b.Count
	}
	assert.Equal(t, 5, counted)

	assert.Nil(t, DepthHistogram(events, 0, 140, 180))
	assert.Nil(t, DepthHistogram(events, 5, 180, 140))
}

func TestDepthHistogram_NestBandMatchesClassifier(t *testing.T) {
	// Every depth the classifier puts in the nest band must land in the
	// default nest-band histogram, including the closed 180.0 upper edge.
	now := time.Now()
	for _, depth := range []float64{140.0, 160.0, 179.999, 180.0} {
		e := ev("n", now, 3, depth)
		require.Equal(t, models.RegimeNidoSismico, models.ClassifyDepth(depth))

		bins := DepthHistogram([]models.SeismicEvent{e}, 5, models.DepthIntermedioMax, models.DepthNidoMax)
		counted := 0
		for _, b := range bins {
			counted += b.Count
		}
		assert.Equal(t, 1, counted, "depth %v must be counted", depth)
	}
}

func TestTrend(t *testing.T) {
	now := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	mk := func(recent, prior int) []models.SeismicEvent {
		var events []models.SeismicEvent
		for i := 0; i < recent; i++ {
			events = append(events, ev("r", now.Add(-time.Duration(i+1)*time.Hour), 2, 150))
		}
		priorStart := now.Add(-91 * 24 * time.Hour)
		for i := 0; i < prior; i++ {
			events = append(events, ev("p", priorStart.Add(-time.Duration(i)*time.Hour), 2, 150))
		}
		return events
	}

	// 12 recent vs 10 prior: 12 is not > 12.0, so stable.
	assert.Equal(t, TrendStable, Trend(mk(12, 10), now, 90))
	assert.Equal(t, TrendIncreasing, Trend(mk(13, 10), now, 90))
	assert.Equal(t, TrendDecreasing, Trend(mk(7, 10), now, 90))
	// Empty prior window never divides by zero.
	assert.Equal(t, TrendStable, Trend(mk(5, 0), now, 90))
	assert.Equal(t, TrendStable, Trend(nil, now, 90))
}

func TestCompareNest(t *testing.T) {
	now := time.Now()
	events := []models.SeismicEvent{
		ev("a", now, 2, 150),
		ev("b", now, 4, 160),
		ev("c", now, 6, 10),
	}

	c := CompareNest(events)
	assert.Equal(t, 2, c.Nest.Total)
	assert.InDelta(t, 3.0, c.Nest.MeanMagnitude, 1e-9)
	assert.InDelta(t, 155.0, c.Nest.MeanDepthKm, 1e-9)
	assert.Equal(t, 1, c.Others.Total)
	assert.InDelta(t, 6.0, c.Others.MeanMagnitude, 1e-9)
	assert.InDelta(t, 66.666, c.NestPercent, 0.01)

	empty := CompareNest(nil)
	assert.Zero(t, empty.NestPercent)
}
