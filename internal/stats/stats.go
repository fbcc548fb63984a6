// Package stats computes aggregate views over event collections. Every
// function is pure: it reads its input slice and returns fresh values.
package stats

import (
	"math"
	"time"

	"github.com/siasic/seismic-watch/internal/models"
)

// Summary holds the headline numbers for a collection.
type Summary struct {
	Total          int                  `json:"total"`
	MeanMagnitude  float64              `json:"mean_magnitude"`
	MaxMagnitude   float64              `json:"max_magnitude"`
	MeanDepthKm    float64              `json:"mean_depth_km"`
	SantanderCount int                  `json:"santander_count"`
	NestCount      int                  `json:"nest_count"`
	Latest         *models.SeismicEvent `json:"latest,omitempty"`
}

// Summarize computes summary statistics. The most recent event is selected
// by occurrence time with exact ties broken by ID, so the result is
// deterministic regardless of input order.
func Summarize(events []models.SeismicEvent) Summary {
	s := Summary{Total: len(events)}
	if len(events) == 0 {
		return s
	}

	var sumMag, sumDepth float64
	var latest *models.SeismicEvent
	for i := range events {
		e := &events[i]
		sumMag += e.Magnitude
		sumDepth += e.DepthKm
		if e.Magnitude > s.MaxMagnitude {
			s.MaxMagnitude = e.Magnitude
		}
		if e.InSantander {
			s.SantanderCount++
		}
		if e.InNest() {
			s.NestCount++
		}
		if latest == nil || e.MoreRecentThan(latest) {
			latest = e
		}
	}
	s.MeanMagnitude = sumMag / float64(len(events))
	s.MeanDepthKm = sumDepth / float64(len(events))
	if latest != nil {
		cp := *latest
		s.Latest = &cp
	}
	return s
}

// MonthBucket is one calendar month's totals.
type MonthBucket struct {
	Month         time.Month `json:"month"`
	Label         string     `json:"label"`
	Count         int        `json:"count"`
	NestCount     int        `json:"nest_count"`
	MeanMagnitude float64    `json:"mean_magnitude"`
}

// MonthlyHistogram groups events into the 12 fixed calendar months
// (January..December, across years, not a rolling window). Months with no
// events are reported with zero counts, never omitted.
func MonthlyHistogram(events []models.SeismicEvent) []MonthBucket {
	buckets := make([]MonthBucket, 12)
	sums := make([]float64, 12)
	for m := time.January; m <= time.December; m++ {
		buckets[m-1] = MonthBucket{Month: m, Label: m.String()[:3]}
	}
	for i := range events {
		e := &events[i]
		idx := int(e.OccurredAt.Month()) - 1
		buckets[idx].Count++
		sums[idx] += e.Magnitude
		if e.InNest() {
			buckets[idx].NestCount++
		}
	}
	for i := range buckets {
		if buckets[i].Count > 0 {
			buckets[i].MeanMagnitude = sums[i] / float64(buckets[i].Count)
		}
	}
	return buckets
}

// MagnitudeBand is a half-open magnitude interval [Min, Max). A Max of
// +Inf makes the band open-ended.
type MagnitudeBand struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Label string  `json:"label"`
}

// DefaultMagnitudeBands mirrors the dashboard's magnitude breakdown.
func DefaultMagnitudeBands() []MagnitudeBand {
	return []MagnitudeBand{
		{Min: 0, Max: 2, Label: "< 2.0"},
		{Min: 2, Max: 3, Label: "2.0-3.0"},
		{Min: 3, Max: 4, Label: "3.0-4.0"},
		{Min: 4, Max: 5, Label: "4.0-5.0"},
		{Min: 5, Max: math.Inf(1), Label: "> 5.0"},
	}
}

// BandCount pairs a band with the number of events falling in it.
type BandCount struct {
	MagnitudeBand
	Count int `json:"count"`
}

// MagnitudeHistogram counts events per band. Bands are half-open, so with
// contiguous bands every event falls in exactly one.
func MagnitudeHistogram(events []models.SeismicEvent, bands []MagnitudeBand) []BandCount {
	out := make([]BandCount, len(bands))
	for i, b := range bands {
		out[i] = BandCount{MagnitudeBand: b}
	}
	for i := range events {
		m := events[i].Magnitude
		for j := range out {
			if m >= out[j].Min && m < out[j].Max {
				out[j].Count++
				break
			}
		}
	}
	return out
}

// DepthBin is one fixed-width depth bin [StartKm, StartKm+width).
type DepthBin struct {
	StartKm float64 `json:"start_km"`
	Count   int     `json:"count"`
}

// DepthHistogram bins events by depth across [rangeStart, rangeEnd] in
// binWidthKm steps. Both range edges are inclusive: the classifier puts a
// 180.0 km event inside the nest band, so the default nest-band histogram
// must count it too. Events outside the range are excluded here (they are
// still counted by the other aggregates). A non-positive width or empty
// range yields no bins.
func DepthHistogram(events []models.SeismicEvent, binWidthKm, rangeStartKm, rangeEndKm float64) []DepthBin {
	if binWidthKm <= 0 || rangeEndKm <= rangeStartKm {
		return nil
	}
	n := int(math.Ceil((rangeEndKm - rangeStartKm) / binWidthKm))
	bins := make([]DepthBin, n)
	for i := range bins {
		bins[i].StartKm = rangeStartKm + float64(i)*binWidthKm
	}
	for i := range events {
		d := events[i].DepthKm
		if d < rangeStartKm || d > rangeEndKm {
			continue
		}
		idx := int((d - rangeStartKm) / binWidthKm)
		if idx >= n {
			// d sits exactly on the range end; it belongs to the last bin.
			idx = n - 1
		}
		bins[idx].Count++
	}
	return bins
}

// TrendSignal is the direction of recent activity relative to the
// preceding period.
type TrendSignal string

const (
	TrendIncreasing TrendSignal = "increasing"
	TrendDecreasing TrendSignal = "decreasing"
	TrendStable     TrendSignal = "stable"
)

// Trend compares the event count in the most recent windowDays against the
// immediately preceding window of equal length. Recent > 1.2x prior is
// increasing, recent < 0.8x prior is decreasing, anything else is stable.
// An empty prior window always reads as stable so a cold start never
// divides by zero or reports a spurious surge.
func Trend(events []models.SeismicEvent, now time.Time, windowDays int) TrendSignal {
	if windowDays <= 0 {
		windowDays = 90
	}
	window := time.Duration(windowDays) * 24 * time.Hour
	recentStart := now.Add(-window)
	priorStart := now.Add(-2 * window)

	var recent, prior int
	for i := range events {
		at := events[i].OccurredAt
		switch {
		case at.After(now):
			// Future-dated records are feed noise; ignore.
		case !at.Before(recentStart):
			recent++
		case !at.Before(priorStart):
			prior++
		}
	}

	if prior == 0 {
		return TrendStable
	}
	switch {
	case float64(recent) > 1.2*float64(prior):
		return TrendIncreasing
	case float64(recent) < 0.8*float64(prior):
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// GroupStats is one side of the nest-versus-rest comparison.
type GroupStats struct {
	Total         int     `json:"total"`
	MeanMagnitude float64 `json:"mean_magnitude"`
	MeanDepthKm   float64 `json:"mean_depth_km"`
}

// Comparison contrasts nest events against everything else.
type Comparison struct {
	Nest        GroupStats `json:"nest"`
	Others      GroupStats `json:"others"`
	NestPercent float64    `json:"nest_percent"`
}

// CompareNest splits the collection into nest and non-nest groups and
// reports per-group totals and means.
func CompareNest(events []models.SeismicEvent) Comparison {
	var c Comparison
	var nestMag, nestDepth, otherMag, otherDepth float64
	for i := range events {
		e := &events[i]
		if e.InNest() {
			c.Nest.Total++
			nestMag += e.Magnitude
			nestDepth += e.DepthKm
		} else {
			c.Others.Total++
			otherMag += e.Magnitude
			otherDepth += e.DepthKm
		}
	}
	if c.Nest.Total > 0 {
		c.Nest.MeanMagnitude = nestMag / float64(c.Nest.Total)
		c.Nest.MeanDepthKm = nestDepth / float64(c.Nest.Total)
	}
	if c.Others.Total > 0 {
		c.Others.MeanMagnitude = otherMag / float64(c.Others.Total)
		c.Others.MeanDepthKm = otherDepth / float64(c.Others.Total)
	}
	if total := len(events); total > 0 {
		c.NestPercent = float64(c.Nest.Total) / float64(total) * 100
	}
	return c
}
