// Package query filters and orders event collections. FilterState and
// SortState are value records owned by the caller; Apply never retains
// them and never mutates its input slice.
package query

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/siasic/seismic-watch/internal/geo"
	"github.com/siasic/seismic-watch/internal/models"
)

// FilterState is a set of optional predicates combined with logical AND.
// A nil field means "no constraint", not zero.
type FilterState struct {
	Since        *time.Time
	Until        *time.Time
	Region       *geo.Region
	MinMagnitude *float64
	MaxMagnitude *float64
	MinDepthKm   *float64
	MaxDepthKm   *float64
	Regime       *models.DepthRegime
	Search       string
	InSantander  *bool
}

// SortField selects the single active sort key.
type SortField string

const (
	SortByTime      SortField = "time"
	SortByMagnitude SortField = "magnitude"
	SortByDepth     SortField = "depth"
	SortByLocation  SortField = "location"
)

// ParseSortField returns the field for a user-supplied name.
func ParseSortField(s string) (SortField, bool) {
	switch SortField(s) {
	case SortByTime, SortByMagnitude, SortByDepth, SortByLocation:
		return SortField(s), true
	}
	return SortByTime, false
}

// SortState is the active sort key and direction.
type SortState struct {
	Field      SortField
	Descending bool
}

// Apply filters then sorts, returning a fresh collection. The sort is
// stable: events with equal keys keep their relative input order.
func Apply(events []models.SeismicEvent, f FilterState, s SortState) []models.SeismicEvent {
	out := make([]models.SeismicEvent, 0, len(events))
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for i := range events {
		if f.matches(&events[i], search) {
			out = append(out, events[i])
		}
	}
	sortEvents(out, s)
	return out
}

func (f *FilterState) matches(e *models.SeismicEvent, search string) bool {
	if f.Since != nil && e.OccurredAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && e.OccurredAt.After(*f.Until) {
		return false
	}
	if f.Region != nil && !f.Region.Contains(e.Coordinates()) {
		return false
	}
	if f.MinMagnitude != nil && e.Magnitude < *f.MinMagnitude {
		return false
	}
	if f.MaxMagnitude != nil && e.Magnitude > *f.MaxMagnitude {
		return false
	}
	if f.MinDepthKm != nil && e.DepthKm < *f.MinDepthKm {
		return false
	}
	if f.MaxDepthKm != nil && e.DepthKm > *f.MaxDepthKm {
		return false
	}
	if f.Regime != nil && e.Regime != *f.Regime {
		return false
	}
	if f.InSantander != nil && e.InSantander != *f.InSantander {
		return false
	}
	if search != "" {
		if !strings.Contains(strings.ToLower(e.Municipality), search) &&
			!strings.Contains(strings.ToLower(e.Department), search) {
			return false
		}
	}
	return true
}

// locationLabel is the string events sort by under SortByLocation.
func locationLabel(e *models.SeismicEvent) string {
	if e.Municipality != "" {
		return e.Municipality
	}
	return e.Place
}

func sortEvents(events []models.SeismicEvent, s SortState) {
	var coll *collate.Collator
	if s.Field == SortByLocation {
		coll = collate.New(language.Spanish, collate.IgnoreCase)
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := &events[i], &events[j]
		var cmp int
		switch s.Field {
		case SortByMagnitude:
			cmp = compareFloat(a.Magnitude, b.Magnitude)
		case SortByDepth:
			cmp = compareFloat(a.DepthKm, b.DepthKm)
		case SortByLocation:
			la, lb := locationLabel(a), locationLabel(b)
			// Missing labels sort last regardless of direction.
			if (la == "") != (lb == "") {
				return lb == ""
			}
			if la == "" {
				return false
			}
			cmp = coll.CompareString(la, lb)
		default: // SortByTime
			switch {
			case a.OccurredAt.Before(b.OccurredAt):
				cmp = -1
			case a.OccurredAt.After(b.OccurredAt):
				cmp = 1
			}
		}
		if s.Descending {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
