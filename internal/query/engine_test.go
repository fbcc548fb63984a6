package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siasic/seismic-watch/internal/geo"
	"github.com/siasic/seismic-watch/internal/models"
)

func sampleEvents() []models.SeismicEvent {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []models.SeismicEvent{
		{
			ID: "1", OccurredAt: base, Magnitude: 2.1, DepthKm: 152,
			Latitude: 6.8, Longitude: -73.1, Municipality: "Los Santos",
			Department: "Santander", Regime: models.RegimeNidoSismico, InSantander: true,
		},
		{
			ID: "2", OccurredAt: base.Add(time.Hour), Magnitude: 4.5, DepthKm: 30,
			Latitude: 4.7, Longitude: -74.1, Municipality: "Bogotá",
			Department: "Cundinamarca", Regime: models.RegimeSuperficial,
		},
		{
			ID: "3", OccurredAt: base.Add(2 * time.Hour), Magnitude: 3.2, DepthKm: 100,
			Latitude: 35.7, Longitude: 139.7, Place: "near Tokyo",
			Regime: models.RegimeIntermedio,
		},
		{
			ID: "4", OccurredAt: base.Add(3 * time.Hour), Magnitude: 2.1, DepthKm: 165,
			Latitude: 6.9, Longitude: -73.2, Municipality: "Aratoca",
			Department: "Santander", Regime: models.RegimeNidoSismico, InSantander: true,
		},
	}
}

func fptr(v float64) *float64 { return &v }

func TestApply_AllAbsentReturnsInput(t *testing.T) {
	events := sampleEvents()
	got := Apply(events, FilterState{}, SortState{Field: SortByTime})

	require.Len(t, got, len(events))
	seen := map[string]bool{}
	for _, e := range got {
		seen[e.ID] = true
	}
	for _, e := range events {
		assert.True(t, seen[e.ID])
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	events := sampleEvents()
	Apply(events, FilterState{}, SortState{Field: SortByMagnitude, Descending: true})
	assert.Equal(t, "1", events[0].ID)
	assert.Equal(t, "4", events[3].ID)
}

func TestApply_FiltersCompose(t *testing.T) {
	region := geo.RegionColombia
	regime := models.RegimeNidoSismico
	got := Apply(sampleEvents(), FilterState{
		Region:       &region,
		Regime:       &regime,
		MinMagnitude: fptr(2.0),
	}, SortState{Field: SortByTime})

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "4", got[1].ID)
}

func TestApply_DepthAndMagnitudeBounds(t *testing.T) {
	got := Apply(sampleEvents(), FilterState{
		MinDepthKm:   fptr(90),
		MaxDepthKm:   fptr(160),
		MaxMagnitude: fptr(3.5),
	}, SortState{Field: SortByTime})

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}

func TestApply_TimeWindow(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	since := base.Add(30 * time.Minute)
	until := base.Add(150 * time.Minute)
	got := Apply(sampleEvents(), FilterState{Since: &since, Until: &until}, SortState{Field: SortByTime})

	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}

func TestApply_TextSearchCaseInsensitive(t *testing.T) {
	got := Apply(sampleEvents(), FilterState{Search: "SANTAN"}, SortState{Field: SortByTime})
	require.Len(t, got, 2)

	got = Apply(sampleEvents(), FilterState{Search: "bogotá"}, SortState{Field: SortByTime})
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestApply_SantanderFlag(t *testing.T) {
	yes := true
	got := Apply(sampleEvents(), FilterState{InSantander: &yes}, SortState{Field: SortByTime})
	require.Len(t, got, 2)

	no := false
	got = Apply(sampleEvents(), FilterState{InSantander: &no}, SortState{Field: SortByTime})
	require.Len(t, got, 2)
}

func TestSort_MagnitudeStable(t *testing.T) {
	got := Apply(sampleEvents(), FilterState{}, SortState{Field: SortByMagnitude})
	// Events 1 and 4 share magnitude 2.1; input order must be preserved.
	require.Len(t, got, 4)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "4", got[1].ID)
	assert.Equal(t, "3", got[2].ID)
	assert.Equal(t, "2", got[3].ID)
}

func TestSort_Idempotent(t *testing.T) {
	s := SortState{Field: SortByDepth, Descending: true}
	once := Apply(sampleEvents(), FilterState{}, s)
	twice := Apply(once, FilterState{}, s)
	assert.Equal(t, once, twice)
}

func TestSort_LocationEmptyLast(t *testing.T) {
	events := sampleEvents()
	events[2].Place = "" // event 3 now has no location label at all

	asc := Apply(events, FilterState{}, SortState{Field: SortByLocation})
	require.Len(t, asc, 4)
	assert.Equal(t, "3", asc[3].ID)

	desc := Apply(events, FilterState{}, SortState{Field: SortByLocation, Descending: true})
	assert.Equal(t, "3", desc[3].ID) // still last when descending
}

func TestSort_LocationSpanishCollation(t *testing.T) {
	events := []models.SeismicEvent{
		{ID: "1", Municipality: "Zapatoca"},
		{ID: "2", Municipality: "aratoca"},
		{ID: "3", Municipality: "Barichara"},
	}
	got := Apply(events, FilterState{}, SortState{Field: SortByLocation})
	assert.Equal(t, "2", got[0].ID) // case-insensitive ordering
	assert.Equal(t, "3", got[1].ID)
	assert.Equal(t, "1", got[2].ID)
}

func TestSort_TimeDescending(t *testing.T) {
	got := Apply(sampleEvents(), FilterState{}, SortState{Field: SortByTime, Descending: true})
	assert.Equal(t, "4", got[0].ID)
	assert.Equal(t, "1", got[3].ID)
}

func TestParseSortField(t *testing.T) {
	f, ok := ParseSortField("depth")
	assert.True(t, ok)
	assert.Equal(t, SortByDepth, f)

	f, ok = ParseSortField("bogus")
	assert.False(t, ok)
	assert.Equal(t, SortByTime, f)
}
