package ingest

import (
	"strings"
	"time"

	"github.com/siasic/seismic-watch/internal/geo"
	"github.com/siasic/seismic-watch/internal/models"
)

const placeUnknown = "Ubicación desconocida"

// Report aggregates per-record outcomes of one normalization batch.
// Individual malformed records never fail the batch; they are skipped and
// counted here.
type Report struct {
	Skipped            int // records dropped as malformed
	MagnitudeDefaulted int // null magnitudes substituted with 0
}

// NormalizeFeatures converts a batch of raw feed features, dropping the
// malformed ones.
func NormalizeFeatures(features []usgsFeature) ([]models.SeismicEvent, Report) {
	events := make([]models.SeismicEvent, 0, len(features))
	var report Report
	for _, f := range features {
		e, defaulted, err := normalizeFeature(f)
		if err != nil {
			report.Skipped++
			continue
		}
		if defaulted {
			report.MagnitudeDefaulted++
		}
		events = append(events, e)
	}
	return events, report
}

// normalizeFeature validates one raw feed record and produces the
// canonical event. The feed geometry is [lon, lat, depth], note the axis
// order reversal against the canonical (lat, lon) model.
func normalizeFeature(f usgsFeature) (models.SeismicEvent, bool, error) {
	if f.ID == "" {
		return models.SeismicEvent{}, false, &MalformedRecordError{Reason: "missing id"}
	}
	if len(f.Geometry.Coordinates) < 3 {
		return models.SeismicEvent{}, false, &MalformedRecordError{RecordID: f.ID, Reason: "geometry needs [lon, lat, depth]"}
	}
	lon := f.Geometry.Coordinates[0]
	lat := f.Geometry.Coordinates[1]
	depth := f.Geometry.Coordinates[2]
	if lat < -90 || lat > 90 {
		return models.SeismicEvent{}, false, &MalformedRecordError{RecordID: f.ID, Reason: "latitude out of range"}
	}
	if lon < -180 || lon > 180 {
		return models.SeismicEvent{}, false, &MalformedRecordError{RecordID: f.ID, Reason: "longitude out of range"}
	}
	if f.Properties.Time <= 0 {
		return models.SeismicEvent{}, false, &MalformedRecordError{RecordID: f.ID, Reason: "missing event time"}
	}
	// USGS reports small negative depths for events resolved above the
	// reference ellipsoid; clamp to the surface.
	if depth < 0 {
		depth = 0
	}

	var mag float64
	defaulted := false
	if f.Properties.Mag != nil {
		mag = *f.Properties.Mag
	} else {
		defaulted = true
	}

	place := f.Properties.Place
	if place == "" {
		place = placeUnknown
	}
	municipality, department := SplitLocation(place)
	coords := models.Coordinates{Latitude: lat, Longitude: lon}

	return models.SeismicEvent{
		ID:                 "usgs_" + f.ID,
		OccurredAt:         time.UnixMilli(f.Properties.Time).UTC(),
		Latitude:           lat,
		Longitude:          lon,
		DepthKm:            depth,
		DistanceColombiaKm: geo.DistanceKm(coords, geo.ColombiaCenter),
		Magnitude:          mag,
		MagType:            f.Properties.MagType,
		Place:              place,
		Municipality:       municipality,
		Department:         department,
		Regime:             models.ClassifyDepth(depth),
		InSantander:        inSantander(department, place),
		Tsunami:            f.Properties.Tsunami == 1,
		DetailURL:          f.Properties.URL,
		Source:             models.SourceFeed,
	}, defaulted, nil
}

// SplitLocation extracts municipality and department from labels shaped
// like "Los Santos - Santander, Colombia". Labels without the " - "
// separator yield no structured parts.
func SplitLocation(place string) (municipality, department string) {
	before, after, found := strings.Cut(place, " - ")
	if !found {
		return "", ""
	}
	municipality = strings.TrimSpace(before)
	department, _, _ = strings.Cut(after, ",")
	return municipality, strings.TrimSpace(department)
}

func inSantander(department, place string) bool {
	if department != "" {
		return strings.Contains(strings.ToLower(department), "santander")
	}
	return strings.Contains(strings.ToLower(place), "santander")
}
