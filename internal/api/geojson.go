package api

import (
	"github.com/siasic/seismic-watch/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(events []models.SeismicEvent) FeatureCollection {
	features := make([]Feature, 0, len(events))

	for _, e := range events {
		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{e.Longitude, e.Latitude, e.DepthKm},
			},
			Properties: map[string]any{
				"id":                   e.ID,
				"magnitude":            e.Magnitude,
				"depth_km":             e.DepthKm,
				"distance_colombia_km": e.DistanceColombiaKm,
				"regime":               e.Regime,
				"place":                e.Place,
				"municipality":         e.Municipality,
				"department":           e.Department,
				"santander":            e.InSantander,
				"source":               e.Source,
				"occurred_at":          e.OccurredAt,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
