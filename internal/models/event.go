package models

import "time"

// DepthRegime classifies an event by hypocenter depth. The four regimes
// partition [0, +inf) with no gap or overlap.
type DepthRegime string

const (
	RegimeSuperficial DepthRegime = "Superficial"
	RegimeIntermedio  DepthRegime = "Intermedio"
	RegimeNidoSismico DepthRegime = "Nido Sísmico"
	RegimeProfundo    DepthRegime = "Profundo"
)

// Depth boundaries in km. The Nido Sísmico band is closed on both ends
// (180.0 belongs to the nest); this asymmetry with the other bands matches
// the published definition of the Bucaramanga nest and is intentional.
const (
	DepthSuperficialMax = 70.0
	DepthIntermedioMax  = 140.0
	DepthNidoMax        = 180.0
)

// ClassifyDepth maps a depth in km to its regime. Total over all inputs;
// negative depths are treated as surface events.
func ClassifyDepth(depthKm float64) DepthRegime {
	switch {
	case depthKm < DepthSuperficialMax:
		return RegimeSuperficial
	case depthKm < DepthIntermedioMax:
		return RegimeIntermedio
	case depthKm <= DepthNidoMax:
		return RegimeNidoSismico
	default:
		return RegimeProfundo
	}
}

// ParseDepthRegime converts a user-supplied string into a DepthRegime.
// Returns false for anything that is not one of the four regimes.
func ParseDepthRegime(s string) (DepthRegime, bool) {
	switch DepthRegime(s) {
	case RegimeSuperficial, RegimeIntermedio, RegimeNidoSismico, RegimeProfundo:
		return DepthRegime(s), true
	}
	return "", false
}

// SourceTag records which ingestion path produced an event.
type SourceTag string

const (
	SourceFeed    SourceTag = "usgs"
	SourceCatalog SourceTag = "catalog"
)

// SeismicEvent is the canonical event shape. Instances are value objects:
// a refresh builds a brand-new slice, never mutates events in place.
type SeismicEvent struct {
	ID                 string      `json:"id"`
	OccurredAt         time.Time   `json:"occurred_at"`
	Latitude           float64     `json:"latitude"`
	Longitude          float64     `json:"longitude"`
	DepthKm            float64     `json:"depth_km"`
	DistanceColombiaKm float64     `json:"distance_colombia_km"`
	Magnitude          float64     `json:"magnitude"`
	MagType            string      `json:"mag_type,omitempty"`
	Place              string      `json:"place"`
	Municipality       string      `json:"municipality,omitempty"`
	Department         string      `json:"department,omitempty"`
	Regime             DepthRegime `json:"regime"`
	InSantander        bool        `json:"in_santander"`
	Tsunami            bool        `json:"tsunami,omitempty"`
	DetailURL          string      `json:"detail_url,omitempty"`
	Source             SourceTag   `json:"source"`
}

// InNest reports whether the event belongs to the Nido Sísmico depth band.
func (e *SeismicEvent) InNest() bool {
	return e.Regime == RegimeNidoSismico
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (e *SeismicEvent) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
	}
}

// MoreRecentThan orders events by occurrence time, breaking exact ties by
// ID so that "most recent" is deterministic for equal timestamps.
func (e *SeismicEvent) MoreRecentThan(other *SeismicEvent) bool {
	if !e.OccurredAt.Equal(other.OccurredAt) {
		return e.OccurredAt.After(other.OccurredAt)
	}
	return e.ID > other.ID
}
