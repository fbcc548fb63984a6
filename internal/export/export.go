// Package export renders an event collection in interchange formats.
// Every exporter writes the events it is given, in the order given, so
// filters and sorting applied upstream carry through to the file.
package export

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/siasic/seismic-watch/internal/models"
)

var csvHeader = []string{
	"id",
	"fecha_hora_utc",
	"latitud",
	"longitud",
	"profundidad_km",
	"magnitud",
	"tipo_magnitud",
	"ubicacion",
	"municipio",
	"departamento",
	"clasificacion",
	"fuente",
}

// WriteCSV writes the collection as UTF-8 CSV with a header row.
func WriteCSV(w io.Writer, events []models.SeismicEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i := range events {
		e := &events[i]
		row := []string{
			e.ID,
			e.OccurredAt.UTC().Format(time.RFC3339),
			strconv.FormatFloat(e.Latitude, 'f', -1, 64),
			strconv.FormatFloat(e.Longitude, 'f', -1, 64),
			strconv.FormatFloat(e.DepthKm, 'f', -1, 64),
			strconv.FormatFloat(e.Magnitude, 'f', -1, 64),
			e.MagType,
			e.Place,
			e.Municipality,
			e.Department,
			string(e.Regime),
			string(e.Source),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	CRS      geoJSONCRS       `json:"crs"`
	Features []geoJSONFeature `json:"features"`
}

type geoJSONCRS struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

type geoJSONFeature struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Geometry   geoJSONGeometry `json:"geometry"`
	Properties geoJSONProps    `json:"properties"`
}

type geoJSONGeometry struct {
	Type        string     `json:"type"`
	Coordinates [3]float64 `json:"coordinates"`
}

type geoJSONProps struct {
	Time         string             `json:"time"`
	Magnitude    float64            `json:"mag"`
	MagType      string             `json:"magType,omitempty"`
	DepthKm      float64            `json:"depth_km"`
	Place        string             `json:"place"`
	Municipality string             `json:"municipio,omitempty"`
	Department   string             `json:"departamento,omitempty"`
	Regime       models.DepthRegime `json:"clasificacion"`
	InSantander  bool               `json:"santander"`
	Source       models.SourceTag   `json:"fuente"`
}

// WriteGeoJSON writes a FeatureCollection with an explicit CRS84 name so
// GIS tools load coordinates in longitude, latitude order without guessing.
func WriteGeoJSON(w io.Writer, events []models.SeismicEvent) error {
	fc := geoJSONCollection{
		Type: "FeatureCollection",
		CRS: geoJSONCRS{
			Type:       "name",
			Properties: map[string]string{"name": "urn:ogc:def:crs:OGC:1.3:CRS84"},
		},
		Features: make([]geoJSONFeature, 0, len(events)),
	}
	for i := range events {
		e := &events[i]
		fc.Features = append(fc.Features, geoJSONFeature{
			Type: "Feature",
			ID:   e.ID,
			Geometry: geoJSONGeometry{
				Type:        "Point",
				Coordinates: [3]float64{e.Longitude, e.Latitude, e.DepthKm},
			},
			Properties: geoJSONProps{
				Time:         e.OccurredAt.UTC().Format(time.RFC3339),
				Magnitude:    e.Magnitude,
				MagType:      e.MagType,
				DepthKm:      e.DepthKm,
				Place:        e.Place,
				Municipality: e.Municipality,
				Department:   e.Department,
				Regime:       e.Regime,
				InSantander:  e.InSantander,
				Source:       e.Source,
			},
		})
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("encoding geojson: %w", err)
	}
	return nil
}

type kml struct {
	XMLName  xml.Name    `xml:"kml"`
	XMLNS    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name       string         `xml:"name"`
	Styles     []kmlStyle     `xml:"Style"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlStyle struct {
	ID        string       `xml:"id,attr"`
	IconStyle kmlIconStyle `xml:"IconStyle"`
}

type kmlIconStyle struct {
	Color string  `xml:"color"`
	Scale float64 `xml:"scale"`
}

type kmlPlacemark struct {
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	StyleURL    string   `xml:"styleUrl"`
	TimeStamp   kmlTime  `xml:"TimeStamp"`
	Point       kmlPoint `xml:"Point"`
}

type kmlTime struct {
	When string `xml:"when"`
}

type kmlPoint struct {
	AltitudeMode string `xml:"altitudeMode"`
	Coordinates  string `xml:"coordinates"`
}

// KML colors are aabbggrr.
var regimeStyles = map[models.DepthRegime]kmlStyle{
	models.RegimeSuperficial: {ID: "superficial", IconStyle: kmlIconStyle{Color: "ff00d7ff", Scale: 1.0}},
	models.RegimeIntermedio:  {ID: "intermedio", IconStyle: kmlIconStyle{Color: "ff00a5ff", Scale: 1.0}},
	models.RegimeNidoSismico: {ID: "nido", IconStyle: kmlIconStyle{Color: "ff0000ff", Scale: 1.2}},
	models.RegimeProfundo:    {ID: "profundo", IconStyle: kmlIconStyle{Color: "ff800080", Scale: 1.0}},
}

func styleID(r models.DepthRegime) string {
	if s, ok := regimeStyles[r]; ok {
		return s.ID
	}
	return "superficial"
}

// WriteKML writes placemarks styled by depth classification. Depth is
// expressed as negative altitude in meters so viewers place hypocenters
// below the surface.
func WriteKML(w io.Writer, events []models.SeismicEvent) error {
	doc := kmlDocument{
		Name: "Sismos",
		Styles: []kmlStyle{
			regimeStyles[models.RegimeSuperficial],
			regimeStyles[models.RegimeIntermedio],
			regimeStyles[models.RegimeNidoSismico],
			regimeStyles[models.RegimeProfundo],
		},
		Placemarks: make([]kmlPlacemark, 0, len(events)),
	}
	for i := range events {
		e := &events[i]
		doc.Placemarks = append(doc.Placemarks, kmlPlacemark{
			Name:        fmt.Sprintf("M%.1f %s", e.Magnitude, e.Place),
			Description: fmt.Sprintf("Profundidad: %.1f km · %s", e.DepthKm, e.Regime),
			StyleURL:    "#" + styleID(e.Regime),
			TimeStamp:   kmlTime{When: e.OccurredAt.UTC().Format(time.RFC3339)},
			Point: kmlPoint{
				AltitudeMode: "absolute",
				Coordinates: fmt.Sprintf("%s,%s,%s",
					strconv.FormatFloat(e.Longitude, 'f', -1, 64),
					strconv.FormatFloat(e.Latitude, 'f', -1, 64),
					strconv.FormatFloat(-e.DepthKm*1000, 'f', 0, 64)),
			},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing kml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	out := kml{XMLNS: "http://www.opengis.net/kml/2.2", Document: doc}
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding kml: %w", err)
	}
	return enc.Close()
}
