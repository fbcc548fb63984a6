package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/siasic/seismic-watch/internal/geo"
	"github.com/siasic/seismic-watch/internal/models"
)

// Catalog column headers as published in the regional export
// (sismos_2024 format). Header matching is case-insensitive.
var catalogColumns = []string{"FechaHora", "Lat", "Lon", "ProfKm", "Mag", "TipoMag", "Ubicacion"}

// LoadCatalog reads the static regional dataset from a CSV file. Rows take
// the same validation path as live feed records: malformed rows are
// skipped and counted, never fatal.
func LoadCatalog(path string) ([]models.SeismicEvent, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return readCatalog(f)
}

func readCatalog(r io.Reader) ([]models.SeismicEvent, Report, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // trailing quality columns vary by export

	header, err := cr.Read()
	if err != nil {
		return nil, Report{}, fmt.Errorf("reading catalog header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, Report{}, err
	}

	var events []models.SeismicEvent
	var report Report
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A structurally broken row is a row-level failure, not a
			// batch-level one.
			report.Skipped++
			continue
		}
		row++
		e, normErr := normalizeCatalogRow(rec, cols, row)
		if normErr != nil {
			slog.Debug("skipping catalog row", "row", row, "error", normErr)
			report.Skipped++
			continue
		}
		events = append(events, e)
	}
	return events, report, nil
}

type columnIndex map[string]int

func mapColumns(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range catalogColumns {
		if _, ok := idx[strings.ToLower(required)]; !ok {
			return nil, fmt.Errorf("catalog missing column %q", required)
		}
	}
	return idx, nil
}

func (c columnIndex) get(rec []string, name string) string {
	i, ok := c[strings.ToLower(name)]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// catalogTimeLayouts covers the timestamp shapes seen in regional exports.
// All are parsed as UTC; the catalog carries no zone information.
var catalogTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

func normalizeCatalogRow(rec []string, cols columnIndex, row int) (models.SeismicEvent, error) {
	id := fmt.Sprintf("catalog_%d", row)

	at, err := parseCatalogTime(cols.get(rec, "FechaHora"))
	if err != nil {
		return models.SeismicEvent{}, &MalformedRecordError{RecordID: id, Reason: err.Error()}
	}
	lat, err := strconv.ParseFloat(cols.get(rec, "Lat"), 64)
	if err != nil {
		return models.SeismicEvent{}, &MalformedRecordError{RecordID: id, Reason: "unparseable latitude"}
	}
	lon, err := strconv.ParseFloat(cols.get(rec, "Lon"), 64)
	if err != nil {
		return models.SeismicEvent{}, &MalformedRecordError{RecordID: id, Reason: "unparseable longitude"}
	}
	if lat < -90 || lat > 90 {
		return models.SeismicEvent{}, &MalformedRecordError{RecordID: id, Reason: "latitude out of range"}
	}
	if lon < -180 || lon > 180 {
		return models.SeismicEvent{}, &MalformedRecordError{RecordID: id, Reason: "longitude out of range"}
	}
	depth, err := strconv.ParseFloat(cols.get(rec, "ProfKm"), 64)
	if err != nil {
		return models.SeismicEvent{}, &MalformedRecordError{RecordID: id, Reason: "unparseable depth"}
	}
	if depth < 0 {
		depth = 0
	}
	mag, err := strconv.ParseFloat(cols.get(rec, "Mag"), 64)
	if err != nil {
		mag = 0 // magnitude occasionally blank in the export
	}

	place := cols.get(rec, "Ubicacion")
	if place == "" {
		place = placeUnknown
	}
	municipality, department := SplitLocation(place)
	coords := models.Coordinates{Latitude: lat, Longitude: lon}

	return models.SeismicEvent{
		ID:                 id,
		OccurredAt:         at,
		Latitude:           lat,
		Longitude:          lon,
		DepthKm:            depth,
		DistanceColombiaKm: geo.DistanceKm(coords, geo.ColombiaCenter),
		Magnitude:          mag,
		MagType:            cols.get(rec, "TipoMag"),
		Place:              place,
		Municipality:       municipality,
		Department:         department,
		Regime:             models.ClassifyDepth(depth),
		InSantander:        inSantander(department, place),
		Source:             models.SourceCatalog,
	}, nil
}

func parseCatalogTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, layout := range catalogTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
