package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/siasic/seismic-watch/internal/geo"
	"github.com/siasic/seismic-watch/internal/models"
)

// MagnitudeFloor selects which USGS summary feed variant to request.
type MagnitudeFloor string

const (
	FloorAll         MagnitudeFloor = "all"
	FloorM1          MagnitudeFloor = "1.0"
	FloorM25         MagnitudeFloor = "2.5"
	FloorM45         MagnitudeFloor = "4.5"
	FloorSignificant MagnitudeFloor = "significant"
)

// TimeWindow selects the feed's covered period.
type TimeWindow string

const (
	WindowHour  TimeWindow = "hour"
	WindowDay   TimeWindow = "day"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
)

// Selector is the fetch parameterization: which feed variant to pull and
// which region box to refine with client-side. The feed itself has no
// region parameter, so regional narrowing is entirely our refinement.
type Selector struct {
	Floor  MagnitudeFloor
	Window TimeWindow
	Region geo.Region
}

func ParseMagnitudeFloor(s string) (MagnitudeFloor, bool) {
	switch MagnitudeFloor(s) {
	case FloorAll, FloorM1, FloorM25, FloorM45, FloorSignificant:
		return MagnitudeFloor(s), true
	}
	return FloorAll, false
}

func ParseTimeWindow(s string) (TimeWindow, bool) {
	switch TimeWindow(s) {
	case WindowHour, WindowDay, WindowWeek, WindowMonth:
		return TimeWindow(s), true
	}
	return WindowDay, false
}

type usgsResponse struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string         `json:"id"`
	Properties usgsProperties `json:"properties"`
	Geometry   usgsGeometry   `json:"geometry"`
}

type usgsProperties struct {
	Mag     *float64 `json:"mag"` // null for unreviewed events
	Place   string   `json:"place"`
	Time    int64    `json:"time"` // epoch millis
	URL     string   `json:"url"`
	MagType string   `json:"magType"`
	Tsunami int      `json:"tsunami"` // 0 or 1
}

type usgsGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}

// FeedClient fetches and normalizes the USGS summary feed.
type FeedClient struct {
	baseURL string
	client  *http.Client
}

// NewFeedClient builds a client against baseURL, e.g.
// "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary".
func NewFeedClient(baseURL string, timeout time.Duration) *FeedClient {
	return &FeedClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// FeedURL constructs the variant URL for a selector, mirroring the USGS
// naming scheme: <floor>_<window>.geojson.
func (c *FeedClient) FeedURL(sel Selector) string {
	return fmt.Sprintf("%s/%s_%s.geojson", c.baseURL, sel.Floor, sel.Window)
}

// Fetch pulls the feed variant for sel and normalizes every record.
// Transport, HTTP status, and decode failures surface as *FeedError;
// per-record problems are absorbed into the report.
func (c *FeedClient) Fetch(ctx context.Context, sel Selector) ([]models.SeismicEvent, Report, error) {
	url := c.FeedURL(sel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Report{}, &FeedError{URL: url, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, Report{}, &FeedError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Report{}, &FeedError{URL: url, Err: fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)}
	}

	var data usgsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, Report{}, &FeedError{URL: url, Err: fmt.Errorf("decoding response body: %w", err)}
	}

	events, report := NormalizeFeatures(data.Features)
	return events, report, nil
}
