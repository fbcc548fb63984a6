package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/siasic/seismic-watch/internal/export"
	"github.com/siasic/seismic-watch/internal/geo"
	"github.com/siasic/seismic-watch/internal/ingest"
	"github.com/siasic/seismic-watch/internal/models"
	"github.com/siasic/seismic-watch/internal/query"
	"github.com/siasic/seismic-watch/internal/repository"
	"github.com/siasic/seismic-watch/internal/stats"
	"github.com/siasic/seismic-watch/internal/view"
)

type Handler struct {
	poller      *ingest.Poller
	repo        repository.EventRepository
	selection   *view.Selection
	broadcaster *ingest.Broadcaster
}

func NewHandler(poller *ingest.Poller, repo repository.EventRepository, selection *view.Selection, broadcaster *ingest.Broadcaster) *Handler {
	return &Handler{
		poller:      poller,
		repo:        repo,
		selection:   selection,
		broadcaster: broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	r.GET("/api/events", h.getEvents)
	r.GET("/api/events/geojson", h.getEventsGeoJSON)
	r.GET("/api/events/stream", h.streamEvents)
	r.GET("/api/events/:id", h.getEvent)

	r.GET("/api/stats/summary", h.getSummary)
	r.GET("/api/stats/monthly", h.getMonthly)
	r.GET("/api/stats/magnitude", h.getMagnitudeHistogram)
	r.GET("/api/stats/depth", h.getDepthHistogram)
	r.GET("/api/stats/trend", h.getTrend)
	r.GET("/api/stats/nest", h.getNestComparison)

	r.GET("/api/export/csv", h.exportCSV)
	r.GET("/api/export/geojson", h.exportGeoJSON)
	r.GET("/api/export/kml", h.exportKML)

	r.GET("/api/status", h.getStatus)
	r.POST("/api/refresh", h.refresh)
	r.PUT("/api/selector", h.setSelector)
	r.PUT("/api/autorefresh", h.setAutoRefresh)

	r.GET("/api/selection", h.getSelection)
	r.PUT("/api/selection/:id", h.setSelection)
	r.DELETE("/api/selection", h.clearSelection)

	r.GET("/api/catalog", h.getCatalog)
	r.GET("/api/catalog/:id", h.getCatalogEvent)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// current returns the events from the latest snapshot after applying the
// request's filter and sort parameters. A failed poll keeps serving the
// previous snapshot with the error surfaced alongside.
func (h *Handler) current(c *gin.Context) ([]models.SeismicEvent, *ingest.Snapshot, error) {
	snap, err := h.poller.Snapshot()
	if snap == nil {
		return nil, nil, err
	}
	filtered := query.Apply(snap.Events, parseFilter(c), parseSort(c))
	return filtered, snap, err
}

func (h *Handler) getEvents(c *gin.Context) {
	events, snap, err := h.current(c)

	resp := gin.H{
		"events": events,
		"total":  len(events),
	}
	if snap != nil {
		resp["fetched_at"] = snap.FetchedAt
		resp["skipped"] = snap.Skipped
	}
	if err != nil {
		resp["stale_error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getEventsGeoJSON(c *gin.Context) {
	events, _, _ := h.current(c)
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(events))
}

func (h *Handler) getEvent(c *gin.Context) {
	id := c.Param("id")
	snap, _ := h.poller.Snapshot()
	if snap != nil {
		for i := range snap.Events {
			if snap.Events[i].ID == id {
				c.JSON(http.StatusOK, snap.Events[i])
				return
			}
		}
	}
	// Fall back to the catalog for events no longer in the feed window.
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch event"})
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) getSummary(c *gin.Context) {
	events, _, _ := h.current(c)
	c.JSON(http.StatusOK, stats.Summarize(events))
}

func (h *Handler) getMonthly(c *gin.Context) {
	events, _, _ := h.current(c)
	c.JSON(http.StatusOK, gin.H{"months": stats.MonthlyHistogram(events)})
}

func (h *Handler) getMagnitudeHistogram(c *gin.Context) {
	events, _, _ := h.current(c)
	c.JSON(http.StatusOK, gin.H{"bands": stats.MagnitudeHistogram(events, stats.DefaultMagnitudeBands())})
}

func (h *Handler) getDepthHistogram(c *gin.Context) {
	events, _, _ := h.current(c)

	bin := queryFloat(c, "bin", 5)
	start := queryFloat(c, "start", models.DepthIntermedioMax)
	end := queryFloat(c, "end", models.DepthNidoMax)

	bins := stats.DepthHistogram(events, bin, start, end)
	if bins == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid histogram range"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bins": bins})
}

func (h *Handler) getTrend(c *gin.Context) {
	events, _, _ := h.current(c)

	window := 90
	if w := c.Query("window_days"); w != "" {
		if n, err := strconv.Atoi(w); err == nil && n > 0 {
			window = n
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"trend":       stats.Trend(events, time.Now().UTC(), window),
		"window_days": window,
	})
}

func (h *Handler) getNestComparison(c *gin.Context) {
	events, _, _ := h.current(c)
	c.JSON(http.StatusOK, stats.CompareNest(events))
}

func (h *Handler) exportCSV(c *gin.Context) {
	events, _, _ := h.current(c)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="sismos.csv"`)
	if err := export.WriteCSV(c.Writer, events); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

func (h *Handler) exportGeoJSON(c *gin.Context) {
	events, _, _ := h.current(c)
	c.Header("Content-Type", "application/geo+json")
	c.Header("Content-Disposition", `attachment; filename="sismos.geojson"`)
	if err := export.WriteGeoJSON(c.Writer, events); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

func (h *Handler) exportKML(c *gin.Context) {
	events, _, _ := h.current(c)
	c.Header("Content-Type", "application/vnd.google-earth.kml+xml")
	c.Header("Content-Disposition", `attachment; filename="sismos.kml"`)
	if err := export.WriteKML(c.Writer, events); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

func (h *Handler) getStatus(c *gin.Context) {
	st := h.poller.Status()
	resp := gin.H{"poller": st}
	if n, err := h.repo.Count(c.Request.Context()); err == nil {
		resp["catalog_count"] = n
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) refresh(c *gin.Context) {
	<-h.poller.Refresh()
	c.JSON(http.StatusOK, h.poller.Status())
}

type selectorRequest struct {
	Floor  string `json:"floor"`
	Window string `json:"window"`
	Region string `json:"region"`
}

func (h *Handler) setSelector(c *gin.Context) {
	var req selectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	floor, ok := ingest.ParseMagnitudeFloor(req.Floor)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid floor: " + req.Floor})
		return
	}
	window, ok := ingest.ParseTimeWindow(req.Window)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window: " + req.Window})
		return
	}
	region, ok := geo.ParseRegion(req.Region)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid region: " + req.Region})
		return
	}

	<-h.poller.SetSelector(ingest.Selector{Floor: floor, Window: window, Region: region})
	c.JSON(http.StatusOK, h.poller.Status())
}

type autoRefreshRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) setAutoRefresh(c *gin.Context) {
	var req autoRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h.poller.SetAutoRefresh(req.Enabled)
	c.JSON(http.StatusOK, gin.H{"auto_refresh": req.Enabled})
}

func (h *Handler) getSelection(c *gin.Context) {
	cur := h.selection.Current()
	resp := gin.H{"selected": cur}
	if cur != nil {
		resp["center"] = cur.Coordinates()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) setSelection(c *gin.Context) {
	id := c.Param("id")

	snap, _ := h.poller.Snapshot()
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	for i := range snap.Events {
		if snap.Events[i].ID == id {
			selected := h.selection.Select(snap.Events[i])
			resp := gin.H{
				"selected": selected,
				"event":    snap.Events[i],
			}
			if selected {
				// The map recenters on the highlighted event.
				resp["center"] = snap.Events[i].Coordinates()
			}
			c.JSON(http.StatusOK, resp)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
}

func (h *Handler) clearSelection(c *gin.Context) {
	h.selection.Clear()
	c.Status(http.StatusNoContent)
}

func (h *Handler) getCatalog(c *gin.Context) {
	filter := repository.Filter{
		Limit: 100,
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 1000 {
			filter.Limit = lim
		}
	}
	if o := c.Query("offset"); o != "" {
		if off, err := strconv.Atoi(o); err == nil && off >= 0 {
			filter.Offset = off
		}
	}
	if s := c.Query("since"); s != "" {
		if t, ok := parseTimeParam(s); ok {
			filter.Since = &t
		}
	}
	if u := c.Query("until"); u != "" {
		if t, ok := parseTimeParam(u); ok {
			filter.Until = &t
		}
	}
	if m := c.Query("min_magnitude"); m != "" {
		if mag, err := strconv.ParseFloat(m, 64); err == nil {
			filter.MinMagnitude = &mag
		}
	}
	if r := c.Query("regime"); r != "" {
		if regime, ok := models.ParseDepthRegime(r); ok {
			filter.Regime = &regime
		}
	}
	if s := c.Query("santander"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			filter.InSantander = &b
		}
	}

	events, err := h.repo.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch catalog"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": len(events)})
}

func (h *Handler) getCatalogEvent(c *gin.Context) {
	e, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch event"})
		return
	}
	c.JSON(http.StatusOK, e)
}

func parseFilter(c *gin.Context) query.FilterState {
	var f query.FilterState

	if s := c.Query("since"); s != "" {
		if t, ok := parseTimeParam(s); ok {
			f.Since = &t
		}
	}
	if u := c.Query("until"); u != "" {
		if t, ok := parseTimeParam(u); ok {
			f.Until = &t
		}
	}
	if r := c.Query("region"); r != "" {
		if region, ok := geo.ParseRegion(r); ok {
			f.Region = &region
		}
	}
	if m := c.Query("min_magnitude"); m != "" {
		if mag, err := strconv.ParseFloat(m, 64); err == nil {
			f.MinMagnitude = &mag
		}
	}
	if m := c.Query("max_magnitude"); m != "" {
		if mag, err := strconv.ParseFloat(m, 64); err == nil {
			f.MaxMagnitude = &mag
		}
	}
	if d := c.Query("min_depth"); d != "" {
		if depth, err := strconv.ParseFloat(d, 64); err == nil {
			f.MinDepthKm = &depth
		}
	}
	if d := c.Query("max_depth"); d != "" {
		if depth, err := strconv.ParseFloat(d, 64); err == nil {
			f.MaxDepthKm = &depth
		}
	}
	if r := c.Query("regime"); r != "" {
		if regime, ok := models.ParseDepthRegime(r); ok {
			f.Regime = &regime
		}
	}
	if s := c.Query("santander"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			f.InSantander = &b
		}
	}
	f.Search = c.Query("search")

	return f
}

func parseSort(c *gin.Context) query.SortState {
	field, _ := query.ParseSortField(c.DefaultQuery("sort", string(query.SortByTime)))
	return query.SortState{
		Field:      field,
		Descending: c.DefaultQuery("order", "desc") == "desc",
	}
}

func parseTimeParam(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func queryFloat(c *gin.Context, key string, fallback float64) float64 {
	if v := c.Query(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
