package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"epw-platform/internal/epw"
	"epw-platform/internal/models"
	"epw-platform/internal/services"
	"epw-platform/internal/timeseries"
	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

// FileHandler serves weather files held in the in-memory catalog.
type FileHandler struct {
	base
	catalog *services.Catalog
	stats   *services.StatisticsService
	fetcher *services.Fetcher
}

// NewFileHandler builds the handler. fetcher may be nil, which disables
// POST /api/files/fetch.
func NewFileHandler(
	catalog *services.Catalog,
	stats *services.StatisticsService,
	fetcher *services.Fetcher,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *FileHandler {
	return &FileHandler{
		base:    base{logger: logger, metrics: metricsCollector},
		catalog: catalog,
		stats:   stats,
		fetcher: fetcher,
	}
}

// FileDetail is the full header of a loaded file.
type FileDetail struct {
	*models.Station
	TimeStepMinutes       float64                    `json:"time_step_minutes"`
	LeapYearObserved      bool                       `json:"leap_year_observed"`
	DaylightSavingStart   string                     `json:"daylight_saving_start,omitempty"`
	DaylightSavingEnd     string                     `json:"daylight_saving_end,omitempty"`
	StartDateActualYear   *int                       `json:"start_date_actual_year,omitempty"`
	EndDateActualYear     *int                       `json:"end_date_actual_year,omitempty"`
	TypicalExtremePeriods []epw.TypicalExtremePeriod `json:"typical_extreme_periods"`
	Comments1             string                     `json:"comments_1"`
	Comments2             string                     `json:"comments_2"`
}

// DataPointView is one data record with its present values keyed by name.
type DataPointView struct {
	DateTime string             `json:"datetime"`
	Year     int                `json:"year"`
	Month    int                `json:"month"`
	Day      int                `json:"day"`
	Hour     int                `json:"hour"`
	Minute   int                `json:"minute"`
	Flags    string             `json:"flags"`
	Values   map[string]float64 `json:"values"`
}

// SeriesResponse is a time series rendered as JSON.
type SeriesResponse struct {
	Field   string             `json:"field"`
	Units   string             `json:"units"`
	Start   string             `json:"start"`
	Summary timeseries.Summary `json:"summary"`
	Points  []*timeseries.Row  `json:"points"`
}

// file resolves {id}, answering 400 or 404 itself when it cannot.
func (h *FileHandler) file(w http.ResponseWriter, r *http.Request) (*epw.File, *models.Station, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, r, "invalid file id", http.StatusBadRequest)
		return nil, nil, false
	}
	f, station, ok := h.catalog.Get(id)
	if !ok {
		h.sendError(w, r, fmt.Sprintf("file %s not found", id), http.StatusNotFound)
		return nil, nil, false
	}
	return f, station, true
}

// ListFiles handles GET /api/files
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, h.catalog.Stations(), http.StatusOK)
}

// GetFile handles GET /api/files/{id}
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	f, station, ok := h.file(w, r)
	if !ok {
		return
	}
	detail := FileDetail{
		Station:               station,
		TimeStepMinutes:       f.TimeStep().TotalMinutes(),
		LeapYearObserved:      f.LeapYearObserved(),
		TypicalExtremePeriods: f.TypicalExtremePeriods(),
		Comments1:             f.Comments1(),
		Comments2:             f.Comments2(),
	}
	if d, ok := f.DaylightSavingStartDate(); ok {
		detail.DaylightSavingStart = d.MonthDay()
	}
	if d, ok := f.DaylightSavingEndDate(); ok {
		detail.DaylightSavingEnd = d.MonthDay()
	}
	if y, ok := f.StartDateActualYear(); ok {
		detail.StartDateActualYear = &y
	}
	if y, ok := f.EndDateActualYear(); ok {
		detail.EndDateActualYear = &y
	}
	h.sendJSON(w, detail, http.StatusOK)
}

// DeleteFile handles DELETE /api/files/{id}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, r, "invalid file id", http.StatusBadRequest)
		return
	}
	if !h.catalog.Remove(id) {
		h.sendError(w, r, fmt.Sprintf("file %s not found", id), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type fetchRequest struct {
	URL string `json:"url"`
}

// FetchFile handles POST /api/files/fetch
func (h *FileHandler) FetchFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.fetcher == nil {
		h.sendError(w, r, "fetching is disabled", http.StatusNotImplemented)
		return
	}
	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		h.sendError(w, r, `body must be {"url": "..."}`, http.StatusBadRequest)
		return
	}
	station, err := h.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		h.logger.Error(ctx, "[API_FETCH_ERROR] Failed to fetch weather file", logging.Fields{
			"url": req.URL,
		}, err)
		h.sendError(w, r, err.Error(), http.StatusBadGateway)
		return
	}
	h.sendJSON(w, station, http.StatusCreated)
}

// GetData handles GET /api/files/{id}/data
func (h *FileHandler) GetData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, _, ok := h.file(w, r)
	if !ok {
		return
	}
	data, err := f.Data()
	if err != nil {
		h.logger.Error(ctx, "[API_GET_DATA_ERROR] Failed to read data points", logging.Fields{
			"path": f.Path(),
		}, err)
		h.sendError(w, r, "failed to read data points", http.StatusInternalServerError)
		return
	}

	page, limit, offset := pagination(r)
	views := make([]DataPointView, 0, limit)
	for i := offset; i < len(data) && i < offset+limit; i++ {
		views = append(views, dataPointView(data[i]))
	}
	h.sendJSON(w, paginated(views, len(data), page, limit), http.StatusOK)
}

func dataPointView(p epw.DataPoint) DataPointView {
	v := DataPointView{
		Year:   p.Year(),
		Month:  p.Month(),
		Day:    p.Day(),
		Hour:   p.Hour(),
		Minute: p.Minute(),
		Flags:  p.DataSourceAndUncertaintyFlags(),
		Values: make(map[string]float64),
	}
	if dt, err := p.DateTime(); err == nil {
		v.DateTime = dt.String()
	}
	for f := epw.DryBulbTemperature; f <= epw.LiquidPrecipitationQuantity; f++ {
		if value, ok := p.GetField(f); ok {
			v.Values[f.String()] = value
		}
	}
	return v
}

// GetSeries handles GET /api/files/{id}/series
func (h *FileHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	h.serveSeries(w, r, (*epw.File).GetTimeSeries)
}

// GetComputedSeries handles GET /api/files/{id}/computed
func (h *FileHandler) GetComputedSeries(w http.ResponseWriter, r *http.Request) {
	h.serveSeries(w, r, (*epw.File).GetComputedTimeSeries)
}

func (h *FileHandler) serveSeries(w http.ResponseWriter, r *http.Request, get func(*epw.File, string) (timeseries.TimeSeries, error)) {
	ctx := r.Context()
	f, station, ok := h.file(w, r)
	if !ok {
		return
	}
	field := r.URL.Query().Get("field")
	if field == "" {
		h.sendError(w, r, "field is required", http.StatusBadRequest)
		return
	}
	ts, err := get(f, field)
	if !h.seriesError(w, r, err) {
		return
	}

	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "json":
		h.sendJSON(w, SeriesResponse{
			Field:   field,
			Units:   ts.Units,
			Start:   ts.FirstReportDateTime().String(),
			Summary: ts.Summary(),
			Points:  ts.Rows(),
		}, http.StatusOK)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", attachment(station, field, "csv"))
		if err := ts.WriteCSV(w); err != nil {
			h.logger.Error(ctx, "[API_CSV_ERROR] Failed to write CSV", logging.Fields{"field": field}, err)
			return
		}
		h.metrics.RecordExport("csv")
	case "png":
		w.Header().Set("Content-Type", "image/png")
		title := fmt.Sprintf("%s, %s (%s)", station.City, field, ts.Units)
		if err := ts.WritePNG(w, title); err != nil {
			h.logger.Error(ctx, "[API_PNG_ERROR] Failed to render chart", logging.Fields{"field": field}, err)
			return
		}
		h.metrics.RecordExport("png")
	default:
		h.sendError(w, r, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
	}
}

// seriesError answers a failed series lookup and reports whether the
// request may continue.
func (h *FileHandler) seriesError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, epw.ErrUnknownField):
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
	case errors.Is(err, epw.ErrNoData):
		h.sendError(w, r, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error(r.Context(), "[API_SERIES_ERROR] Failed to build time series", logging.Fields{}, err)
		h.sendError(w, r, "failed to build time series", http.StatusInternalServerError)
	}
	return false
}

func attachment(station *models.Station, field, ext string) string {
	name := strings.ReplaceAll(strings.TrimSpace(station.City+"_"+field), " ", "_")
	return fmt.Sprintf("attachment; filename=%q", name+"."+ext)
}

// GetDesignConditions handles GET /api/files/{id}/design
func (h *FileHandler) GetDesignConditions(w http.ResponseWriter, r *http.Request) {
	f, station, ok := h.file(w, r)
	if !ok {
		return
	}
	designs, err := f.DesignConditions()
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]*models.DesignCondition, 0, len(designs))
	for _, dc := range designs {
		row, err := models.ToDesignCondition(station.ID, dc)
		if err != nil {
			h.sendError(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, row)
	}
	h.sendJSON(w, out, http.StatusOK)
}

// GetGroundTemperatures handles GET /api/files/{id}/ground
func (h *FileHandler) GetGroundTemperatures(w http.ResponseWriter, r *http.Request) {
	f, station, ok := h.file(w, r)
	if !ok {
		return
	}
	depths, err := f.GroundTemperatureDepths()
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]*models.GroundTemperature, len(depths))
	for i, g := range depths {
		out[i] = models.ToGroundTemperature(station.ID, g)
	}
	h.sendJSON(w, out, http.StatusOK)
}

// GetHolidays handles GET /api/files/{id}/holidays
func (h *FileHandler) GetHolidays(w http.ResponseWriter, r *http.Request) {
	f, _, ok := h.file(w, r)
	if !ok {
		return
	}
	holidays := f.Holidays()
	if holidays == nil {
		holidays = []epw.Holiday{}
	}
	h.sendJSON(w, holidays, http.StatusOK)
}

// GetWth handles GET /api/files/{id}/wth
func (h *FileHandler) GetWth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, station, ok := h.file(w, r)
	if !ok {
		return
	}
	var buf strings.Builder
	if err := f.TranslateToWth(&buf, "Translated from "+f.Path()); err != nil {
		h.logger.Warn(ctx, "[API_WTH_ERROR] File cannot be exported to WTH", logging.Fields{
			"station_id": station.ID.String(),
			"error":      err.Error(),
		})
		h.sendError(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(station, "weather", "wth"))
	w.Write([]byte(buf.String()))
	h.metrics.RecordExport("wth")
}

// IdfField is one field of the Site:WeatherFile record.
type IdfField struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// GetIdf handles GET /api/files/{id}/idf
func (h *FileHandler) GetIdf(w http.ResponseWriter, r *http.Request) {
	f, _, ok := h.file(w, r)
	if !ok {
		return
	}
	record := epw.ToIdfObject(f)
	fields := make([]IdfField, 0, len(record.Fields()))
	for i, v := range record.Fields() {
		fields = append(fields, IdfField{Index: i, Name: epw.WeatherFileFieldName(i), Value: v})
	}
	h.sendJSON(w, map[string]interface{}{
		"type":   "OS:WeatherFile",
		"fields": fields,
	}, http.StatusOK)
}

// GetStatistics handles GET /api/files/{id}/stats
func (h *FileHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	f, station, ok := h.file(w, r)
	if !ok {
		return
	}
	field := r.URL.Query().Get("field")
	if field == "" {
		h.sendError(w, r, "field is required", http.StatusBadRequest)
		return
	}
	rows, err := h.stats.ComputeMonthly(station.ID, f, field)
	if !h.seriesError(w, r, err) {
		return
	}
	h.sendJSON(w, rows, http.StatusOK)
}

// RegisterRoutes registers the catalog routes
func (h *FileHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/files", h.ListFiles).Methods(http.MethodGet)
	router.HandleFunc("/api/files/fetch", h.FetchFile).Methods(http.MethodPost)
	router.HandleFunc("/api/files/{id}", h.GetFile).Methods(http.MethodGet)
	router.HandleFunc("/api/files/{id}", h.DeleteFile).Methods(http.MethodDelete)
	router.HandleFunc("/api/files/{id}/data", h.GetData).Methods(http.MethodGet)
	router.HandleFunc("/api/files/{id}/series", h.GetSeries).Methods(http.MethodGet)
	router.HandleFunc("/api/files/{id}/computed", h.GetComputedSeries).Methods(http.MethodGet)
	router.HandleFunc("/api/files/{id}/design", h.GetDesignConditions).Methods(http.MethodGet)
	router.HandleFunc("/api/files/{id}/ground", h.GetGroundTemperatures).Methods(http.MethodGet)
	router.HandleFunc("/api/files/{id}/holidays", h.GetHolidays).Methods(http.MethodGet)
	router.HandleFunc("/api/files/{id}/wth", h.GetWth).Methods(http.MethodGet)
	router.HandleFunc("/api/files/{id}/idf", h.GetIdf).Methods(http.MethodGet)
	router.HandleFunc("/api/files/{id}/stats", h.GetStatistics).Methods(http.MethodGet)
}
