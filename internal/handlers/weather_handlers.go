package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"epw-platform/internal/repository"
	"epw-platform/internal/services"
	"epw-platform/pkg/logging"
	"epw-platform/pkg/metrics"
)

// WeatherHandler serves weather files stored in the database.
type WeatherHandler struct {
	base
	weatherService *services.WeatherService
}

func NewWeatherHandler(weatherService *services.WeatherService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WeatherHandler {
	return &WeatherHandler{
		base:           base{logger: logger, metrics: metricsCollector},
		weatherService: weatherService,
	}
}

func (h *WeatherHandler) stationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, r, "invalid station id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// storeError maps repository errors onto responses.
func (h *WeatherHandler) storeError(w http.ResponseWriter, r *http.Request, tag, message string, err error) {
	var nf *repository.NotFoundError
	if errors.As(err, &nf) {
		h.sendError(w, r, nf.Error(), http.StatusNotFound)
		return
	}
	h.logger.Error(r.Context(), tag, logging.Fields{"path": r.URL.Path}, err)
	h.sendError(w, r, message, http.StatusInternalServerError)
}

// GetStations handles GET /api/stations
func (h *WeatherHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r)
	filter := repository.StationFilter{Limit: limit, Offset: offset}

	if country := r.URL.Query().Get("country"); country != "" {
		filter.Country = &country
	}
	if actual := r.URL.Query().Get("is_actual"); actual != "" {
		b, err := strconv.ParseBool(actual)
		if err != nil {
			h.sendError(w, r, "invalid is_actual, expected true or false", http.StatusBadRequest)
			return
		}
		filter.IsActual = &b
	}

	stations, total, err := h.weatherService.GetStations(r.Context(), filter)
	if err != nil {
		h.storeError(w, r, "[API_GET_STATIONS_ERROR] Failed to get stations", "failed to retrieve stations", err)
		return
	}
	h.sendJSON(w, paginated(stations, total, page, limit), http.StatusOK)
}

// GetStation handles GET /api/stations/{id}
func (h *WeatherHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.stationID(w, r)
	if !ok {
		return
	}
	detail, err := h.weatherService.GetStationDetail(r.Context(), id)
	if err != nil {
		h.storeError(w, r, "[API_GET_STATION_ERROR] Failed to get station", "failed to retrieve station", err)
		return
	}
	h.sendJSON(w, detail, http.StatusOK)
}

// DeleteStation handles DELETE /api/stations/{id}
func (h *WeatherHandler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.stationID(w, r)
	if !ok {
		return
	}
	if err := h.weatherService.DeleteStation(r.Context(), id); err != nil {
		h.storeError(w, r, "[API_DELETE_STATION_ERROR] Failed to delete station", "failed to delete station", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetObservations handles GET /api/stations/{id}/observations
func (h *WeatherHandler) GetObservations(w http.ResponseWriter, r *http.Request) {
	id, ok := h.stationID(w, r)
	if !ok {
		return
	}
	page, limit, offset := pagination(r)
	filter := repository.ObservationFilter{StationID: id, Limit: limit, Offset: offset}

	if s := r.URL.Query().Get("start_date"); s != "" {
		start, err := time.Parse("2006-01-02", s)
		if err != nil {
			h.sendError(w, r, "invalid start_date format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.Start = &start
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		end, err := time.Parse("2006-01-02", s)
		if err != nil {
			h.sendError(w, r, "invalid end_date format, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.End = &end
	}
	if s := r.URL.Query().Get("month"); s != "" {
		month, err := strconv.Atoi(s)
		if err != nil || month < 1 || month > 12 {
			h.sendError(w, r, "invalid month, expected 1 to 12", http.StatusBadRequest)
			return
		}
		filter.Month = &month
	}

	observations, total, err := h.weatherService.GetObservations(r.Context(), filter)
	if err != nil {
		h.storeError(w, r, "[API_GET_OBSERVATIONS_ERROR] Failed to get observations", "failed to retrieve observations", err)
		return
	}
	h.sendJSON(w, paginated(observations, total, page, limit), http.StatusOK)
}

// GetStatistics handles GET /api/stations/{id}/stats
func (h *WeatherHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := h.stationID(w, r)
	if !ok {
		return
	}
	stats, err := h.weatherService.GetStatistics(r.Context(), id, r.URL.Query().Get("field"))
	if err != nil {
		h.storeError(w, r, "[API_GET_STATISTICS_ERROR] Failed to get statistics", "failed to retrieve statistics", err)
		return
	}
	h.sendJSON(w, stats, http.StatusOK)
}

// RegisterRoutes registers the stored-station routes
func (h *WeatherHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/stations", h.GetStations).Methods(http.MethodGet)
	router.HandleFunc("/api/stations/{id}", h.GetStation).Methods(http.MethodGet)
	router.HandleFunc("/api/stations/{id}", h.DeleteStation).Methods(http.MethodDelete)
	router.HandleFunc("/api/stations/{id}/observations", h.GetObservations).Methods(http.MethodGet)
	router.HandleFunc("/api/stations/{id}/stats", h.GetStatistics).Methods(http.MethodGet)
}
