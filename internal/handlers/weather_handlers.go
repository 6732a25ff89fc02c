package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"climate-harvester/internal/models"
	"climate-harvester/internal/repository"
	"climate-harvester/internal/services"
	"climate-harvester/pkg/logging"
	"climate-harvester/pkg/metrics"
)

// WeatherHandler handles weather API endpoints
type WeatherHandler struct {
	weatherService *services.WeatherService
	statsService   *services.StatisticsService
	logger         *logging.StructuredLogger
	metrics        *metrics.Collector
}

// NewWeatherHandler creates a new weather handler
func NewWeatherHandler(
	weatherService *services.WeatherService,
	statsService *services.StatisticsService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *WeatherHandler {
	return &WeatherHandler{
		weatherService: weatherService,
		statsService:   statsService,
		logger:         logger,
		metrics:        metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// CoverageResponse is the latest published month of a station
type CoverageResponse struct {
	StationID string            `json:"station_id"`
	Status    string            `json:"status"`
	Latest    *models.YearMonth `json:"latest,omitempty"`
}

// GetMonthlyAggregates handles GET /api/weather/monthly
func (h *WeatherHandler) GetMonthlyAggregates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/weather/monthly").Observe(time.Since(startTime).Seconds())
	}()

	query := r.URL.Query()
	page, limit := parsePagination(r)

	filter := repository.AggregateFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if stationID := query.Get("station_id"); stationID != "" {
		filter.StationID = &stationID
	}

	if yearStr := query.Get("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil || year < 1 {
			h.sendError(w, r, "invalid year, expected a positive integer", http.StatusBadRequest)
			return
		}
		filter.Year = &year
	}

	if monthStr := query.Get("month"); monthStr != "" {
		month, err := strconv.Atoi(monthStr)
		if err != nil || month < 1 || month > 12 {
			h.sendError(w, r, "invalid month, expected integer between 1 and 12", http.StatusBadRequest)
			return
		}
		filter.Month = &month
	}

	rows, total, err := h.weatherService.GetMonthlyAggregates(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_MONTHLY_ERROR] Failed to get monthly aggregates", logging.Fields{
			"filter": filter,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/weather/monthly")
		h.sendError(w, r, "failed to retrieve monthly aggregates", http.StatusInternalServerError)
		return
	}

	response := PaginatedResponse{
		Data:       rows,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}

	h.metrics.RecordAPIRequest("/api/weather/monthly", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetStations handles GET /api/weather/stations
func (h *WeatherHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/weather/stations").Observe(time.Since(startTime).Seconds())
	}()

	page, limit := parsePagination(r)

	stations, err := h.weatherService.GetStations(ctx, limit, (page-1)*limit)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_STATIONS_ERROR] Failed to list stations", logging.Fields{
			"page":  page,
			"limit": limit,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/weather/stations")
		h.sendError(w, r, "failed to retrieve stations", http.StatusInternalServerError)
		return
	}

	if stations == nil {
		stations = []*models.Station{}
	}

	h.metrics.RecordAPIRequest("/api/weather/stations", "GET", "200")
	h.sendJSON(w, stations, http.StatusOK)
}

// GetCoverage handles GET /api/weather/coverage/{station_id}
func (h *WeatherHandler) GetCoverage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stationID := mux.Vars(r)["station_id"]

	coverage := h.weatherService.GetCoverage(ctx, stationID)
	if coverage.Status == models.CoverageError {
		h.metrics.RecordAPIError("coverage_error", "/api/weather/coverage")
		h.sendError(w, r, "coverage is temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	response := CoverageResponse{
		StationID: stationID,
		Status:    coverage.Status.String(),
	}
	if coverage.Status == models.CoverageFound {
		latest := coverage.Latest
		response.Latest = &latest
	}

	h.metrics.RecordAPIRequest("/api/weather/coverage", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetStationSummary handles GET /api/weather/stations/{station_id}/summary
func (h *WeatherHandler) GetStationSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stationID := mux.Vars(r)["station_id"]

	summary, err := h.statsService.StationSummary(ctx, stationID)
	if repository.IsNotFound(err) {
		h.sendError(w, r, "no published data for station "+stationID, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error(ctx, "[API_GET_SUMMARY_ERROR] Failed to summarize station", logging.Fields{
			"station_id": stationID,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/weather/stations/summary")
		h.sendError(w, r, "failed to summarize station", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/weather/stations/summary", "GET", "200")
	h.sendJSON(w, summary, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *WeatherHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.weatherService.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK] Database unreachable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	h.sendJSON(w, status, code)
}

func parsePagination(r *http.Request) (page, limit int) {
	page, limit = 1, 100

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}

	return page, limit
}

// sendJSON sends a JSON response
func (h *WeatherHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *WeatherHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all weather API routes
func (h *WeatherHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/weather/monthly", h.GetMonthlyAggregates).Methods("GET")
	router.HandleFunc("/api/weather/stations", h.GetStations).Methods("GET")
	router.HandleFunc("/api/weather/stations/{station_id}/summary", h.GetStationSummary).Methods("GET")
	router.HandleFunc("/api/weather/coverage/{station_id}", h.GetCoverage).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
