package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/routewx/internal/aircraft"
	"github.com/yegors/routewx/internal/airports"
	"github.com/yegors/routewx/internal/config"
	"github.com/yegors/routewx/internal/forecast"
	"github.com/yegors/routewx/internal/geo"
	"github.com/yegors/routewx/internal/turbulence"
	"github.com/yegors/routewx/pkg/logger"
)

// ForecastService resolves route forecasts
type ForecastService interface {
	GetRouteForecast(ctx context.Context, req forecast.Request) (turbulence.RouteForecast, error)
	Sources() []string
}

// Handler contains the API handlers
type Handler struct {
	forecasts ForecastService
	airports  airports.Directory
	config    *config.Config
	logger    *logger.Logger
	startedAt time.Time
}

// NewHandler creates a new API handler
func NewHandler(forecasts ForecastService, directory airports.Directory, config *config.Config, logger *logger.Logger) *Handler {
	return &Handler{
		forecasts: forecasts,
		airports:  directory,
		config:    config,
		logger:    logger.Named("api-handler"),
		startedAt: time.Now(),
	}
}

// AirportForecast is the response for an airport-to-airport forecast
type AirportForecast struct {
	Origin      airports.Airport         `json:"origin"`
	Destination airports.Airport         `json:"destination"`
	Forecast    turbulence.RouteForecast `json:"forecast"`
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":         "ok",
		"providers":      h.forecasts.Sources(),
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetConfig returns the public configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	// Only values that are safe to expose
	publicConfig := map[string]interface{}{
		"forecast": map[string]interface{}{
			"waypoint_count":          h.config.Forecast.WaypointCount,
			"default_flight_level_ft": h.config.Forecast.DefaultFlightLevelFt,
			"max_flight_level_ft":     h.config.Forecast.MaxFlightLevelFt,
			"request_timeout_seconds": h.config.Forecast.RequestTimeoutSeconds,
			"default_probability":     h.config.Forecast.DefaultProbability,
		},
		"providers": h.forecasts.Sources(),
	}

	WriteJSON(w, http.StatusOK, publicConfig)
}

// GetForecast returns the turbulence forecast between two coordinates
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var origin, destination geo.Coordinate
	params := []struct {
		name string
		dst  *float64
	}{
		{"originLat", &origin.Lat},
		{"originLon", &origin.Lon},
		{"destLat", &destination.Lat},
		{"destLon", &destination.Lon},
	}
	for _, p := range params {
		v, err := parseFloatParam(q.Get(p.name), p.name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		*p.dst = v
	}

	req, err := forecastRequest(r, origin, destination)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := h.forecasts.GetRouteForecast(r.Context(), req)
	if err != nil {
		h.writeForecastError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, f)
}

// GetAirportForecast returns the forecast between two airports given by ICAO or IATA code
func (h *Handler) GetAirportForecast(w http.ResponseWriter, r *http.Request) {
	origin, ok := h.lookupAirport(w, r, chi.URLParam(r, "origin"))
	if !ok {
		return
	}
	destination, ok := h.lookupAirport(w, r, chi.URLParam(r, "destination"))
	if !ok {
		return
	}

	req, err := forecastRequest(r, origin.Coordinate, destination.Coordinate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := h.forecasts.GetRouteForecast(r.Context(), req)
	if err != nil {
		h.writeForecastError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, AirportForecast{
		Origin:      origin,
		Destination: destination,
		Forecast:    f,
	})
}

// SearchAirports returns airports matching the q parameter
func (h *Handler) SearchAirports(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	results, err := h.airports.Search(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("Airport search failed",
			logger.String("query", query),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, "airport search failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"airports": results,
		"count":    len(results),
	})
}

// GetAirport returns a single airport by ICAO or IATA code
func (h *Handler) GetAirport(w http.ResponseWriter, r *http.Request) {
	a, ok := h.lookupAirport(w, r, chi.URLParam(r, "code"))
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, a)
}

// ListAircraft returns every known aircraft type
func (h *Handler) ListAircraft(w http.ResponseWriter, r *http.Request) {
	types := aircraft.All()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"aircraft": types,
		"count":    len(types),
	})
}

// GetAircraft returns the characteristics of one aircraft type
func (h *Handler) GetAircraft(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	t, ok := aircraft.Lookup(code)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown aircraft type %q", code))
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) lookupAirport(w http.ResponseWriter, r *http.Request, code string) (airports.Airport, bool) {
	a, err := h.airports.GetByCode(r.Context(), code)
	if errors.Is(err, airports.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("airport %q not found", code))
		return airports.Airport{}, false
	}
	if err != nil {
		h.logger.Error("Airport lookup failed",
			logger.String("code", code),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, "airport lookup failed")
		return airports.Airport{}, false
	}
	return a, true
}

func (h *Handler) writeForecastError(w http.ResponseWriter, err error) {
	var invalid *geo.InvalidRouteError
	if errors.As(err, &invalid) {
		writeError(w, http.StatusBadRequest, invalid.Error())
		return
	}
	h.logger.Error("Forecast failed", logger.Error(err))
	writeError(w, http.StatusInternalServerError, "forecast failed")
}

// forecastRequest reads the optional flightLevelFt and aircraft parameters
func forecastRequest(r *http.Request, origin, destination geo.Coordinate) (forecast.Request, error) {
	req := forecast.Request{
		Origin:       origin,
		Destination:  destination,
		AircraftType: strings.TrimSpace(r.URL.Query().Get("aircraft")),
	}
	if s := r.URL.Query().Get("flightLevelFt"); s != "" {
		fl, err := strconv.Atoi(s)
		if err != nil {
			return forecast.Request{}, fmt.Errorf("flightLevelFt must be an integer, got %q", s)
		}
		req.FlightLevelFt = fl
	}
	return req, nil
}

func parseFloatParam(s, name string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing required parameter %s", name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, s)
	}
	return v, nil
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}
