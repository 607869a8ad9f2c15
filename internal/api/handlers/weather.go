package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrisense-io/crop-advisor/internal/api/response"
	"github.com/agrisense-io/crop-advisor/internal/weather"
)

// WeatherHandler handles forecast endpoints.
type WeatherHandler struct {
	svc *weather.Service
}

// NewWeatherHandler creates a new weather handler.
func NewWeatherHandler(svc *weather.Service) *WeatherHandler {
	return &WeatherHandler{svc: svc}
}

// HandleGetForecast handles GET /api/v1/weather/forecast. The stale flag
// tells clients the provider was down and the data came from the mirror.
func (h *WeatherHandler) HandleGetForecast(c *gin.Context) {
	location := c.Query("location")
	if location == "" {
		response.BadRequest(c, "location is required", nil)
		return
	}

	days := 7
	if d := c.Query("days"); d != "" {
		var v int
		if _, err := fmt.Sscanf(d, "%d", &v); err == nil && v > 0 && v <= 16 {
			days = v
		}
	}

	records, stale, err := h.svc.Forecast(c.Request.Context(), location, days)
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, "FORECAST_UNAVAILABLE", err.Error(), nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"location": location,
		"stale":    stale,
		"daily":    records,
	})
}

// HandleGetCurrent handles GET /api/v1/weather/current: today's conditions
// for a location, a single-day cut of the forecast.
func (h *WeatherHandler) HandleGetCurrent(c *gin.Context) {
	location := c.Query("location")
	if location == "" {
		response.BadRequest(c, "location is required", nil)
		return
	}

	records, stale, err := h.svc.Forecast(c.Request.Context(), location, 1)
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, "FORECAST_UNAVAILABLE", err.Error(), nil)
		return
	}
	if len(records) == 0 {
		response.NotFound(c, "no current weather for location")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"location": location,
		"stale":    stale,
		"current":  records[0],
	})
}
