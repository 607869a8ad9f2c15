package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/agrisense-io/crop-advisor/internal/config"
	"github.com/agrisense-io/crop-advisor/internal/models"
)

// Provider fetches forecasts from the upstream weather API.
type Provider interface {
	Forecast(ctx context.Context, location string, days int) ([]models.WeatherRecord, error)
}

// Mirror persists provider forecasts and serves them back when the
// provider is unavailable.
type Mirror interface {
	Upsert(ctx context.Context, records []models.WeatherRecord) error
	GetByLocation(ctx context.Context, location string, from, to time.Time) ([]models.WeatherRecord, error)
}

// HTTPProvider calls a REST forecast API.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider creates a provider against the configured base URL.
func NewHTTPProvider(cfg config.WeatherConfig) *HTTPProvider {
	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type providerDay struct {
	Date          string  `json:"date"`
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	Precipitation float64 `json:"precipitation"`
	WindSpeed     float64 `json:"wind_speed"`
	Description   string  `json:"description"`
}

type providerResponse struct {
	Location string        `json:"location"`
	Daily    []providerDay `json:"daily"`
}

// Forecast fetches a daily forecast for the location.
func (p *HTTPProvider) Forecast(ctx context.Context, location string, days int) ([]models.WeatherRecord, error) {
	q := url.Values{}
	q.Set("location", location)
	q.Set("days", fmt.Sprintf("%d", days))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build forecast request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast provider returned status %d", resp.StatusCode)
	}

	var body providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}

	now := time.Now().UTC()
	records := make([]models.WeatherRecord, 0, len(body.Daily))
	for _, d := range body.Daily {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			return nil, fmt.Errorf("parse forecast date %q: %w", d.Date, err)
		}
		records = append(records, models.WeatherRecord{
			ID:            uuid.New(),
			Location:      location,
			ForecastDate:  date,
			Temperature:   d.Temperature,
			Humidity:      d.Humidity,
			Precipitation: d.Precipitation,
			WindSpeed:     d.WindSpeed,
			Description:   d.Description,
			LastUpdated:   now,
		})
	}

	return records, nil
}

// Service wraps the provider in a circuit breaker and mirrors every
// successful fetch. While the breaker is open, or on any provider error,
// the mirror serves the last known forecast.
type Service struct {
	provider Provider
	mirror   Mirror
	breaker  *gobreaker.CircuitBreaker
}

// NewService creates a weather service. The breaker opens after the
// configured number of consecutive provider failures and probes again
// after the open timeout.
func NewService(provider Provider, mirror Mirror, cfg config.WeatherConfig) *Service {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "weather-provider",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(cfg.MaxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Service{provider: provider, mirror: mirror, breaker: breaker}
}

// Forecast returns the daily forecast for a location, preferring live
// provider data. The returned bool is true when the data came from the
// stale mirror instead of the provider.
func (s *Service) Forecast(ctx context.Context, location string, days int) ([]models.WeatherRecord, bool, error) {
	if days < 1 {
		days = 1
	}

	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.Forecast(ctx, location, days)
	})
	if err == nil {
		records := res.([]models.WeatherRecord)
		if err := s.mirror.Upsert(ctx, records); err != nil {
			// Serving live data beats failing on a mirror write.
			slog.Error("mirror forecast", "location", location, "error", err)
		}
		return records, false, nil
	}

	slog.Warn("weather provider unavailable, serving mirror",
		"location", location,
		"error", err,
	)

	from := time.Now().UTC().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, days-1)
	records, mirrorErr := s.mirror.GetByLocation(ctx, location, from, to)
	if mirrorErr != nil {
		return nil, false, fmt.Errorf("weather provider failed and mirror lookup failed: %w", mirrorErr)
	}
	if len(records) == 0 {
		return nil, false, fmt.Errorf("forecast unavailable for %s: %w", location, err)
	}

	return records, true, nil
}
