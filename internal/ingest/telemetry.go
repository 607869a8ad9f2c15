package ingest

import (
	"log/slog"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/agrisense-io/crop-advisor/internal/config"
	"github.com/agrisense-io/crop-advisor/internal/models"
)

// Telemetry streams accepted soil readings to InfluxDB through the async
// write API and tracks the last write error for health reporting.
type Telemetry struct {
	client influxdb2.Client
	api    api.WriteAPI

	mu      sync.RWMutex
	lastErr time.Time
}

// NewTelemetry connects the async Influx writer. Write errors surface on a
// background channel, not per call, so they are recorded for LastErrorAge.
func NewTelemetry(cfg config.InfluxConfig) *Telemetry {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	t := &Telemetry{
		client:  client,
		api:     writeAPI,
		lastErr: time.Now().Add(-24 * time.Hour),
	}

	go func() {
		for err := range writeAPI.Errors() {
			if err != nil {
				t.mu.Lock()
				t.lastErr = time.Now()
				t.mu.Unlock()
				slog.Error("influx write error", "error", err)
			}
		}
	}()

	return t
}

// RecordAnalysis writes one soil analysis as a telemetry point. Absent
// criteria are omitted from the point rather than written as zeros.
func (t *Telemetry) RecordAnalysis(a *models.SoilAnalysis, sensorSerial string) {
	tags := map[string]string{
		"parcel_id": a.ParcelID.String(),
	}
	if sensorSerial != "" {
		tags["sensor_serial"] = sensorSerial
	}

	fields := make(map[string]interface{}, 7)
	addField(fields, "ph", a.PH)
	addField(fields, "humidity", a.Humidity)
	addField(fields, "temperature", a.Temperature)
	addField(fields, "conductivity", a.Conductivity)
	addField(fields, "nitrogen", a.Nitrogen)
	addField(fields, "phosphorus", a.Phosphorus)
	addField(fields, "potassium", a.Potassium)
	if len(fields) == 0 {
		return
	}

	point := influxdb2.NewPoint("soil_reading", tags, fields, a.AnalyzedAt)
	t.api.WritePoint(point)
}

// LastErrorAge returns how long ago the last write error happened.
func (t *Telemetry) LastErrorAge() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return time.Since(t.lastErr)
}

// Close flushes pending points and shuts the client down.
func (t *Telemetry) Close() {
	t.api.Flush()
	t.client.Close()
}

func addField(fields map[string]interface{}, name string, v *float64) {
	if v != nil {
		fields[name] = *v
	}
}
