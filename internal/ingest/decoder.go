package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reading is the decoded payload of one sensor message.
type Reading struct {
	ParcelID     uuid.UUID `json:"parcel_id"`
	PH           *float64  `json:"ph,omitempty"`
	Humidity     *float64  `json:"humidity,omitempty"`
	Temperature  *float64  `json:"temperature,omitempty"`
	Conductivity *float64  `json:"conductivity,omitempty"`
	Nitrogen     *float64  `json:"nitrogen,omitempty"`
	Phosphorus   *float64  `json:"phosphorus,omitempty"`
	Potassium    *float64  `json:"potassium,omitempty"`
	Observations string    `json:"observations,omitempty"`
	ReadAt       time.Time `json:"read_at"`
}

// HasMeasurement reports whether at least one soil criterion is present.
// Readings with no measurements carry nothing worth storing.
func (r *Reading) HasMeasurement() bool {
	return r.PH != nil || r.Humidity != nil || r.Temperature != nil ||
		r.Conductivity != nil || r.Nitrogen != nil || r.Phosphorus != nil ||
		r.Potassium != nil
}

// DecodeReading extracts the sensor serial from a readings topic and
// decodes the JSON payload. Topics have the shape sensors/<serial>/readings.
func DecodeReading(topic string, payload []byte) (string, *Reading, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "sensors" || parts[2] != "readings" || parts[1] == "" {
		return "", nil, fmt.Errorf("unexpected topic %q", topic)
	}
	serial := parts[1]

	var reading Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return "", nil, fmt.Errorf("decode reading payload: %w", err)
	}
	if reading.ParcelID == uuid.Nil {
		return "", nil, fmt.Errorf("reading on %q has no parcel_id", topic)
	}
	if !reading.HasMeasurement() {
		return "", nil, fmt.Errorf("reading on %q has no measurements", topic)
	}
	if reading.ReadAt.IsZero() {
		reading.ReadAt = time.Now().UTC()
	}

	return serial, &reading, nil
}
