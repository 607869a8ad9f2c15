package ingest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReading_Valid(t *testing.T) {
	parcelID := uuid.New()
	payload := fmt.Sprintf(`{
		"parcel_id": %q,
		"ph": 6.5,
		"temperature": 21.3,
		"read_at": "2024-06-15T08:30:00Z"
	}`, parcelID)

	serial, reading, err := DecodeReading("sensors/SN-001/readings", []byte(payload))
	require.NoError(t, err)

	assert.Equal(t, "SN-001", serial)
	assert.Equal(t, parcelID, reading.ParcelID)
	require.NotNil(t, reading.PH)
	assert.Equal(t, 6.5, *reading.PH)
	require.NotNil(t, reading.Temperature)
	assert.Equal(t, 21.3, *reading.Temperature)
	assert.Nil(t, reading.Humidity)
	assert.Equal(t, time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC), reading.ReadAt)
}

func TestDecodeReading_BadTopics(t *testing.T) {
	payload := fmt.Sprintf(`{"parcel_id": %q, "ph": 6.5}`, uuid.New())

	topics := []string{
		"sensors/readings",
		"sensors//readings",
		"devices/SN-001/readings",
		"sensors/SN-001/status",
		"sensors/SN-001/readings/extra",
		"",
	}
	for _, topic := range topics {
		_, _, err := DecodeReading(topic, []byte(payload))
		assert.Error(t, err, "topic %q", topic)
	}
}

func TestDecodeReading_InvalidJSON(t *testing.T) {
	_, _, err := DecodeReading("sensors/SN-001/readings", []byte("{not json"))
	assert.Error(t, err)
}

func TestDecodeReading_MissingParcelID(t *testing.T) {
	_, _, err := DecodeReading("sensors/SN-001/readings", []byte(`{"ph": 6.5}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parcel_id")
}

func TestDecodeReading_NoMeasurements(t *testing.T) {
	payload := fmt.Sprintf(`{"parcel_id": %q, "observations": "sensor glitch"}`, uuid.New())

	_, _, err := DecodeReading("sensors/SN-001/readings", []byte(payload))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no measurements")
}

func TestDecodeReading_ZeroReadAtDefaultsToNow(t *testing.T) {
	payload := fmt.Sprintf(`{"parcel_id": %q, "humidity": 55}`, uuid.New())

	before := time.Now().UTC()
	_, reading, err := DecodeReading("sensors/SN-001/readings", []byte(payload))
	require.NoError(t, err)

	assert.False(t, reading.ReadAt.IsZero())
	assert.False(t, reading.ReadAt.Before(before))
}

func TestHasMeasurement(t *testing.T) {
	v := 1.0

	empty := &Reading{ParcelID: uuid.New(), Observations: "note"}
	assert.False(t, empty.HasMeasurement())

	withPotassium := &Reading{ParcelID: uuid.New(), Potassium: &v}
	assert.True(t, withPotassium.HasMeasurement())
}
