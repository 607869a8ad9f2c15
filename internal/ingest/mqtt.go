package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/agrisense-io/crop-advisor/internal/config"
	"github.com/agrisense-io/crop-advisor/internal/models"
	"github.com/agrisense-io/crop-advisor/internal/scoring"
)

// SensorDirectory resolves sensor serial codes to registered sensors.
type SensorDirectory interface {
	GetBySerial(ctx context.Context, serial string) (*models.Sensor, error)
}

// ParcelDirectory resolves parcels and their owning users.
type ParcelDirectory interface {
	GetParcel(ctx context.Context, id uuid.UUID) (*models.Parcel, error)
	ParcelOwner(ctx context.Context, parcelID uuid.UUID) (uuid.UUID, error)
}

// AnalysisWriter persists decoded readings as soil analyses.
type AnalysisWriter interface {
	Insert(ctx context.Context, a *models.SoilAnalysis) error
}

// RecommendationEngine scores an analysis against the crop catalog.
type RecommendationEngine interface {
	Generate(ctx context.Context, analysis *models.SoilAnalysis) ([]scoring.RankedRecommendation, error)
}

// Ingestor subscribes to sensor reading topics and turns each accepted
// reading into a stored soil analysis with fresh recommendations.
// Malformed or unresolvable messages are logged and skipped; one bad
// message never stops the stream.
type Ingestor struct {
	cfg         config.MQTTConfig
	sensors     SensorDirectory
	parcels     ParcelDirectory
	analyses    AnalysisWriter
	recommender RecommendationEngine
	telemetry   *Telemetry

	client mqtt.Client
}

// NewIngestor creates an ingestor. telemetry may be nil when Influx is not
// configured.
func NewIngestor(
	cfg config.MQTTConfig,
	sensors SensorDirectory,
	parcels ParcelDirectory,
	analyses AnalysisWriter,
	recommender RecommendationEngine,
	telemetry *Telemetry,
) *Ingestor {
	return &Ingestor{
		cfg:         cfg,
		sensors:     sensors,
		parcels:     parcels,
		analyses:    analyses,
		recommender: recommender,
		telemetry:   telemetry,
	}
}

// Start connects to the broker with exponential backoff and subscribes to
// the readings topic. It returns once subscribed; message handling runs on
// the paho client's goroutines until ctx is cancelled.
func (i *Ingestor) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(i.cfg.BrokerURL).
		SetClientID(i.cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(i.cfg.ConnectTimeout)

	if i.cfg.Username != "" {
		opts.SetUsername(i.cfg.Username)
		opts.SetPassword(i.cfg.Password)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			slog.Warn("mqtt connect failed, retrying", "broker", i.cfg.BrokerURL, "error", token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return fmt.Errorf("connect to mqtt broker: %w", err)
	}
	i.client = client

	if token := client.Subscribe(i.cfg.Topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		i.handle(ctx, msg.Topic(), msg.Payload())
	}); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return fmt.Errorf("subscribe %s: %w", i.cfg.Topic, token.Error())
	}

	slog.Info("sensor ingestion started",
		"broker", i.cfg.BrokerURL,
		"topic", i.cfg.Topic,
		"client_id", i.cfg.ClientID,
	)

	go func() {
		<-ctx.Done()
		i.Stop()
	}()

	return nil
}

// Stop disconnects from the broker.
func (i *Ingestor) Stop() {
	if i.client != nil && i.client.IsConnected() {
		i.client.Disconnect(250)
		slog.Info("sensor ingestion stopped")
	}
}

func (i *Ingestor) handle(ctx context.Context, topic string, payload []byte) {
	serial, reading, err := DecodeReading(topic, payload)
	if err != nil {
		slog.Warn("skipping unreadable sensor message", "topic", topic, "error", err)
		return
	}

	logger := slog.Default().With(
		slog.String("sensor_serial", serial),
		slog.String("parcel_id", reading.ParcelID.String()),
	)

	sensor, err := i.sensors.GetBySerial(ctx, serial)
	if err != nil {
		logger.Error("sensor lookup failed", "error", err)
		return
	}
	if sensor == nil {
		logger.Warn("skipping reading from unregistered sensor")
		return
	}

	parcel, err := i.parcels.GetParcel(ctx, reading.ParcelID)
	if err != nil {
		logger.Error("parcel lookup failed", "error", err)
		return
	}
	if parcel == nil {
		logger.Warn("skipping reading for unknown parcel")
		return
	}

	owner, err := i.parcels.ParcelOwner(ctx, reading.ParcelID)
	if err != nil {
		logger.Error("parcel owner lookup failed", "error", err)
		return
	}

	analysis := &models.SoilAnalysis{
		ID:           uuid.New(),
		ParcelID:     reading.ParcelID,
		UserID:       owner,
		SensorID:     &sensor.ID,
		PH:           reading.PH,
		Humidity:     reading.Humidity,
		Temperature:  reading.Temperature,
		Conductivity: reading.Conductivity,
		Nitrogen:     reading.Nitrogen,
		Phosphorus:   reading.Phosphorus,
		Potassium:    reading.Potassium,
		Observations: reading.Observations,
		AnalyzedAt:   reading.ReadAt,
	}

	if err := i.analyses.Insert(ctx, analysis); err != nil {
		logger.Error("store analysis failed", "error", err)
		return
	}

	if _, err := i.recommender.Generate(ctx, analysis); err != nil {
		// The analysis is already stored; recommendations can be
		// regenerated on demand.
		logger.Error("generate recommendations failed", "analysis_id", analysis.ID, "error", err)
	}

	if i.telemetry != nil {
		i.telemetry.RecordAnalysis(analysis, serial)
	}

	logger.Info("sensor reading ingested", "analysis_id", analysis.ID)
}
