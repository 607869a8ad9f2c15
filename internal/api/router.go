package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agrisense-io/crop-advisor/internal/api/handlers"
	"github.com/agrisense-io/crop-advisor/internal/api/middleware"
	"github.com/agrisense-io/crop-advisor/internal/campaign"
	"github.com/agrisense-io/crop-advisor/internal/config"
	"github.com/agrisense-io/crop-advisor/internal/ingest"
	"github.com/agrisense-io/crop-advisor/internal/repository"
	"github.com/agrisense-io/crop-advisor/internal/scoring"
	"github.com/agrisense-io/crop-advisor/internal/weather"
	"github.com/agrisense-io/crop-advisor/pkg/auth"
)

// NewRouter creates and configures the Gin router with all routes and
// middleware. telemetry may be nil when Influx is not configured.
func NewRouter(pool *pgxpool.Pool, cfg *config.Config, weatherSvc *weather.Service, telemetry *ingest.Telemetry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.CorrelationMiddleware())
	r.Use(middleware.StructuredLogging())
	r.Use(middleware.Metrics())

	// Health check (no auth required)
	r.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "healthy",
			"service": "crop-advisor",
		}
		if telemetry != nil {
			body["telemetry_last_error_age_seconds"] = int(telemetry.LastErrorAge().Seconds())
		}
		c.JSON(200, body)
	})

	// Prometheus metrics (no auth required)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Initialize repositories
	fieldRepo := repository.NewFieldRepository(pool)
	analysisRepo := repository.NewAnalysisRepository(pool)
	cropRepo := repository.NewCropRepository(pool)
	recRepo := repository.NewRecommendationRepository(pool)
	campaignRepo := repository.NewCampaignRepository(pool)
	sensorRepo := repository.NewSensorRepository(pool)
	idempotencyRepo := repository.NewIdempotencyRepository(pool)

	// Initialize services
	recommender := scoring.NewRecommender(cropRepo, recRepo)
	scheduler := campaign.NewScheduler(cropRepo, campaignRepo, nil)

	// Initialize handlers
	analysisHandler := handlers.NewAnalysisHandler(analysisRepo, fieldRepo, recRepo, idempotencyRepo, recommender)
	cropHandler := handlers.NewCropHandler(cropRepo)
	fieldHandler := handlers.NewFieldHandler(fieldRepo, analysisRepo)
	campaignHandler := handlers.NewCampaignHandler(scheduler, campaignRepo, fieldRepo, idempotencyRepo)
	sensorHandler := handlers.NewSensorHandler(sensorRepo)
	weatherHandler := handlers.NewWeatherHandler(weatherSvc)

	// API v1 routes (authenticated)
	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(&cfg.JWT))
	{
		// Fields and parcels
		v1.POST("/fields", fieldHandler.HandleCreateField)
		v1.GET("/fields", fieldHandler.HandleListFields)
		v1.POST("/fields/:field_id/parcels", fieldHandler.HandleCreateParcel)
		v1.GET("/fields/:field_id/parcels", fieldHandler.HandleListParcels)
		v1.GET("/parcels/:parcel_id", fieldHandler.HandleGetParcel)

		// Soil analyses and recommendations
		v1.POST("/analyses", analysisHandler.HandleCreateAnalysis)
		v1.GET("/analyses/:analysis_id", analysisHandler.HandleGetAnalysis)
		v1.GET("/parcels/:parcel_id/analyses", analysisHandler.HandleListByParcel)

		// Crop catalog — catalog writes require admin
		v1.GET("/crops", cropHandler.HandleListCrops)
		v1.GET("/crops/:crop_id", cropHandler.HandleGetCrop)
		v1.POST("/crops",
			middleware.RequireRole("admin"),
			cropHandler.HandleCreateCrop,
		)
		v1.PUT("/crops/:crop_id",
			middleware.RequireRole("admin"),
			cropHandler.HandleUpdateCrop,
		)
		v1.DELETE("/crops/:crop_id",
			middleware.RequireRole("admin"),
			cropHandler.HandleDeactivateCrop,
		)
		v1.PUT("/crops/:crop_id/stages",
			middleware.RequireRole("admin"),
			cropHandler.HandleReplaceStageTemplates,
		)

		// Campaigns
		v1.POST("/campaigns", campaignHandler.HandleCreateCampaign)
		v1.GET("/campaigns", campaignHandler.HandleListCampaigns)
		v1.GET("/campaigns/:campaign_id", campaignHandler.HandleGetCampaign)
		v1.POST("/campaigns/:campaign_id/cancel", campaignHandler.HandleCancelCampaign)
		v1.DELETE("/campaigns/:campaign_id", campaignHandler.HandleDeleteCampaign)
		v1.PATCH("/stages/:stage_id/status", campaignHandler.HandleUpdateStageStatus)
		v1.PATCH("/tasks/:task_id/status", campaignHandler.HandleUpdateTaskStatus)

		// Sensors — registration is admin only
		v1.POST("/sensors",
			middleware.RequireRole("admin"),
			sensorHandler.HandleRegisterSensor,
		)
		v1.GET("/sensors",
			middleware.RequireRole("admin"),
			sensorHandler.HandleListSensors,
		)
		v1.GET("/sensors/:sensor_id",
			middleware.RequireRole("admin"),
			sensorHandler.HandleGetSensor,
		)

		// Weather
		v1.GET("/weather/current", weatherHandler.HandleGetCurrent)
		v1.GET("/weather/forecast", weatherHandler.HandleGetForecast)
	}

	// Token generation endpoint (dev only — generates test JWTs)
	r.POST("/dev/token", devTokenHandler(cfg))

	return r
}

// devTokenHandler returns a handler that generates test JWTs for development.
func devTokenHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id"`
			Role   string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": "invalid request"})
			return
		}

		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			c.JSON(400, gin.H{"error": "invalid user_id"})
			return
		}
		if req.Role == "" {
			req.Role = "farmer"
		}

		token, err := auth.GenerateToken(cfg.JWT.Secret, cfg.JWT.Issuer, userID, req.Role, cfg.JWT.ExpiryHours)
		if err != nil {
			c.JSON(500, gin.H{"error": "failed to generate token"})
			return
		}

		c.JSON(200, gin.H{"token": token})
	}
}
