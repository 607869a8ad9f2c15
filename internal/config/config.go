package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	MQTT     MQTTConfig
	Influx   InfluxConfig
	Weather  WeatherConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type JWTConfig struct {
	Secret      string
	Issuer      string
	ExpiryHours int
}

// MQTTConfig configures the sensor reading ingestor. An empty BrokerURL
// disables ingestion.
type MQTTConfig struct {
	BrokerURL      string
	ClientID       string
	Topic          string
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

// InfluxConfig configures the telemetry writer. An empty URL disables it.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// WeatherConfig configures the external forecast provider.
type WeatherConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxFailures int
	OpenTimeout time.Duration
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is merged in first when
// present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "cropadvisor"),
			Password: getEnv("DB_PASSWORD", "cropadvisor_dev_password"),
			DBName:   getEnv("DB_NAME", "cropadvisor"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("DB_MAX_CONNS", 20),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Issuer:      getEnv("JWT_ISSUER", "crop-advisor"),
			ExpiryHours: getIntEnv("JWT_EXPIRY_HOURS", 24),
		},
		MQTT: MQTTConfig{
			BrokerURL:      getEnv("MQTT_BROKER_URL", ""),
			ClientID:       getEnv("MQTT_CLIENT_ID", "crop-advisor-ingest"),
			Topic:          getEnv("MQTT_TOPIC", "sensors/+/readings"),
			Username:       getEnv("MQTT_USERNAME", ""),
			Password:       getEnv("MQTT_PASSWORD", ""),
			ConnectTimeout: getDurationEnv("MQTT_CONNECT_TIMEOUT", 10*time.Second),
		},
		Influx: InfluxConfig{
			URL:    getEnv("INFLUX_URL", ""),
			Token:  getEnv("INFLUX_TOKEN", ""),
			Org:    getEnv("INFLUX_ORG", "agrisense"),
			Bucket: getEnv("INFLUX_BUCKET", "soil_telemetry"),
		},
		Weather: WeatherConfig{
			BaseURL:     getEnv("WEATHER_BASE_URL", "https://api.open-meteo.com/v1"),
			APIKey:      getEnv("WEATHER_API_KEY", ""),
			Timeout:     getDurationEnv("WEATHER_TIMEOUT", 10*time.Second),
			MaxFailures: getIntEnv("WEATHER_MAX_FAILURES", 5),
			OpenTimeout: getDurationEnv("WEATHER_OPEN_TIMEOUT", 60*time.Second),
		},
	}
}

// DSN returns the Postgres connection string.
func (d *DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
