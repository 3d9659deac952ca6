package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// TrackingConfig holds the decisioning and reconstruction thresholds.
type TrackingConfig struct {
	GeofenceRadiusM  float64 `mapstructure:"geofence_radius_m"`
	StopDistanceM    float64 `mapstructure:"stop_distance_m"`
	StopMinMinutes   float64 `mapstructure:"stop_min_minutes"`
	IdleThresholdMin float64 `mapstructure:"idle_threshold_min"`
	OfflineAfterSec  int     `mapstructure:"offline_after_sec"`
	MinMovementM     float64 `mapstructure:"min_movement_m"`
	MaxSampleAgeSec  int     `mapstructure:"max_sample_age_sec"`
	SampleTimeoutSec int     `mapstructure:"sample_timeout_sec"`
}

type GeocoderConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fieldtrace")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "fieldtrace")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("tracking.geofence_radius_m", 200.0)
	v.SetDefault("tracking.stop_distance_m", 20.0)
	v.SetDefault("tracking.stop_min_minutes", 20.0)
	v.SetDefault("tracking.idle_threshold_min", 20.0)
	v.SetDefault("tracking.offline_after_sec", 300)
	v.SetDefault("tracking.min_movement_m", 10.0)
	v.SetDefault("tracking.max_sample_age_sec", 30)
	v.SetDefault("tracking.sample_timeout_sec", 10)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "fieldtrace/1.0")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "fieldtrace-idle-alerts")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: FIELDTRACE_DATABASE_HOST -> database.host
	v.SetEnvPrefix("FIELDTRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Tracking.GeofenceRadiusM <= 0 {
		errs = append(errs, "tracking.geofence_radius_m must be positive")
	}
	if c.Tracking.StopDistanceM <= 0 {
		errs = append(errs, "tracking.stop_distance_m must be positive")
	}
	if c.Tracking.StopMinMinutes <= 0 {
		errs = append(errs, "tracking.stop_min_minutes must be positive")
	}
	if c.Tracking.IdleThresholdMin <= 0 {
		errs = append(errs, "tracking.idle_threshold_min must be positive")
	}
	if c.Tracking.OfflineAfterSec <= 0 {
		errs = append(errs, "tracking.offline_after_sec must be positive")
	}
	if c.Geocoder.BaseURL == "" {
		errs = append(errs, "geocoder.base_url is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
