package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Reporting ReportingConfig `mapstructure:"reporting"`
	Export    ExportConfig    `mapstructure:"export"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Seed      SeedConfig      `mapstructure:"seed"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port           int      `mapstructure:"port" validate:"required,min=1,max=65535"`
	FrontendURL    string   `mapstructure:"frontend_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	BodyLimit      int64    `mapstructure:"body_limit" validate:"min=1"`
	RateLimit      int      `mapstructure:"rate_limit" validate:"min=1"`
}

// StorageConfig selects the backing store
type StorageConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres mongo memory"`
}

// DatabaseConfig holds the postgres configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// MongoConfig holds the mongo configuration
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required"`
}

// ReportingConfig holds the dashboard configuration
type ReportingConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// ExportConfig holds the export configuration
type ExportConfig struct {
	TempDir string `mapstructure:"temp_dir"`
}

// InvoiceConfig holds the static issuer identity printed on every PDF
type InvoiceConfig struct {
	IssuerName    string `mapstructure:"issuer_name"`
	IssuerTagline string `mapstructure:"issuer_tagline"`
	IssuerPhone   string `mapstructure:"issuer_phone"`
	IssuerGST     string `mapstructure:"issuer_gst"`
}

// LoggingConfig holds the logger configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// SeedConfig holds the values used by the admin tooling
type SeedConfig struct {
	AccessCode string `mapstructure:"access_code"`
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// Location resolves the configured reporting time zone
func (c ReportingConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// LoadConfig loads configuration from config.yaml, .env and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional, real environment variables win
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./internal/config")

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Server.FrontendURL != "" && !lo.Contains(cfg.Server.AllowedOrigins, cfg.Server.FrontendURL) {
		cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, cfg.Server.FrontendURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags and cross-field requirements
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Reporting.Location(); err != nil {
		return fmt.Errorf("invalid reporting timezone %q: %w", c.Reporting.Timezone, err)
	}
	if c.Storage.Driver == DriverMongo && c.Mongo.URI == "" {
		return errors.New("invalid configuration: mongo.uri is required for the mongo driver")
	}
	return nil
}

// GetDefaultConfig returns the default configuration without reading any source
func GetDefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.frontend_url", "http://localhost:3000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:3002"})
	v.SetDefault("server.body_limit", 1<<20)
	v.SetDefault("server.rate_limit", 2000)

	v.SetDefault("storage.driver", DriverPostgres)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "billing_system")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("mongo.uri", "mongodb://127.0.0.1:27017")
	v.SetDefault("mongo.database", "billing_system")

	v.SetDefault("auth.jwt_secret", "dev_secret_change_me")

	v.SetDefault("reporting.timezone", "UTC")
	v.SetDefault("export.temp_dir", "")

	v.SetDefault("invoice.issuer_name", "Sand Delivery Services")
	v.SetDefault("invoice.issuer_tagline", "Professional Sand Supply Solutions")
	v.SetDefault("invoice.issuer_phone", "+91 98765 43210")
	v.SetDefault("invoice.issuer_gst", "22AAAAA0000A1Z5")

	v.SetDefault("logging.level", "info")
}

// bindLegacyEnv keeps the unprefixed variable names of existing deployments working
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("server.port", "BILLING_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.frontend_url", "BILLING_SERVER_FRONTEND_URL", "FRONTEND_URL")
	_ = v.BindEnv("auth.jwt_secret", "BILLING_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("mongo.uri", "BILLING_MONGO_URI", "MONGO_URI")
	_ = v.BindEnv("seed.access_code", "BILLING_SEED_ACCESS_CODE", "ACCESS_CODE_SEED")
}
