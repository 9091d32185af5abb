// Package config loads solarquote settings: defaults, then an optional YAML
// file, then .env, then environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"solar-estimate/db/clickhouse"
	"solar-estimate/decision/document"
	"solar-estimate/decision/estimation"
	"solar-estimate/decision/geo"
	qerrors "solar-estimate/pkg/errors"
	"solar-estimate/pkg/platform"
)

// Geocoder backends
const (
	GeocoderGoogle = "google"
	GeocoderAWS    = "aws"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config is the full application configuration.
type Config struct {
	LogLevel    string                 `yaml:"log_level"`
	Server      ServerConfig           `yaml:"server"`
	Assumptions estimation.Assumptions `yaml:"assumptions"`
	Providers   ProvidersConfig        `yaml:"providers"`
	Cache       CacheConfig            `yaml:"cache"`
	ClickHouse  ClickHouseConfig       `yaml:"clickhouse"`
	Installer   document.Installer     `yaml:"installer"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	APIKey         string        `yaml:"api_key"`
}

// ProvidersConfig configures geocoding and solar-potential adapters.
// API keys are normally supplied through the environment.
type ProvidersConfig struct {
	Geocoder          string        `yaml:"geocoder"`
	GoogleMapsAPIKey  string        `yaml:"google_maps_api_key"`
	GoogleSolarAPIKey string        `yaml:"google_solar_api_key"`
	SolarQuality      string        `yaml:"solar_quality"`
	AWSRegion         string        `yaml:"aws_region"`
	AWSPlaceIndex     string        `yaml:"aws_place_index"`
	Timeout           time.Duration `yaml:"timeout"`
	Retries           int           `yaml:"retries"`
}

// CacheConfig selects the provider response cache.
type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix"`
}

// ClickHouseConfig enables the benchmark store. When disabled the built-in
// static benchmarks are used.
type ClickHouseConfig struct {
	Enabled           bool `yaml:"enabled"`
	clickhouse.Config `yaml:",inline"`
}

// Default returns development defaults.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			RequestTimeout: 60 * time.Second,
			CORSOrigins:    []string{"*"},
		},
		Assumptions: estimation.DefaultAssumptions(),
		Providers: ProvidersConfig{
			Geocoder:     GeocoderGoogle,
			SolarQuality: "HIGH",
			AWSRegion:    "us-east-1",
			Timeout:      estimation.DefaultProviderTimeout,
			Retries:      2,
		},
		Cache: CacheConfig{
			Backend:   CacheMemory,
			TTL:       24 * time.Hour,
			RedisAddr: "localhost:6379",
			Prefix:    "solarquote:",
		},
		ClickHouse: ClickHouseConfig{Config: *clickhouse.DefaultConfig()},
		Installer: document.Installer{
			Company: "Your Solar Company",
		},
	}
}

// Load builds the configuration. path may be empty. envFiles default to
// ".env"; missing env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables already set
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = platform.GetEnv("SOLARQUOTE_LOG_LEVEL", c.LogLevel)

	c.Server.Host = platform.GetEnv("SOLARQUOTE_HOST", c.Server.Host)
	c.Server.Port = platform.GetEnvInt("SOLARQUOTE_PORT", c.Server.Port)
	c.Server.APIKey = platform.GetEnv("SOLARQUOTE_API_KEY", c.Server.APIKey)
	if origins := platform.GetEnv("SOLARQUOTE_CORS_ORIGINS", ""); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}

	c.Providers.Geocoder = platform.GetEnv("SOLARQUOTE_GEOCODER", c.Providers.Geocoder)
	c.Providers.GoogleMapsAPIKey = platform.GetEnv(geo.GeocodeKeyEnv, c.Providers.GoogleMapsAPIKey)
	c.Providers.GoogleSolarAPIKey = platform.GetEnv(geo.SolarKeyEnv, c.Providers.GoogleSolarAPIKey)
	c.Providers.AWSRegion = platform.GetEnv("AWS_REGION", c.Providers.AWSRegion)
	c.Providers.AWSPlaceIndex = platform.GetEnv("AWS_LOCATION_PLACE_INDEX", c.Providers.AWSPlaceIndex)
	c.Providers.Timeout = platform.GetEnvDuration("SOLARQUOTE_PROVIDER_TIMEOUT", c.Providers.Timeout)
	c.Providers.Retries = platform.GetEnvInt("SOLARQUOTE_PROVIDER_RETRIES", c.Providers.Retries)

	c.Cache.Backend = platform.GetEnv("SOLARQUOTE_CACHE", c.Cache.Backend)
	c.Cache.TTL = platform.GetEnvDuration("SOLARQUOTE_CACHE_TTL", c.Cache.TTL)
	c.Cache.RedisAddr = platform.GetEnv("REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = platform.GetEnv("REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisDB = platform.GetEnvInt("REDIS_DB", c.Cache.RedisDB)

	c.ClickHouse.Enabled = platform.GetEnvBool("CLICKHOUSE_ENABLED", c.ClickHouse.Enabled)
	c.ClickHouse.Host = platform.GetEnv("CLICKHOUSE_HOST", c.ClickHouse.Host)
	c.ClickHouse.Port = platform.GetEnvInt("CLICKHOUSE_PORT", c.ClickHouse.Port)
	c.ClickHouse.Database = platform.GetEnv("CLICKHOUSE_DATABASE", c.ClickHouse.Database)
	c.ClickHouse.Username = platform.GetEnv("CLICKHOUSE_USER", c.ClickHouse.Username)
	c.ClickHouse.Password = platform.GetEnv("CLICKHOUSE_PASSWORD", c.ClickHouse.Password)
	c.ClickHouse.Alias = platform.GetEnv("CLICKHOUSE_ALIAS", c.ClickHouse.Alias)

	c.Assumptions.CostPerWatt = platform.GetEnvFloat("SOLARQUOTE_COST_PER_WATT", c.Assumptions.CostPerWatt)
	c.Assumptions.FinancingRatePct = platform.GetEnvFloat("SOLARQUOTE_FINANCING_RATE_PCT", c.Assumptions.FinancingRatePct)
	c.Assumptions.LoanTermYears = platform.GetEnvInt("SOLARQUOTE_LOAN_TERM_YEARS", c.Assumptions.LoanTermYears)
	c.Assumptions.TaxCreditFraction = platform.GetEnvFloat("SOLARQUOTE_TAX_CREDIT_FRACTION", c.Assumptions.TaxCreditFraction)
	c.Assumptions.PricingBasis = estimation.PricingBasis(platform.GetEnv("SOLARQUOTE_PRICING_BASIS", string(c.Assumptions.PricingBasis)))

	c.Installer.Name = platform.GetEnv("SOLARQUOTE_INSTALLER_NAME", c.Installer.Name)
	c.Installer.Company = platform.GetEnv("SOLARQUOTE_INSTALLER_COMPANY", c.Installer.Company)
	c.Installer.Phone = platform.GetEnv("SOLARQUOTE_INSTALLER_PHONE", c.Installer.Phone)
	c.Installer.Email = platform.GetEnv("SOLARQUOTE_INSTALLER_EMAIL", c.Installer.Email)
}

// Validate rejects settings no component can run with. Missing API keys
// are not errors; see Warnings.
func (c *Config) Validate() error {
	if err := c.Assumptions.Validate(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return qerrors.NewInvalidInput("server.port", "must be within 1-65535, got %d", c.Server.Port)
	}
	switch c.Providers.Geocoder {
	case GeocoderGoogle, GeocoderAWS:
	default:
		return qerrors.NewInvalidInput("providers.geocoder", "must be %q or %q, got %q", GeocoderGoogle, GeocoderAWS, c.Providers.Geocoder)
	}
	if c.Providers.Retries < 0 {
		return qerrors.NewInvalidInput("providers.retries", "must be >= 0, got %d", c.Providers.Retries)
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		return qerrors.NewInvalidInput("cache.backend", "unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// Warnings reports missing provider credentials. Address-based sizing is
// unavailable without them; roof-area and usage sizing still work.
func (c *Config) Warnings() []*qerrors.Error {
	var warnings []*qerrors.Error
	switch c.Providers.Geocoder {
	case GeocoderAWS:
		if c.Providers.AWSPlaceIndex == "" {
			warnings = append(warnings, qerrors.NewMissingCredentials("Amazon Location", "AWS_LOCATION_PLACE_INDEX"))
		}
	default:
		if c.Providers.GoogleMapsAPIKey == "" {
			warnings = append(warnings, qerrors.NewMissingCredentials("Google Geocoding", geo.GeocodeKeyEnv))
		}
	}
	if c.Providers.GoogleSolarAPIKey == "" {
		warnings = append(warnings, qerrors.NewMissingCredentials("Google Solar", geo.SolarKeyEnv))
	}
	return warnings
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
