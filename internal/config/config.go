package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"hotelbook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App             AppConfig             `yaml:"app"`
	Database        DatabaseConfig        `yaml:"database"`
	Redis           RedisConfig           `yaml:"redis"`
	Backup          BackupConfig          `yaml:"backup"`
	Monitoring      MonitoringConfig      `yaml:"monitoring"`
	Logging         LoggingConfig         `yaml:"logging"`
	API             APIConfig             `yaml:"api"`
	Availability    AvailabilityConfig    `yaml:"availability"`
	Recommendations RecommendationsConfig `yaml:"recommendations"`
	Worker          WorkerConfig          `yaml:"worker"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	// UserHeader carries the caller identity set by the upstream gateway.
	UserHeader string `yaml:"user_header"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	StoragePath   string        `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type AvailabilityConfig struct {
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

type RecommendationsConfig struct {
	MLBaseURL          string               `yaml:"ml_base_url"`
	MLAPIKey           string               `yaml:"ml_api_key"`
	MLTimeout          time.Duration        `yaml:"ml_timeout"`
	StepTimeout        time.Duration        `yaml:"step_timeout"`
	CacheTTL           time.Duration        `yaml:"cache_ttl"`
	DefaultResultCount int                  `yaml:"default_result_count"`
	CircuitBreaker     CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
}

type WorkerConfig struct {
	QueueSize  int           `yaml:"queue_size"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен; переменные могут прийти из окружения
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Подставляем переменные окружения до разбора YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Recommendations.DefaultResultCount > models.MaxResultCount {
		return fmt.Errorf("default_result_count must be at most %d", models.MaxResultCount)
	}
	if c.API.GRPC.TLS.Enabled && (c.API.GRPC.TLS.CertFile == "" || c.API.GRPC.TLS.KeyFile == "") {
		return errors.New("grpc tls requires cert_file and key_file")
	}
	for _, k := range c.API.Auth.APIKeys {
		if k.Key == "" {
			return fmt.Errorf("api key %q has an empty key", k.Name)
		}
	}
	return nil
}

// ValidateResources checks a seed catalog for missing or duplicate ids and
// impossible capacities.
func ValidateResources(resources []models.Resource) error {
	ids := make(map[string]bool)
	for _, res := range resources {
		if res.ID == "" {
			return fmt.Errorf("resource '%s' has an empty id", res.Name)
		}
		if ids[res.ID] {
			return fmt.Errorf("duplicate resource id found: %s", res.ID)
		}
		ids[res.ID] = true

		if res.Kind != models.KindRoom && res.Kind != models.KindTable {
			return fmt.Errorf("resource %s has unknown kind %q", res.ID, res.Kind)
		}
		if res.Capacity < 1 {
			return fmt.Errorf("resource %s must have capacity >= 1", res.ID)
		}
		if res.AverageRating != nil && (*res.AverageRating < 0 || *res.AverageRating > 5) {
			return fmt.Errorf("resource %s rating must be within 0..5", res.ID)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "hotelbook"
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.API.UserHeader == "" {
		c.API.UserHeader = "x-user-id"
	}

	if c.Availability.FetchTimeout == 0 {
		c.Availability.FetchTimeout = 3 * time.Second
	}

	rc := &c.Recommendations
	if rc.MLTimeout == 0 {
		rc.MLTimeout = 10 * time.Second
	}
	if rc.StepTimeout == 0 {
		rc.StepTimeout = 5 * time.Second
	}
	if rc.CacheTTL == 0 {
		rc.CacheTTL = models.RecommendationCacheTTL
	}
	if rc.DefaultResultCount == 0 {
		rc.DefaultResultCount = models.DefaultResultCount
	}
	if rc.CircuitBreaker.MaxRequests == 0 {
		rc.CircuitBreaker.MaxRequests = 1
	}
	if rc.CircuitBreaker.Interval == 0 {
		rc.CircuitBreaker.Interval = time.Minute
	}
	if rc.CircuitBreaker.Timeout == 0 {
		rc.CircuitBreaker.Timeout = 30 * time.Second
	}
	if rc.CircuitBreaker.ConsecutiveFailures == 0 {
		rc.CircuitBreaker.ConsecutiveFailures = 5
	}

	if c.Worker.QueueSize == 0 {
		c.Worker.QueueSize = 500
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 3
	}
	if c.Worker.RetryDelay == 0 {
		c.Worker.RetryDelay = 500 * time.Millisecond
	}

	if c.Backup.Enabled && c.Backup.Interval == 0 {
		c.Backup.Interval = 24 * time.Hour
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 7
	}
}
