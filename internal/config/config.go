package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration, loaded from an optional YAML
// file and overridden by environment variables.
type Config struct {
	Environment string `yaml:"environment"`

	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`

	Salesforce struct {
		InstanceURL  string `yaml:"instance_url"`
		TokenURL     string `yaml:"token_url"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		APIVersion   string `yaml:"api_version"`
	} `yaml:"salesforce"`

	NetSuite struct {
		AccountID      string `yaml:"account_id"`
		BaseURL        string `yaml:"base_url"`
		ConsumerKey    string `yaml:"consumer_key"`
		ConsumerSecret string `yaml:"consumer_secret"`
		TokenID        string `yaml:"token_id"`
		TokenSecret    string `yaml:"token_secret"`
	} `yaml:"netsuite"`

	Flow struct {
		PageSize     int           `yaml:"page_size"`
		MaxPages     int           `yaml:"max_pages"`
		QueryTimeout time.Duration `yaml:"query_timeout"`
	} `yaml:"flow"`

	Ingest struct {
		BatchSize      int           `yaml:"batch_size"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		SyncInterval   time.Duration `yaml:"sync_interval"`
	} `yaml:"ingest"`

	MView struct {
		RefreshProbability float64 `yaml:"refresh_probability"`
	} `yaml:"mview"`

	RateLimit struct {
		Requests int           `yaml:"requests"`
		Window   time.Duration `yaml:"window"`
	} `yaml:"rate_limit"`

	Tracing struct {
		Enabled          bool    `yaml:"enabled"`
		ExporterEndpoint string  `yaml:"exporter_endpoint"`
		ExporterProtocol string  `yaml:"exporter_protocol"`
		SamplingRatio    float64 `yaml:"sampling_ratio"`
	} `yaml:"tracing"`
}

// Load reads BEACON_CONFIG (default config.yaml if present), then applies
// environment overrides. A missing file is not an error: everything can be
// supplied through the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	path := strings.TrimSpace(os.Getenv("BEACON_CONFIG"))
	if path == "" {
		path = "config.yaml"
	}
	if raw, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func defaults() Config {
	var cfg Config
	cfg.Environment = "development"
	cfg.HTTP.Addr = ":8080"
	cfg.Salesforce.APIVersion = "v59.0"
	cfg.Flow.PageSize = 10000
	cfg.Flow.MaxPages = 1000
	cfg.Flow.QueryTimeout = 10 * time.Second
	cfg.Ingest.BatchSize = 25
	cfg.Ingest.RequestTimeout = 5 * time.Minute
	cfg.MView.RefreshProbability = 0.05
	cfg.RateLimit.Requests = 120
	cfg.RateLimit.Window = time.Minute
	cfg.Tracing.SamplingRatio = 0.1
	return cfg
}

func applyEnv(cfg *Config) {
	setString(&cfg.Environment, "BEACON_ENVIRONMENT")
	setString(&cfg.HTTP.Addr, "BEACON_HTTP_ADDR")
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Salesforce.InstanceURL, "SALESFORCE_INSTANCE_URL")
	setString(&cfg.Salesforce.TokenURL, "SALESFORCE_TOKEN_URL")
	setString(&cfg.Salesforce.ClientID, "SALESFORCE_CLIENT_ID")
	setString(&cfg.Salesforce.ClientSecret, "SALESFORCE_CLIENT_SECRET")
	setString(&cfg.Salesforce.APIVersion, "SALESFORCE_API_VERSION")
	setString(&cfg.NetSuite.AccountID, "NETSUITE_ACCOUNT_ID")
	setString(&cfg.NetSuite.BaseURL, "NETSUITE_BASE_URL")
	setString(&cfg.NetSuite.ConsumerKey, "NETSUITE_CONSUMER_KEY")
	setString(&cfg.NetSuite.ConsumerSecret, "NETSUITE_CONSUMER_SECRET")
	setString(&cfg.NetSuite.TokenID, "NETSUITE_TOKEN_ID")
	setString(&cfg.NetSuite.TokenSecret, "NETSUITE_TOKEN_SECRET")
	setFloat(&cfg.MView.RefreshProbability, "BEACON_MVIEW_REFRESH_PROBABILITY")
	setInt(&cfg.Flow.PageSize, "BEACON_FLOW_PAGE_SIZE")
	setInt(&cfg.Flow.MaxPages, "BEACON_FLOW_MAX_PAGES")
	setInt(&cfg.Ingest.BatchSize, "BEACON_INGEST_BATCH_SIZE")
	setDuration(&cfg.Ingest.SyncInterval, "BEACON_INGEST_SYNC_INTERVAL")
	setBool(&cfg.Tracing.Enabled, "BEACON_TRACING_ENABLED")
	setString(&cfg.Tracing.ExporterEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Tracing.ExporterProtocol, "OTEL_EXPORTER_OTLP_PROTOCOL")
}

// IsProduction reports whether the service runs with production safety
// checks (test-only endpoints disabled).
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func setString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*dst = parsed
		}
	}
}

func setFloat(dst *float64, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*dst = parsed
		}
	}
}
