package config

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config is the fully resolved application configuration.
type Config struct {
	Server       ServerConfig
	Aggregator   AggregatorConfig
	Engine       EngineConfig
	Institutions *PolicyTable
}

type ServerConfig struct {
	Port string
}

// AggregatorConfig controls the upstream transaction/liability API client.
type AggregatorConfig struct {
	BaseURL         string
	ClientID        string
	Secret          string
	Timeout         time.Duration
	RequestInterval time.Duration
	MaxAttempts     int
	BackoffBase     time.Duration
}

// EngineConfig controls cycle computation and the recompute workers.
type EngineConfig struct {
	PreviewLookbackMonths  int
	BackfillLookbackMonths int
	OpenDateBufferDays     int
	PaymentPolicy          string
	Workers                int
	QueueSize              int
	ScheduleInterval       time.Duration
	ReportTTL              time.Duration
}

var envBindings = map[string]string{
	"server.port":                     "PORT",
	"database.host":                   "DATABASE_HOST",
	"database.port":                   "DATABASE_PORT",
	"database.user":                   "DATABASE_USER",
	"database.password":               "DATABASE_PASSWORD",
	"database.name":                   "DATABASE_NAME",
	"database.ssl_mode":               "DATABASE_SSL_MODE",
	"redis.host":                      "REDIS_HOST",
	"redis.port":                      "REDIS_PORT",
	"redis.password":                  "REDIS_PASSWORD",
	"redis.db":                        "REDIS_DB",
	"aggregator.base_url":             "AGGREGATOR_BASE_URL",
	"aggregator.client_id":            "AGGREGATOR_CLIENT_ID",
	"aggregator.secret":               "AGGREGATOR_SECRET",
	"aggregator.timeout":              "AGGREGATOR_TIMEOUT",
	"aggregator.request_interval":     "AGGREGATOR_REQUEST_INTERVAL",
	"aggregator.max_attempts":         "AGGREGATOR_MAX_ATTEMPTS",
	"aggregator.backoff_base":         "AGGREGATOR_BACKOFF_BASE",
	"engine.preview_lookback_months":  "ENGINE_PREVIEW_LOOKBACK_MONTHS",
	"engine.backfill_lookback_months": "ENGINE_BACKFILL_LOOKBACK_MONTHS",
	"engine.open_date_buffer_days":    "ENGINE_OPEN_DATE_BUFFER_DAYS",
	"engine.payment_policy":           "ENGINE_PAYMENT_POLICY",
	"engine.workers":                  "ENGINE_WORKERS",
	"engine.queue_size":               "ENGINE_QUEUE_SIZE",
	"engine.schedule_interval":        "ENGINE_SCHEDULE_INTERVAL",
	"engine.report_ttl":               "ENGINE_REPORT_TTL",
}

// Init points viper at the config file and environment. A missing file is
// not an error; defaults and env vars still apply.
func Init(v *viper.Viper, configFile string, log zerolog.Logger) {
	if configFile == "" {
		configFile = ".env"
	}
	v.SetConfigFile(configFile)
	v.AutomaticEnv()

	for key, env := range envBindings {
		v.BindEnv(key, env)
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Str("file", configFile).Msg("Config file not found, using defaults")
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")

	v.SetDefault("aggregator.base_url", "http://localhost:9090")
	v.SetDefault("aggregator.timeout", 30*time.Second)
	v.SetDefault("aggregator.request_interval", 500*time.Millisecond)
	v.SetDefault("aggregator.max_attempts", 3)
	v.SetDefault("aggregator.backoff_base", 2*time.Second)

	v.SetDefault("engine.preview_lookback_months", 3)
	v.SetDefault("engine.backfill_lookback_months", 12)
	v.SetDefault("engine.open_date_buffer_days", 7)
	v.SetDefault("engine.payment_policy", "description")
	v.SetDefault("engine.workers", 4)
	v.SetDefault("engine.queue_size", 256)
	v.SetDefault("engine.schedule_interval", 6*time.Hour)
	v.SetDefault("engine.report_ttl", 24*time.Hour)
}

// Load resolves the application configuration from an initialised viper.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	engine := EngineConfig{
		PreviewLookbackMonths:  v.GetInt("engine.preview_lookback_months"),
		BackfillLookbackMonths: v.GetInt("engine.backfill_lookback_months"),
		OpenDateBufferDays:     v.GetInt("engine.open_date_buffer_days"),
		PaymentPolicy:          v.GetString("engine.payment_policy"),
		Workers:                v.GetInt("engine.workers"),
		QueueSize:              v.GetInt("engine.queue_size"),
		ScheduleInterval:       v.GetDuration("engine.schedule_interval"),
		ReportTTL:              v.GetDuration("engine.report_ttl"),
	}
	agg := AggregatorConfig{
		BaseURL:         v.GetString("aggregator.base_url"),
		ClientID:        v.GetString("aggregator.client_id"),
		Secret:          v.GetString("aggregator.secret"),
		Timeout:         v.GetDuration("aggregator.timeout"),
		RequestInterval: v.GetDuration("aggregator.request_interval"),
		MaxAttempts:     v.GetInt("aggregator.max_attempts"),
		BackoffBase:     v.GetDuration("aggregator.backoff_base"),
	}

	defaults := Policy{
		PreviewLookbackMonths:  engine.PreviewLookbackMonths,
		BackfillLookbackMonths: engine.BackfillLookbackMonths,
		BackoffBase:            agg.BackoffBase,
		RequestWindowDays:      DefaultRequestWindowDays,
	}
	table, err := LoadPolicyTable(v, defaults)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:       ServerConfig{Port: v.GetString("server.port")},
		Aggregator:   agg,
		Engine:       engine,
		Institutions: table,
	}, nil
}
