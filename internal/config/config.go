package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
	"github.com/riskibarqy/livescore-sync/internal/platform/resilience"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	LockBackendPostgres = "postgres"
	LockBackendRedis    = "redis"
	LockBackendMemory   = "memory"
)

// Config stores runtime configuration for the service. Field rules that span
// several keys live in the validate tags; the env tag names the variable in
// error messages.
type Config struct {
	AppEnv         string        `env:"APP_ENV" validate:"oneof=dev stage prod"`
	ServiceName    string        `env:"APP_NAME" validate:"required"`
	ServiceVersion string        `env:"APP_VERSION"`
	HTTPAddr       string        `env:"HTTP_ADDR" validate:"required"`
	ReadTimeout    time.Duration `env:"APP_READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout   time.Duration `env:"APP_WRITE_TIMEOUT" validate:"gt=0"`
	LogLevel       logging.Level `env:"LOG_LEVEL"`

	DBURL                   string `env:"DB_URL" validate:"required_unless=AppEnv dev"`
	DBDisablePreparedBinary bool   `env:"DB_DISABLE_PREPARED_BINARY_RESULT"`
	InternalJobToken        string `env:"INTERNAL_JOB_TOKEN" validate:"required_unless=AppEnv dev"`

	ScoreAPIBaseURL    string        `env:"SCORE_API_BASE_URL" validate:"required,url"`
	ScoreAPIToken      string        `env:"SCORE_API_TOKEN" validate:"required_unless=AppEnv dev"`
	ScoreAPITimeout    time.Duration `env:"SCORE_API_TIMEOUT_MS" validate:"gt=0"`
	ScoreAPIMaxRetries int           `env:"SCORE_API_MAX_RETRIES" validate:"gte=0,lte=5"`
	ScoreCircuit       resilience.CircuitBreakerConfig

	PushAPIBaseURL    string        `env:"PUSH_API_BASE_URL" validate:"required,url"`
	PushAppID         string        `env:"PUSH_APP_ID" validate:"required_unless=AppEnv dev"`
	PushAPIKey        string        `env:"PUSH_API_KEY" validate:"required_unless=AppEnv dev"`
	PushAPITimeout    time.Duration `env:"PUSH_API_TIMEOUT_MS" validate:"gt=0"`
	PushRatePerSecond float64       `env:"PUSH_RATE_PER_SECOND" validate:"gte=0"`
	PushCircuit       resilience.CircuitBreakerConfig

	PollIntervalDelay      time.Duration `env:"POLL_INTERVAL_DELAY_MS" validate:"gte=0"`
	RunMinInterval         time.Duration `env:"RUN_MIN_INTERVAL_SECONDS" validate:"gt=0"`
	LockSettleDelay        time.Duration `env:"LOCK_SETTLE_DELAY_MS" validate:"gte=0"`
	LockTolerance          time.Duration `env:"LOCK_TOLERANCE_MS" validate:"gt=0"`
	RunLockBackend         string        `env:"RUN_LOCK_BACKEND" validate:"oneof=postgres redis memory"`
	RedisURL               string        `env:"REDIS_URL" validate:"required_if=RunLockBackend redis"`
	GameweekLookahead      int           `env:"GAMEWEEK_LOOKAHEAD" validate:"gte=0,lte=5"`
	KickoffBucket          time.Duration `env:"KICKOFF_BUCKET_MINUTES" validate:"gt=0"`
	HealthCacheTTL         time.Duration `env:"HEALTH_CACHE_TTL_MINUTES" validate:"gt=0"`
	DispatchWorkers        int           `env:"DISPATCH_WORKERS" validate:"gte=1,lte=256"`
	FixtureSourceTables    []string      `env:"FIXTURE_SOURCE_TABLES" validate:"min=1,dive,required"`
	PredictionSourceTables []string      `env:"PREDICTION_SOURCE_TABLES" validate:"min=1,dive,required"`
	CacheTTL               time.Duration `env:"CACHE_TTL" validate:"gt=0"`

	QStashEnabled       bool          `env:"QSTASH_ENABLED"`
	QStashBaseURL       string        `env:"QSTASH_BASE_URL" validate:"required_if=QStashEnabled true"`
	QStashToken         string        `env:"QSTASH_TOKEN" validate:"required_if=QStashEnabled true"`
	QStashTargetBaseURL string        `env:"QSTASH_TARGET_BASE_URL" validate:"required_if=QStashEnabled true"`
	QStashRetries       int           `env:"QSTASH_RETRIES" validate:"gte=0"`
	QStashCircuit       resilience.CircuitBreakerConfig
	JobLiveInterval     time.Duration `env:"JOB_LIVE_INTERVAL" validate:"gt=0"`
	JobPreKickoffLead   time.Duration `env:"JOB_PRE_KICKOFF_LEAD" validate:"gt=0"`

	UptraceEnabled bool   `env:"UPTRACE_ENABLED"`
	UptraceDSN     string `env:"UPTRACE_DSN" validate:"required_if=UptraceEnabled true"`

	PyroscopeEnabled           bool          `env:"PYROSCOPE_ENABLED"`
	PyroscopeServerAddress     string        `env:"PYROSCOPE_SERVER_ADDRESS" validate:"required_if=PyroscopeEnabled true"`
	PyroscopeAppName           string        `env:"PYROSCOPE_APP_NAME" validate:"required_if=PyroscopeEnabled true"`
	PyroscopeAuthToken         string        `env:"PYROSCOPE_AUTH_TOKEN"`
	PyroscopeBasicAuthUser     string        `env:"PYROSCOPE_BASIC_AUTH_USER"`
	PyroscopeBasicAuthPassword string        `env:"PYROSCOPE_BASIC_AUTH_PASSWORD"`
	PyroscopeUploadRate        time.Duration `env:"PYROSCOPE_UPLOAD_RATE" validate:"gt=0"`

	PprofEnabled bool   `env:"PPROF_ENABLED"`
	PprofAddr    string `env:"PPROF_ADDR" validate:"required_if=PprofEnabled true"`
}

// UsesDatabase reports whether repositories should be backed by Postgres.
// Only dev may run on the in-memory stores.
func (c Config) UsesDatabase() bool {
	return strings.TrimSpace(c.DBURL) != ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("env"); name != "" {
			return name
		}
		return field.Name
	})
	return v
}

// Load reads the environment, optionally seeded from a .env file (ENV_FILE,
// default ".env"). Variables already set in the process win over the file.
func Load() (Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	p := &parser{}
	appEnv := strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", EnvDev)))
	logLevel, err := logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}

	lockBackend := LockBackendPostgres
	if appEnv == EnvDev && strings.TrimSpace(os.Getenv("DB_URL")) == "" {
		lockBackend = LockBackendMemory
	}

	cfg := Config{
		AppEnv:         appEnv,
		ServiceName:    strings.TrimSpace(getEnv("APP_NAME", "livescore-sync")),
		ServiceVersion: strings.TrimSpace(getEnv("APP_VERSION", "dev")),
		HTTPAddr:       strings.TrimSpace(getEnv("HTTP_ADDR", ":8080")),
		ReadTimeout:    p.duration("APP_READ_TIMEOUT", "10s"),
		WriteTimeout:   p.duration("APP_WRITE_TIMEOUT", "120s"),
		LogLevel:       logLevel,

		DBURL:                   strings.TrimSpace(getEnv("DB_URL", "")),
		DBDisablePreparedBinary: p.boolean("DB_DISABLE_PREPARED_BINARY_RESULT", false),
		InternalJobToken:        strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),

		ScoreAPIBaseURL:    strings.TrimSpace(getEnv("SCORE_API_BASE_URL", "https://api.football-data.org/v4")),
		ScoreAPIToken:      strings.TrimSpace(getEnv("SCORE_API_TOKEN", "")),
		ScoreAPITimeout:    p.millis("SCORE_API_TIMEOUT_MS", 10000),
		ScoreAPIMaxRetries: p.integer("SCORE_API_MAX_RETRIES", 0),
		ScoreCircuit:       p.circuit("SCORE_CB"),

		PushAPIBaseURL:    strings.TrimSpace(getEnv("PUSH_API_BASE_URL", "https://onesignal.com/api/v1")),
		PushAppID:         strings.TrimSpace(getEnv("PUSH_APP_ID", "")),
		PushAPIKey:        strings.TrimSpace(getEnv("PUSH_API_KEY", "")),
		PushAPITimeout:    p.millis("PUSH_API_TIMEOUT_MS", 10000),
		PushRatePerSecond: p.float("PUSH_RATE_PER_SECOND", 10),
		PushCircuit:       p.circuit("PUSH_CB"),

		PollIntervalDelay:      p.millis("POLL_INTERVAL_DELAY_MS", 6000),
		RunMinInterval:         time.Duration(p.integer("RUN_MIN_INTERVAL_SECONDS", 50)) * time.Second,
		LockSettleDelay:        p.millis("LOCK_SETTLE_DELAY_MS", 500),
		LockTolerance:          p.millis("LOCK_TOLERANCE_MS", 50),
		RunLockBackend:         strings.ToLower(strings.TrimSpace(getEnv("RUN_LOCK_BACKEND", lockBackend))),
		RedisURL:               strings.TrimSpace(getEnv("REDIS_URL", "")),
		GameweekLookahead:      p.integer("GAMEWEEK_LOOKAHEAD", 1),
		KickoffBucket:          time.Duration(p.integer("KICKOFF_BUCKET_MINUTES", 15)) * time.Minute,
		HealthCacheTTL:         time.Duration(p.integer("HEALTH_CACHE_TTL_MINUTES", 60)) * time.Minute,
		DispatchWorkers:        p.integer("DISPATCH_WORKERS", 8),
		FixtureSourceTables:    splitCSV(getEnv("FIXTURE_SOURCE_TABLES", "fixtures")),
		PredictionSourceTables: splitCSV(getEnv("PREDICTION_SOURCE_TABLES", "predictions")),
		CacheTTL:               p.duration("CACHE_TTL", "60s"),

		QStashEnabled:       p.boolean("QSTASH_ENABLED", false),
		QStashBaseURL:       strings.TrimSpace(getEnv("QSTASH_BASE_URL", "https://qstash.upstash.io")),
		QStashToken:         strings.TrimSpace(getEnv("QSTASH_TOKEN", "")),
		QStashTargetBaseURL: strings.TrimSpace(getEnv("QSTASH_TARGET_BASE_URL", "")),
		QStashRetries:       p.integer("QSTASH_RETRIES", 1),
		QStashCircuit:       p.circuit("QSTASH_CB"),
		JobLiveInterval:     p.duration("JOB_LIVE_INTERVAL", "1m"),
		JobPreKickoffLead:   p.duration("JOB_PRE_KICKOFF_LEAD", "5m"),

		UptraceEnabled: p.boolean("UPTRACE_ENABLED", false),
		UptraceDSN:     strings.TrimSpace(getEnv("UPTRACE_DSN", "")),

		PyroscopeEnabled:           p.boolean("PYROSCOPE_ENABLED", false),
		PyroscopeServerAddress:     strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        p.duration("PYROSCOPE_UPLOAD_RATE", "15s"),

		PprofEnabled: p.boolean("PPROF_ENABLED", false),
		PprofAddr:    strings.TrimSpace(getEnv("PPROF_ADDR", ":6060")),
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}

	if p.err != nil {
		return Config{}, p.err
	}
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	first := fieldErrs[0]
	switch first.Tag() {
	case "required_if":
		return fmt.Errorf("%s is required when %s", first.Field(), describeCondition(first.Param()))
	case "required_unless":
		return fmt.Errorf("%s is required when APP_ENV is not dev", first.Field())
	case "oneof":
		return fmt.Errorf("invalid %s %q: valid values are %s", first.Field(), first.Value(), strings.ReplaceAll(first.Param(), " ", ", "))
	case "required", "min":
		return fmt.Errorf("%s cannot be empty", first.Field())
	default:
		if first.Param() != "" {
			return fmt.Errorf("%s must satisfy %s=%s (got %v)", first.Field(), first.Tag(), first.Param(), first.Value())
		}
		return fmt.Errorf("%s must satisfy %s (got %v)", first.Field(), first.Tag(), first.Value())
	}
}

var conditionEnvNames = map[string]string{
	"QStashEnabled":    "QSTASH_ENABLED",
	"UptraceEnabled":   "UPTRACE_ENABLED",
	"PyroscopeEnabled": "PYROSCOPE_ENABLED",
	"PprofEnabled":     "PPROF_ENABLED",
	"RunLockBackend":   "RUN_LOCK_BACKEND",
}

func describeCondition(param string) string {
	field, value, _ := strings.Cut(param, " ")
	if name, ok := conditionEnvNames[field]; ok {
		field = name
	}
	return field + "=" + value
}

func loadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parser records the first parse failure so Load reads like a flat list of
// keys.
type parser struct {
	err error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
	}
}

func (p *parser) boolean(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return v
}

func (p *parser) integer(key string, fallback int) int {
	v, err := getEnvAsInt(key, fallback)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return v
}

func (p *parser) float(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return v
}

func (p *parser) duration(key, fallback string) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(getEnv(key, fallback)))
	if err != nil {
		p.fail(key, err)
		return 0
	}
	return v
}

func (p *parser) millis(key string, fallback int) time.Duration {
	return time.Duration(p.integer(key, fallback)) * time.Millisecond
}

// circuit reads <prefix>_ENABLED, _FAILURE_COUNT, _OPEN_TIMEOUT and
// _HALF_OPEN_MAX_REQ.
func (p *parser) circuit(prefix string) resilience.CircuitBreakerConfig {
	defaults := resilience.DefaultCircuitBreakerConfig()
	cfg := resilience.CircuitBreakerConfig{
		Enabled:          p.boolean(prefix+"_ENABLED", defaults.Enabled),
		FailureThreshold: p.integer(prefix+"_FAILURE_COUNT", defaults.FailureThreshold),
		OpenTimeout:      p.duration(prefix+"_OPEN_TIMEOUT", defaults.OpenTimeout.String()),
		HalfOpenMaxReq:   p.integer(prefix+"_HALF_OPEN_MAX_REQ", defaults.HalfOpenMaxReq),
	}
	if cfg.FailureThreshold < 1 {
		p.fail(prefix+"_FAILURE_COUNT", fmt.Errorf("must be >= 1"))
	}
	if cfg.OpenTimeout <= 0 {
		p.fail(prefix+"_OPEN_TIMEOUT", fmt.Errorf("must be > 0"))
	}
	if cfg.HalfOpenMaxReq < 1 {
		p.fail(prefix+"_HALF_OPEN_MAX_REQ", fmt.Errorf("must be >= 1"))
	}
	return cfg
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	for _, item := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(value), "\"'")
		}
	}
	return ""
}
