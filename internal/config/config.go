package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/mollie-recurring/internal/mollie"
)

// DefaultMollieBaseURL is the Mollie v2 REST endpoint.
const DefaultMollieBaseURL = "https://api.mollie.com/v2"

// Config holds application configuration loaded from the environment.
type Config struct {
	// NodeEnv is NODE_ENV verbatim (trimmed). It alone selects the Mollie
	// credential tier.
	NodeEnv string
	// AppEnv labels logs and traces: NODE_ENV, else APP_ENV, else "development".
	AppEnv string
	Port   string

	MollieBaseURL     string
	MollieLiveAPIKey  string
	MollieTestAPIKey  string
	MollieTimeout     time.Duration
	CircuitMinReq     int
	CircuitFailRatio  float64
	CircuitOpenFor    time.Duration
	MandatePollWait   time.Duration
	MandatePollBase   time.Duration
	MandatePollJitter float64

	SubscriptionConcurrency int
	Demo                    Demo

	RedisURL           string
	DemoRateLimitMax   int
	DemoRateLimitWin   time.Duration
	WebhookMaxBody     int64
	CORSAllowedOrigins []string
	SecurityHeaders    bool
	HSTSMaxAge         int
	ReadyCheckTimeout  time.Duration

	LogFormat        string
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	TracingSampling  float64
	PprofEnabled     bool
	PprofUser        string
	PprofPass        string
	ShutdownTimeout  time.Duration
}

// Demo carries the fixed inputs used by the recurring demo flow on GET /.
type Demo struct {
	CustomerName           string
	CustomerEmail          string
	CustomerLocale         string
	CustomerMetadata       map[string]any
	Currency               string
	Value                  string
	Description            string
	RedirectURL            string
	SubscriptionWebhookURL string
	SubscriptionInterval   string
	SubscriptionTimes      int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	nodeEnv := strings.TrimSpace(k.String("NODE_ENV"))
	appEnv := nodeEnv
	if appEnv == "" {
		appEnv = valueOrDefault(k.String("APP_ENV"), "development")
	}

	cfg := &Config{
		NodeEnv:           nodeEnv,
		AppEnv:            appEnv,
		Port:              valueOrDefault(k.String("PORT"), "4000"),
		MollieBaseURL:     strings.TrimRight(valueOrDefault(k.String("MOLLIE_BASE_URL"), DefaultMollieBaseURL), "/"),
		MollieLiveAPIKey:  strings.TrimSpace(k.String("LIVE_MOLLIE_API_KEY")),
		MollieTestAPIKey:  strings.TrimSpace(k.String("TEST_MOLLIE_API_KEY")),
		MollieTimeout:     parseDuration(k.String("MOLLIE_TIMEOUT"), "15s"),
		CircuitMinReq:     parseInt(k.String("CIRCUIT_MOLLIE_MIN_REQUESTS"), 5),
		CircuitFailRatio:  parseFloat(k.String("CIRCUIT_MOLLIE_FAILURE_RATIO"), 0.5),
		CircuitOpenFor:    parseDuration(k.String("CIRCUIT_MOLLIE_OPEN_FOR"), "30s"),
		MandatePollWait:   parseDuration(k.String("MANDATE_POLL_TIMEOUT"), "40s"),
		MandatePollBase:   parseDuration(k.String("MANDATE_POLL_INTERVAL"), "2s"),
		MandatePollJitter: parseFloat(k.String("MANDATE_POLL_JITTER"), 0.2),

		SubscriptionConcurrency: parseInt(k.String("SUBSCRIPTION_CONCURRENCY"), 4),
		Demo: Demo{
			CustomerName:           valueOrDefault(k.String("DEMO_CUSTOMER_NAME"), "John Doe"),
			CustomerEmail:          strings.TrimSpace(k.String("DEMO_CUSTOMER_EMAIL")),
			CustomerLocale:         strings.TrimSpace(k.String("DEMO_CUSTOMER_LOCALE")),
			CustomerMetadata:       map[string]any{"foo": "bar"},
			Currency:               valueOrDefault(k.String("DEMO_CURRENCY"), "EUR"),
			Value:                  valueOrDefault(k.String("DEMO_AMOUNT"), "10.00"),
			Description:            valueOrDefault(k.String("DEMO_DESCRIPTION"), "Test payment"),
			RedirectURL:            valueOrDefault(k.String("DEMO_REDIRECT_URL"), "https://app.goomza.co/"),
			SubscriptionWebhookURL: strings.TrimSpace(k.String("DEMO_WEBHOOK_URL")),
			SubscriptionInterval:   valueOrDefault(k.String("DEMO_SUBSCRIPTION_INTERVAL"), "3 months"),
			SubscriptionTimes:      parseInt(k.String("DEMO_SUBSCRIPTION_TIMES"), 4),
		},

		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		DemoRateLimitMax:   parseInt(k.String("DEMO_RATE_LIMIT_MAX"), 5),
		DemoRateLimitWin:   parseDuration(k.String("DEMO_RATE_LIMIT_WINDOW"), "1m"),
		WebhookMaxBody:     int64(parseInt(k.String("WEBHOOK_MAX_BODY_BYTES"), 64<<10)),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		SecurityHeaders:    parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
		HSTSMaxAge:         parseInt(k.String("SECURITY_HSTS_MAX_AGE"), 0),
		ReadyCheckTimeout:  parseDuration(k.String("HEALTH_READY_TIMEOUT"), "300ms"),

		LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsEnabled:   parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "mollie"),
		MetricsBuckets:   strings.TrimSpace(k.String("OBS_METRICS_BUCKETS_MS")),
		TracingEnabled:   parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
		TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampling:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		PprofEnabled:     parseBoolDefault(k.String("OBS_ENABLE_PPROF"), false),
		PprofUser:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
		PprofPass:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
		ShutdownTimeout:  parseDuration(k.String("SHUTDOWN_TIMEOUT"), "10s"),
	}

	if cfg.Demo.SubscriptionWebhookURL == "" {
		cfg.Demo.SubscriptionWebhookURL = "https://15a3-41-212-57-56.ngrok-free.app/api/webhook"
	}
	if cfg.SubscriptionConcurrency <= 0 {
		cfg.SubscriptionConcurrency = 1
	}

	return cfg, nil
}

// IsProduction reports whether the live credential tier is selected, which
// happens only for NODE_ENV=production. APP_ENV never affects it.
func (c *Config) IsProduction() bool {
	return c.NodeEnv == "production"
}

// MollieCredentials returns the key pair with the tier selector set from NODE_ENV.
func (c *Config) MollieCredentials() mollie.Credentials {
	return mollie.Credentials{
		Environment: c.NodeEnv,
		LiveKey:     c.MollieLiveAPIKey,
		TestKey:     c.MollieTestAPIKey,
	}
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "4000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
