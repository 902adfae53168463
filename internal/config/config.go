package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName       string
	AppVersion    string
	Environment   string
	HTTPAddr      string
	AuthJWTSecret string

	// DashboardURL is the base the browser returns to after checkout and
	// calendar authorization.
	DashboardURL string
	// PublicHost is the externally reachable API host used for provider
	// webhooks such as the Twilio voice URL.
	PublicHost string

	Telemetry TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBMetricsEnabled  bool

	Redis     RedisConfig
	Stripe    StripeConfig
	Twilio    TwilioConfig
	Google    GoogleConfig
	RateLimit RateLimitConfig
}

// TelemetryConfig drives logging, tracing and metrics export.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OTLPEndpoint  string
	OTLPProtocol  string
	SamplingRatio float64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	DefaultPriceID string
	APIBase        string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	APIBase    string
}

func (c TwilioConfig) Configured() bool {
	return strings.TrimSpace(c.AccountSID) != "" && strings.TrimSpace(c.AuthToken) != ""
}

type GoogleConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURI   string
	AuthURL       string
	TokenURL      string
	EncryptionKey string
}

type RateLimitConfig struct {
	NumberSearchRate  float64
	NumberSearchBurst int
	PurchaseLockTTL   time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "receptionist"),
		AppVersion:    getenv("SERVICE_VERSION", getenv("APP_VERSION", "0.1.0")),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		DashboardURL:  strings.TrimRight(getenv("DASHBOARD_URL", "http://localhost:5173"), "/"),
		PublicHost:    strings.TrimRight(getenv("PUBLIC_HOST", "http://localhost:8080"), "/"),
		Environment:   getenv("DEPLOYMENT_ENV", getenv("ENVIRONMENT", "development")),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "receptionist"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBMetricsEnabled:  getenvBool("DATABASE_METRICS_ENABLED", false),

		Telemetry: TelemetryConfig{
			LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:   getenvBool("OTEL_ENABLED", true),
			OTLPEndpoint:  strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317"))),
			OTLPProtocol:  strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")))),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Stripe: StripeConfig{
			SecretKey:      strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret:  strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			DefaultPriceID: strings.TrimSpace(getenv("STRIPE_PRICE_ID", "")),
			APIBase:        getenv("STRIPE_API_BASE", "https://api.stripe.com"),
		},
		Twilio: TwilioConfig{
			AccountSID: strings.TrimSpace(getenv("TWILIO_ACCOUNT_SID", "")),
			AuthToken:  strings.TrimSpace(getenv("TWILIO_AUTH_TOKEN", "")),
			APIBase:    getenv("TWILIO_API_BASE", "https://api.twilio.com"),
		},
		Google: GoogleConfig{
			ClientID:      strings.TrimSpace(getenv("GOOGLE_CLIENT_ID", "")),
			ClientSecret:  strings.TrimSpace(getenv("GOOGLE_CLIENT_SECRET", "")),
			RedirectURI:   strings.TrimSpace(getenv("GOOGLE_REDIRECT_URI", "")),
			AuthURL:       getenv("GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth"),
			TokenURL:      getenv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			EncryptionKey: strings.TrimSpace(getenv("TOKEN_ENCRYPTION_KEY", "")),
		},
		RateLimit: RateLimitConfig{
			NumberSearchRate:  getenvFloat("NUMBER_SEARCH_RATE", 1),
			NumberSearchBurst: getenvInt("NUMBER_SEARCH_BURST", 10),
			PurchaseLockTTL:   time.Duration(getenvInt("NUMBER_PURCHASE_LOCK_SECONDS", 60)) * time.Second,
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewPlanCatalogHolder),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
