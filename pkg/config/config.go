package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Payments     PaymentsConfig
	Webhooks     WebhooksConfig
	Tasks        TasksConfig
	Renderer     RendererConfig
	Security     SecurityConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KUDIBOOKS_APP_ENV" required:"true"`
	Port         string `envconfig:"KUDIBOOKS_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"KUDIBOOKS_APP_PUBLIC_URL" default:"http://localhost:8080"`
	LogLevel     string `envconfig:"KUDIBOOKS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KUDIBOOKS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"KUDIBOOKS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KUDIBOOKS_DB_DSN"`
	Driver string `envconfig:"KUDIBOOKS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KUDIBOOKS_DB_HOST"`
	LegacyPort     int    `envconfig:"KUDIBOOKS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KUDIBOOKS_DB_USER"`
	LegacyPassword string `envconfig:"KUDIBOOKS_DB_PASSWORD"`
	LegacyName     string `envconfig:"KUDIBOOKS_DB_NAME"`
	LegacySSLMode  string `envconfig:"KUDIBOOKS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KUDIBOOKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KUDIBOOKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KUDIBOOKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KUDIBOOKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"KUDIBOOKS_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KUDIBOOKS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KUDIBOOKS_REDIS_ADDR"`
	Password     string        `envconfig:"KUDIBOOKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"KUDIBOOKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KUDIBOOKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KUDIBOOKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KUDIBOOKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KUDIBOOKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KUDIBOOKS_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyNamespace string        `envconfig:"KUDIBOOKS_REDIS_KEY_NAMESPACE" default:"kb"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KUDIBOOKS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KUDIBOOKS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KUDIBOOKS_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"KUDIBOOKS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"KUDIBOOKS_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"KUDIBOOKS_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"KUDIBOOKS_PUBSUB_NOTIFICATION_TOPIC" default:"kb-notifications"`
	AlertTopic        string `envconfig:"KUDIBOOKS_PUBSUB_ALERT_TOPIC"`
}

// Enabled reports whether a GCP project was configured for Pub/Sub transports.
func (p PubSubConfig) Enabled(gcp GCPConfig) bool {
	return strings.TrimSpace(gcp.ProjectID) != "" && strings.TrimSpace(p.NotificationTopic) != ""
}

// PaymentsConfig carries the platform default credentials used when a tenant has none.
type PaymentsConfig struct {
	DefaultProvider string `envconfig:"KUDIBOOKS_PAYMENTS_DEFAULT_PROVIDER" default:"paystack"`

	PaystackSecretKey string `envconfig:"KUDIBOOKS_PAYSTACK_SECRET_KEY"`
	PaystackPublicKey string `envconfig:"KUDIBOOKS_PAYSTACK_PUBLIC_KEY"`
	PaystackBaseURL   string `envconfig:"KUDIBOOKS_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`

	FlutterwaveSecretKey   string `envconfig:"KUDIBOOKS_FLUTTERWAVE_SECRET_KEY"`
	FlutterwavePublicKey   string `envconfig:"KUDIBOOKS_FLUTTERWAVE_PUBLIC_KEY"`
	FlutterwaveWebhookHash string `envconfig:"KUDIBOOKS_FLUTTERWAVE_WEBHOOK_HASH"`
	FlutterwaveBaseURL     string `envconfig:"KUDIBOOKS_FLUTTERWAVE_BASE_URL" default:"https://api.flutterwave.com/v3"`

	StripeSecretKey     string `envconfig:"KUDIBOOKS_STRIPE_SECRET_KEY"`
	StripePublicKey     string `envconfig:"KUDIBOOKS_STRIPE_PUBLIC_KEY"`
	StripeWebhookSecret string `envconfig:"KUDIBOOKS_STRIPE_WEBHOOK_SECRET"`
	StripeEnv           string `envconfig:"KUDIBOOKS_STRIPE_ENV" default:"test"`

	CallbackURL         string        `envconfig:"KUDIBOOKS_PAYMENTS_CALLBACK_URL"`
	FallbackEmailDomain string        `envconfig:"KUDIBOOKS_PAYMENTS_FALLBACK_EMAIL_DOMAIN" default:"customers.kudibooks.app"`
	RequestTimeout      time.Duration `envconfig:"KUDIBOOKS_PAYMENTS_REQUEST_TIMEOUT" default:"5s"`
	RetryMax            int           `envconfig:"KUDIBOOKS_PAYMENTS_RETRY_MAX" default:"2"`
}

// StripeEnvironment returns the normalized Stripe environment (test/live).
func (p PaymentsConfig) StripeEnvironment() string {
	env := strings.TrimSpace(strings.ToLower(p.StripeEnv))
	if env == "" {
		return "test"
	}
	return env
}

type WebhooksConfig struct {
	GuardTTL time.Duration `envconfig:"KUDIBOOKS_WEBHOOKS_GUARD_TTL" default:"72h"`
}

type TasksConfig struct {
	BatchSize      int           `envconfig:"KUDIBOOKS_TASKS_BATCH_SIZE" default:"20"`
	PollIntervalMS int           `envconfig:"KUDIBOOKS_TASKS_POLL_MS" default:"1000"`
	Concurrency    int           `envconfig:"KUDIBOOKS_TASKS_CONCURRENCY" default:"4"`
	MaxAttempts    int           `envconfig:"KUDIBOOKS_TASKS_MAX_ATTEMPTS" default:"8"`
	LeaseDuration  time.Duration `envconfig:"KUDIBOOKS_TASKS_LEASE" default:"2m"`
	Timeout        time.Duration `envconfig:"KUDIBOOKS_TASKS_TIMEOUT" default:"60s"`
	BaseBackoff    time.Duration `envconfig:"KUDIBOOKS_TASKS_BASE_BACKOFF" default:"5s"`
	MaxBackoff     time.Duration `envconfig:"KUDIBOOKS_TASKS_MAX_BACKOFF" default:"1h"`
	RenderDelay    time.Duration `envconfig:"KUDIBOOKS_TASKS_RENDER_DELAY" default:"2s"`
	MetricsAddr    string        `envconfig:"KUDIBOOKS_TASKS_METRICS_ADDR" default:":9091"`
}

type RendererConfig struct {
	BaseURL string        `envconfig:"KUDIBOOKS_RENDERER_BASE_URL"`
	APIKey  string        `envconfig:"KUDIBOOKS_RENDERER_API_KEY"`
	Timeout time.Duration `envconfig:"KUDIBOOKS_RENDERER_TIMEOUT" default:"45s"`
}

type SecurityConfig struct {
	// CredentialsKey is a base64 encoded 32 byte key used to seal tenant provider secrets.
	CredentialsKey string `envconfig:"KUDIBOOKS_CREDENTIALS_KEY" required:"true"`
}

type RateLimitConfig struct {
	TenantWindow time.Duration `envconfig:"KUDIBOOKS_RATE_LIMIT_TENANT_WINDOW" default:"1m"`
	TenantLimit  int           `envconfig:"KUDIBOOKS_RATE_LIMIT_TENANT_LIMIT" default:"120"`
}

type CronConfig struct {
	Interval           time.Duration `envconfig:"KUDIBOOKS_CRON_INTERVAL" default:"15m"`
	TaskRetentionDays  int           `envconfig:"KUDIBOOKS_CRON_TASK_RETENTION_DAYS" default:"14"`
	ReconcileAfter     time.Duration `envconfig:"KUDIBOOKS_CRON_RECONCILE_AFTER" default:"30m"`
	ReconcileBatchSize int           `envconfig:"KUDIBOOKS_CRON_RECONCILE_BATCH_SIZE" default:"100"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
