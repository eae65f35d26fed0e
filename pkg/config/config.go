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
	Checkout     CheckoutConfig
	Paymob       PaymobConfig
	Payouts      PayoutsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Eventing     EventingConfig
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
	Env          string `envconfig:"SOUKLY_APP_ENV" required:"true"`
	Port         string `envconfig:"SOUKLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOUKLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOUKLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SOUKLY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SOUKLY_DB_DSN"`
	Driver string `envconfig:"SOUKLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SOUKLY_DB_HOST"`
	LegacyPort     int    `envconfig:"SOUKLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SOUKLY_DB_USER"`
	LegacyPassword string `envconfig:"SOUKLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"SOUKLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"SOUKLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOUKLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOUKLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOUKLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOUKLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOUKLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOUKLY_REDIS_ADDR"`
	Password     string        `envconfig:"SOUKLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOUKLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOUKLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOUKLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOUKLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOUKLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOUKLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SOUKLY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SOUKLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SOUKLY_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SOUKLY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SOUKLY_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig tunes order building. ShippingFlatRate is a decimal string
// in the order currency.
type CheckoutConfig struct {
	ShippingFlatRate          string `envconfig:"SOUKLY_CHECKOUT_SHIPPING_FLAT_RATE" default:"50.00"`
	FirstOrderDiscountPercent int    `envconfig:"SOUKLY_CHECKOUT_FIRST_ORDER_DISCOUNT_PERCENT" default:"10"`
	MaxQtyPerLine             int    `envconfig:"SOUKLY_CHECKOUT_MAX_QTY_PER_LINE" default:"20"`
	DefaultCurrency           string `envconfig:"SOUKLY_CHECKOUT_DEFAULT_CURRENCY" default:"EGP"`
}

// PaymobConfig holds the card gateway credentials. The HMAC secret verifies
// the x-signature on transaction webhooks.
type PaymobConfig struct {
	BaseURL       string        `envconfig:"SOUKLY_PAYMOB_BASE_URL" default:"https://accept.paymob.com/api"`
	APIKey        string        `envconfig:"SOUKLY_PAYMOB_API_KEY"`
	HMACSecret    string        `envconfig:"SOUKLY_PAYMOB_HMAC_SECRET"`
	IntegrationID int           `envconfig:"SOUKLY_PAYMOB_INTEGRATION_ID"`
	IFrameID      string        `envconfig:"SOUKLY_PAYMOB_IFRAME_ID"`
	HTTPTimeout   time.Duration `envconfig:"SOUKLY_PAYMOB_HTTP_TIMEOUT" default:"15s"`
	SessionExpiry time.Duration `envconfig:"SOUKLY_PAYMOB_SESSION_EXPIRY" default:"1h"`
}

// PayoutsConfig drives vendor payout scheduling and dispatch. The disbursement
// API uses its own credentials, separate from the acceptance gateway.
type PayoutsConfig struct {
	BaseURL      string        `envconfig:"SOUKLY_PAYOUTS_BASE_URL" default:"https://payouts.paymobsolutions.com/api"`
	ClientID     string        `envconfig:"SOUKLY_PAYOUTS_CLIENT_ID"`
	ClientSecret string        `envconfig:"SOUKLY_PAYOUTS_CLIENT_SECRET"`
	Username     string        `envconfig:"SOUKLY_PAYOUTS_USERNAME"`
	Password     string        `envconfig:"SOUKLY_PAYOUTS_PASSWORD"`
	HMACSecret   string        `envconfig:"SOUKLY_PAYOUTS_HMAC_SECRET"`
	HTTPTimeout  time.Duration `envconfig:"SOUKLY_PAYOUTS_HTTP_TIMEOUT" default:"15s"`

	// DefaultCommissionRate is the percentage applied when a vendor has no
	// configured rate, as a decimal string.
	DefaultCommissionRate string `envconfig:"SOUKLY_PAYOUT_DEFAULT_COMMISSION_RATE" default:"10"`

	HoldPeriod   time.Duration `envconfig:"SOUKLY_PAYOUT_HOLD_PERIOD" default:"168h"`
	RetryBackoff time.Duration `envconfig:"SOUKLY_PAYOUT_RETRY_BACKOFF" default:"60m"`
	MaxAttempts  int           `envconfig:"SOUKLY_PAYOUT_MAX_ATTEMPTS" default:"10"`
	BatchSize    int           `envconfig:"SOUKLY_PAYOUT_DISPATCH_BATCH_SIZE" default:"25"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SOUKLY_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SOUKLY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SOUKLY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"SOUKLY_PUBSUB_ORDERS_TOPIC" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SOUKLY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SOUKLY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SOUKLY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	LockTTL               time.Duration `envconfig:"SOUKLY_CRON_LOCK_TTL" default:"5m"`
	PayoutDispatchEvery   time.Duration `envconfig:"SOUKLY_CRON_PAYOUT_DISPATCH_EVERY" default:"5m"`
	PendingOrderTTL       time.Duration `envconfig:"SOUKLY_CRON_PENDING_ORDER_TTL" default:"24h"`
	PendingOrderSweep     time.Duration `envconfig:"SOUKLY_CRON_PENDING_ORDER_SWEEP_EVERY" default:"15m"`
	WebhookLogRetention   time.Duration `envconfig:"SOUKLY_CRON_WEBHOOK_LOG_RETENTION" default:"720h"`
	WebhookRetentionEvery time.Duration `envconfig:"SOUKLY_CRON_WEBHOOK_RETENTION_EVERY" default:"24h"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SOUKLY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
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
