package config

// EnvPrefix is the prefix envconfig uses for all environment variables.
const EnvPrefix = "SOUKLY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside envconfig tags (tests,
// error messages).
const (
	EnvAppEnv   = "SOUKLY_APP_ENV"
	EnvPort     = "SOUKLY_APP_PORT"
	EnvDBDSN    = "SOUKLY_DB_DSN"
	EnvDBHost   = "SOUKLY_DB_HOST"
	EnvDBUser   = "SOUKLY_DB_USER"
	EnvDBName   = "SOUKLY_DB_NAME"
	EnvRedisURL = "SOUKLY_REDIS_URL"

	EnvJWTSecret  = "SOUKLY_JWT_SECRET"
	EnvJWTIssuer  = "SOUKLY_JWT_ISSUER"
	EnvJWTExpMins = "SOUKLY_JWT_EXPIRATION_MINUTES"

	EnvPaymobAPIKey        = "SOUKLY_PAYMOB_API_KEY"
	EnvPaymobHMACSecret    = "SOUKLY_PAYMOB_HMAC_SECRET"
	EnvPaymobIntegrationID = "SOUKLY_PAYMOB_INTEGRATION_ID"

	EnvPayoutsUsername   = "SOUKLY_PAYOUTS_USERNAME"
	EnvPayoutsPassword   = "SOUKLY_PAYOUTS_PASSWORD"
	EnvPayoutsHMACSecret = "SOUKLY_PAYOUTS_HMAC_SECRET"

	EnvPubSubOrdersTopic = "SOUKLY_PUBSUB_ORDERS_TOPIC"
	EnvGCPProjectID      = "SOUKLY_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
