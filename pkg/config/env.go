package config

const (
	EnvPrefix = "KUDIBOOKS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "KUDIBOOKS_APP_ENV"
	EnvPort           = "KUDIBOOKS_APP_PORT"
	EnvDBDSN          = "KUDIBOOKS_DB_DSN"
	EnvDBHost         = "KUDIBOOKS_DB_HOST"
	EnvDBUser         = "KUDIBOOKS_DB_USER"
	EnvDBName         = "KUDIBOOKS_DB_NAME"
	EnvDBPassword     = "KUDIBOOKS_DB_PASSWORD"
	EnvRedisURL       = "KUDIBOOKS_REDIS_URL"
	EnvJWTSecret      = "KUDIBOOKS_JWT_SECRET"
	EnvJWTIssuer      = "KUDIBOOKS_JWT_ISSUER"
	EnvJWTExpMins     = "KUDIBOOKS_JWT_EXPIRATION_MINUTES"
	EnvCredentialsKey = "KUDIBOOKS_CREDENTIALS_KEY"
	EnvPaystackSecret = "KUDIBOOKS_PAYSTACK_SECRET_KEY"
	EnvTasksBatchSize = "KUDIBOOKS_TASKS_BATCH_SIZE"
	EnvTasksLease     = "KUDIBOOKS_TASKS_LEASE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
