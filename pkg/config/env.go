package config

const EnvPrefix = "CELLARBOOK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "CELLARBOOK_APP_ENV"
	EnvPort     = "CELLARBOOK_APP_PORT"
	EnvBaseURL  = "CELLARBOOK_APP_BASE_URL"
	EnvLogLevel = "CELLARBOOK_LOG_LEVEL"

	EnvDBDSN    = "CELLARBOOK_DB_DSN"
	EnvDBDriver = "CELLARBOOK_DB_DRIVER"
	EnvDBHost   = "CELLARBOOK_DB_HOST"
	EnvDBUser   = "CELLARBOOK_DB_USER"
	EnvDBName   = "CELLARBOOK_DB_NAME"

	EnvRedisURL = "CELLARBOOK_REDIS_URL"

	EnvJWTSecret              = "CELLARBOOK_JWT_SECRET"
	EnvJWTIssuer              = "CELLARBOOK_JWT_ISSUER"
	EnvJWTExpMins             = "CELLARBOOK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CELLARBOOK_REFRESH_TOKEN_TTL_MINUTES"

	EnvOpenAIAPIKey  = "CELLARBOOK_OPENAI_API_KEY"
	EnvOpenAITimeout = "CELLARBOOK_OPENAI_TIMEOUT"
	EnvGCSBucket     = "CELLARBOOK_GCS_BUCKET_NAME"
	EnvInviteTTL     = "CELLARBOOK_INVITE_TTL"
)
