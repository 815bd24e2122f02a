package config

const (
	EnvPrefix = "MARKETSYNC"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// DateLayout is the calendar-day format accepted across the API and config.
	DateLayout = "2006-01-02"
)

const (
	EnvAppEnv   = "MARKETSYNC_APP_ENV"
	EnvPort     = "MARKETSYNC_APP_PORT"
	EnvLogLevel = "MARKETSYNC_LOG_LEVEL"

	EnvDBDSN    = "MARKETSYNC_DB_DSN"
	EnvDBDriver = "MARKETSYNC_DB_DRIVER"
	EnvDBHost   = "MARKETSYNC_DB_HOST"
	EnvDBUser   = "MARKETSYNC_DB_USER"
	EnvDBName   = "MARKETSYNC_DB_NAME"

	EnvRedisURL  = "MARKETSYNC_REDIS_URL"
	EnvUseSQLite = "MARKETSYNC_USE_SQLITE"

	EnvIVAPercent             = "MARKETSYNC_IVA_PERCENT"
	EnvTrackingActivationDate = "MARKETSYNC_TRACKING_ACTIVATION_DATE"
	EnvTimezone               = "MARKETSYNC_TIMEZONE"
	EnvSyncOrderConcurrency   = "MARKETSYNC_SYNC_ORDER_CONCURRENCY"
	EnvSyncBatchPause         = "MARKETSYNC_SYNC_BATCH_PAUSE"
	EnvMeliClientID           = "MARKETSYNC_MELI_CLIENT_ID"
	EnvFalabellaUserID        = "MARKETSYNC_FALABELLA_USER_ID"
	EnvFalabellaAPIKey        = "MARKETSYNC_FALABELLA_API_KEY"
	EnvWebhookIdempotencyTTL  = "MARKETSYNC_WEBHOOK_IDEMPOTENCY_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
