package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "AUDIOPHILE"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "AUDIOPHILE_APP_ENV"
	EnvPort     = "AUDIOPHILE_APP_PORT"
	EnvDBDSN    = "AUDIOPHILE_DB_DSN"
	EnvDBHost   = "AUDIOPHILE_DB_HOST"
	EnvDBUser   = "AUDIOPHILE_DB_USER"
	EnvDBName   = "AUDIOPHILE_DB_NAME"
	EnvRedisURL = "AUDIOPHILE_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
