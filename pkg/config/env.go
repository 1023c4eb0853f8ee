package config

// Environment variable names used outside struct tags (tests, error
// messages, bootstrap scripts).
const (
	EnvPrefix = "INVENTO"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv   = "INVENTO_APP_ENV"
	EnvPort     = "INVENTO_APP_PORT"
	EnvDBDSN    = "INVENTO_DB_DSN"
	EnvDBHost   = "INVENTO_DB_HOST"
	EnvDBUser   = "INVENTO_DB_USER"
	EnvDBName   = "INVENTO_DB_NAME"
	EnvRedisURL = "INVENTO_REDIS_URL"

	EnvJWTSecret  = "INVENTO_JWT_SECRET"
	EnvJWTIssuer  = "INVENTO_JWT_ISSUER"
	EnvJWTExpMins = "INVENTO_JWT_EXPIRATION_MINUTES"

	EnvServiceAPIKey = "INVENTO_SERVICE_API_KEY"

	EnvSlackBotToken = "INVENTO_SLACK_BOT_TOKEN"
	EnvSlackAppToken = "INVENTO_SLACK_APP_TOKEN"
	EnvOpenAIAPIKey  = "INVENTO_OPENAI_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
