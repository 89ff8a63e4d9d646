package config

const (
	EnvPrefix = "agrimandi"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "AGRIMANDI_APP_ENV"
	EnvPort       = "AGRIMANDI_APP_PORT"
	EnvDBDSN      = "AGRIMANDI_DB_DSN"
	EnvDBHost     = "AGRIMANDI_DB_HOST"
	EnvDBUser     = "AGRIMANDI_DB_USER"
	EnvDBName     = "AGRIMANDI_DB_NAME"
	EnvRedisURL   = "AGRIMANDI_REDIS_URL"
	EnvJWTSecret  = "AGRIMANDI_JWT_SECRET"
	EnvJWTIssuer  = "AGRIMANDI_JWT_ISSUER"
	EnvJWTExpMins = "AGRIMANDI_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID    = "AGRIMANDI_GCP_PROJECT_ID"
	EnvPubSubDomainSub = "AGRIMANDI_PUBSUB_DOMAIN_SUBSCRIPTION"

	EnvBidGracePeriod = "AGRIMANDI_BID_GRACE_PERIOD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
