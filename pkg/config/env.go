package config

const (
	EnvPrefix = "RENTALZ"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "RENTALZ_APP_ENV"
	EnvPort   = "RENTALZ_APP_PORT"

	EnvDBDSN  = "RENTALZ_DB_DSN"
	EnvDBHost = "RENTALZ_DB_HOST"
	EnvDBUser = "RENTALZ_DB_USER"
	EnvDBName = "RENTALZ_DB_NAME"

	EnvRedisURL = "RENTALZ_REDIS_URL"

	EnvJWTSecret              = "RENTALZ_JWT_SECRET"
	EnvJWTIssuer              = "RENTALZ_JWT_ISSUER"
	EnvJWTExpMins             = "RENTALZ_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "RENTALZ_REFRESH_TOKEN_TTL_MINUTES"

	EnvPaymentsMaxAttempts      = "RENTALZ_PAYMENTS_MAX_ATTEMPTS"
	EnvPaymentsIdempotencyTTL   = "RENTALZ_PAYMENTS_IDEMPOTENCY_TTL"
	EnvPaymentsIdempotencyStore = "RENTALZ_PAYMENTS_IDEMPOTENCY_STORE"
)
