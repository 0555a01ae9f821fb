package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvUseSQLite   = "STOREFRONT_USE_SQLITE"
	EnvAutoMigrate = "STOREFRONT_AUTO_MIGRATE"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret              = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer              = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins             = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"

	EnvMercadoPagoAccessToken   = "STOREFRONT_MERCADOPAGO_ACCESS_TOKEN"
	EnvMercadoPagoWebhookSecret = "STOREFRONT_MERCADOPAGO_WEBHOOK_SECRET"
	EnvMercadoPagoBaseURL       = "STOREFRONT_MERCADOPAGO_BASE_URL"

	EnvCheckoutSuccessURL   = "STOREFRONT_CHECKOUT_SUCCESS_URL"
	EnvCheckoutFailureURL   = "STOREFRONT_CHECKOUT_FAILURE_URL"
	EnvCheckoutPendingURL   = "STOREFRONT_CHECKOUT_PENDING_URL"
	EnvCheckoutInstallments = "STOREFRONT_CHECKOUT_INSTALLMENTS"

	EnvOrdersStrictTransitions = "STOREFRONT_ORDERS_STRICT_TRANSITIONS"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
