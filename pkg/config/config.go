package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	MercadoPago   MercadoPagoConfig
	Checkout      CheckoutConfig
	Orders        OrdersConfig
	Cron          CronConfig
	Eng           EngConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	PublicURL    string   `envconfig:"STOREFRONT_PUBLIC_URL" default:"http://localhost:3000"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"STOREFRONT_SQLITE_PATH" default:"storefront.db"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"STOREFRONT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOREFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOREFRONT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOREFRONT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// MercadoPagoConfig holds the server-side gateway credentials. The access
// token never leaves the backend.
type MercadoPagoConfig struct {
	AccessToken     string        `envconfig:"STOREFRONT_MERCADOPAGO_ACCESS_TOKEN" required:"true"`
	WebhookSecret   string        `envconfig:"STOREFRONT_MERCADOPAGO_WEBHOOK_SECRET"`
	BaseURL         string        `envconfig:"STOREFRONT_MERCADOPAGO_BASE_URL" default:"https://api.mercadopago.com"`
	Timeout         time.Duration `envconfig:"STOREFRONT_MERCADOPAGO_TIMEOUT" default:"10s"`
	MaxRetries      int           `envconfig:"STOREFRONT_MERCADOPAGO_MAX_RETRIES" default:"2"`
	SignatureMaxAge time.Duration `envconfig:"STOREFRONT_MERCADOPAGO_SIGNATURE_MAX_AGE" default:"0s"`
	NotificationURL string        `envconfig:"STOREFRONT_MERCADOPAGO_NOTIFICATION_URL"`
	Sandbox         bool          `envconfig:"STOREFRONT_MERCADOPAGO_SANDBOX" default:"false"`
}

type CheckoutConfig struct {
	SuccessURL   string `envconfig:"STOREFRONT_CHECKOUT_SUCCESS_URL" default:"http://localhost:3000/checkout/success"`
	FailureURL   string `envconfig:"STOREFRONT_CHECKOUT_FAILURE_URL" default:"http://localhost:3000/checkout/failure"`
	PendingURL   string `envconfig:"STOREFRONT_CHECKOUT_PENDING_URL" default:"http://localhost:3000/checkout/pending"`
	Currency     string `envconfig:"STOREFRONT_CHECKOUT_CURRENCY" default:"ARS"`
	Installments int    `envconfig:"STOREFRONT_CHECKOUT_INSTALLMENTS" default:"1"`
	MaxItems     int    `envconfig:"STOREFRONT_CHECKOUT_MAX_ITEMS" default:"100"`
}

func (c CheckoutConfig) validate() error {
	for env, raw := range map[string]string{
		EnvCheckoutSuccessURL: c.SuccessURL,
		EnvCheckoutFailureURL: c.FailureURL,
		EnvCheckoutPendingURL: c.PendingURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute url", env)
		}
	}
	if c.Installments <= 0 {
		return fmt.Errorf("%s must be positive", EnvCheckoutInstallments)
	}
	return nil
}

type OrdersConfig struct {
	StrictTransitions bool `envconfig:"STOREFRONT_ORDERS_STRICT_TRANSITIONS" default:"false"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"5m"`
	LockTTL        time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"4m"`
	ReconcileAfter time.Duration `envconfig:"STOREFRONT_CRON_RECONCILE_AFTER" default:"15m"`
	AbandonAfter   time.Duration `envconfig:"STOREFRONT_CRON_ABANDON_AFTER" default:"2h"`
	BatchSize      int           `envconfig:"STOREFRONT_CRON_BATCH_SIZE" default:"100"`
}

type EngConfig struct {
	ExposeErrorDetails bool `envconfig:"STOREFRONT_ENG_EXPOSE_ERROR_DETAILS" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.Driver = DriverSQLite
		db.DSN = db.SQLitePath
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range splitDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
