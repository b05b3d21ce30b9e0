package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
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
	Payments      PaymentsConfig
	Reservations  ReservationsConfig
	Cron          CronConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Stripe        StripeConfig
	PayPal        PayPalConfig
	Square        SquareConfig
	CORS          CORSConfig
}

// Load reads the environment. Call godotenv first in binaries that support a
// local .env file.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DB.DSN == "" {
		dsn, err := cfg.DB.composeDSN()
		if err != nil {
			return nil, err
		}
		cfg.DB.DSN = dsn
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks constraints that span fields or that envconfig tags
// cannot express.
func (c *Config) validate() error {
	var problems []string
	if c.JWT.RefreshTokenTTL() <= time.Duration(c.JWT.ExpirationMinutes)*time.Minute {
		problems = append(problems, EnvRefreshTokenTTLMinutes+" must exceed "+EnvJWTExpMins)
	}
	if c.Payments.MaxAttempts < 1 {
		problems = append(problems, EnvPaymentsMaxAttempts+" must be at least 1")
	}
	switch strings.ToLower(c.Payments.IdempotencyStore) {
	case "redis", "memory":
	default:
		problems = append(problems, fmt.Sprintf("%s must be redis or memory, got %q", EnvPaymentsIdempotencyStore, c.Payments.IdempotencyStore))
	}
	if c.Reservations.PendingTTL <= 0 {
		problems = append(problems, "RENTALZ_RESERVATIONS_PENDING_TTL must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"RENTALZ_APP_ENV" required:"true"`
	Port         string `envconfig:"RENTALZ_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RENTALZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RENTALZ_LOG_WARN_STACK" default:"false"`
	// LogFormat is "json" or "console"; console is for local terminals.
	LogFormat string `envconfig:"RENTALZ_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RENTALZ_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RENTALZ_DB_DSN"`
	Driver string `envconfig:"RENTALZ_DB_DRIVER" default:"postgres"`

	// Discrete settings, used to build a postgres DSN when DSN is unset.
	Host     string `envconfig:"RENTALZ_DB_HOST"`
	Port     int    `envconfig:"RENTALZ_DB_PORT" default:"5432"`
	User     string `envconfig:"RENTALZ_DB_USER"`
	Password string `envconfig:"RENTALZ_DB_PASSWORD"`
	Name     string `envconfig:"RENTALZ_DB_NAME"`
	SSLMode  string `envconfig:"RENTALZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RENTALZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENTALZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENTALZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENTALZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// Queries slower than this are logged at warn; zero disables it.
	SlowQueryThreshold time.Duration `envconfig:"RENTALZ_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
	LogQueries         bool          `envconfig:"RENTALZ_DB_LOG_QUERIES" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RENTALZ_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RENTALZ_REDIS_ADDR"`
	Password     string        `envconfig:"RENTALZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"RENTALZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RENTALZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RENTALZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RENTALZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RENTALZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RENTALZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"RENTALZ_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"RENTALZ_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"RENTALZ_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"RENTALZ_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RENTALZ_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RENTALZ_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RENTALZ_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RENTALZ_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RENTALZ_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"RENTALZ_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"RENTALZ_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"RENTALZ_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"RENTALZ_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"RENTALZ_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"RENTALZ_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	APIWindow          time.Duration `envconfig:"RENTALZ_API_RATE_LIMIT_WINDOW" default:"1m"`
	APILimit           int           `envconfig:"RENTALZ_API_RATE_LIMIT" default:"300"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RENTALZ_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RENTALZ_AUTO_MIGRATE" default:"false"`
	TestPayment bool `envconfig:"RENTALZ_FEATURE_TEST_PAYMENT_PROVIDER" default:"false"`
}

// PaymentsConfig tunes the payment orchestrator.
type PaymentsConfig struct {
	MaxAttempts      int           `envconfig:"RENTALZ_PAYMENTS_MAX_ATTEMPTS" default:"3"`
	IdempotencyTTL   time.Duration `envconfig:"RENTALZ_PAYMENTS_IDEMPOTENCY_TTL" default:"24h"`
	IdempotencyStore string        `envconfig:"RENTALZ_PAYMENTS_IDEMPOTENCY_STORE" default:"redis"`
	ProviderTimeout  time.Duration `envconfig:"RENTALZ_PAYMENTS_PROVIDER_TIMEOUT" default:"15s"`
	DefaultCurrency  string        `envconfig:"RENTALZ_PAYMENTS_DEFAULT_CURRENCY" default:"USD"`
	SuccessURL       string        `envconfig:"RENTALZ_PAYMENTS_SUCCESS_URL" default:"http://localhost:3000/payments/success"`
	CancelURL        string        `envconfig:"RENTALZ_PAYMENTS_CANCEL_URL" default:"http://localhost:3000/payments/cancel"`
}

type ReservationsConfig struct {
	PendingTTL time.Duration `envconfig:"RENTALZ_RESERVATIONS_PENDING_TTL" default:"30m"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"RENTALZ_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"RENTALZ_CRON_LOCK_TTL" default:"5m"`
	// BatchSize caps how many reservations a sweep touches per cycle.
	BatchSize             int           `envconfig:"RENTALZ_CRON_BATCH_SIZE" default:"100"`
	NotificationRetention time.Duration `envconfig:"RENTALZ_CRON_NOTIFICATION_RETENTION" default:"720h"`
	PurgeBatchSize        int           `envconfig:"RENTALZ_CRON_PURGE_BATCH_SIZE" default:"500"`
	CleanupInterval       time.Duration `envconfig:"RENTALZ_CRON_CLEANUP_INTERVAL" default:"24h"`
	// MetricsAddr serves /metrics from the worker when set, e.g. ":9102".
	MetricsAddr string `envconfig:"RENTALZ_CRON_METRICS_ADDR"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"RENTALZ_GCP_PROJECT_ID"`
	// Explicit credentials; application default credentials apply when both
	// are empty. JSON wins over the file.
	CredentialsJSON string `envconfig:"RENTALZ_GCP_CREDENTIALS_JSON"`
	CredentialsFile string `envconfig:"RENTALZ_GCP_CREDENTIALS_FILE"`
}

type PubSubConfig struct {
	DomainEventsTopic string `envconfig:"RENTALZ_PUBSUB_DOMAIN_EVENTS_TOPIC"`
}

// Enabled reports whether domain events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.DomainEventsTopic) != ""
}

type StripeConfig struct {
	APIKey string `envconfig:"RENTALZ_STRIPE_API_KEY"`
	Secret string `envconfig:"RENTALZ_STRIPE_SECRET"`
	Env    string `envconfig:"RENTALZ_STRIPE_ENV" default:"test"`
}

// Environment is "test" or "live".
func (s StripeConfig) Environment() string { return normalizedEnv(s.Env, "test") }

type PayPalConfig struct {
	ClientID     string `envconfig:"RENTALZ_PAYPAL_CLIENT_ID"`
	ClientSecret string `envconfig:"RENTALZ_PAYPAL_CLIENT_SECRET"`
	Env          string `envconfig:"RENTALZ_PAYPAL_ENV" default:"sandbox"`
}

// Environment is "sandbox" or "live".
func (p PayPalConfig) Environment() string { return normalizedEnv(p.Env, "sandbox") }

type SquareConfig struct {
	AccessToken         string `envconfig:"RENTALZ_SQUARE_ACCESS_TOKEN"`
	LocationID          string `envconfig:"RENTALZ_SQUARE_LOCATION_ID"`
	Env                 string `envconfig:"RENTALZ_SQUARE_ENV" default:"sandbox"`
	WebhookSignatureKey string `envconfig:"RENTALZ_SQUARE_WEBHOOK_SIGNATURE_KEY"`
	WebhookURL          string `envconfig:"RENTALZ_SQUARE_WEBHOOK_URL"`
}

// Environment is "sandbox" or "production".
func (s SquareConfig) Environment() string { return normalizedEnv(s.Env, "sandbox") }

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"RENTALZ_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	MaxAge         int      `envconfig:"RENTALZ_CORS_MAX_AGE" default:"300"`
}

func normalizedEnv(raw, fallback string) string {
	if env := strings.ToLower(strings.TrimSpace(raw)); env != "" {
		return env
	}
	return fallback
}

func (db DBConfig) composeDSN() (string, error) {
	var missing []string
	for env, v := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if v == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	return u.String(), nil
}
