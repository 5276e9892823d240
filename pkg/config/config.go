package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Cart         CartConfig
	Checkout     CheckoutConfig
	Notifier     NotifierConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AUDIOPHILE_APP_ENV" required:"true"`
	Port         string `envconfig:"AUDIOPHILE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AUDIOPHILE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AUDIOPHILE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AUDIOPHILE_DB_DSN"`
	Driver string `envconfig:"AUDIOPHILE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AUDIOPHILE_DB_HOST"`
	LegacyPort     int    `envconfig:"AUDIOPHILE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AUDIOPHILE_DB_USER"`
	LegacyPassword string `envconfig:"AUDIOPHILE_DB_PASSWORD"`
	LegacyName     string `envconfig:"AUDIOPHILE_DB_NAME"`
	LegacySSLMode  string `envconfig:"AUDIOPHILE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AUDIOPHILE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AUDIOPHILE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AUDIOPHILE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AUDIOPHILE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AUDIOPHILE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AUDIOPHILE_REDIS_ADDR"`
	Password     string        `envconfig:"AUDIOPHILE_REDIS_PASSWORD"`
	DB           int           `envconfig:"AUDIOPHILE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AUDIOPHILE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AUDIOPHILE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AUDIOPHILE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AUDIOPHILE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AUDIOPHILE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AUDIOPHILE_AUTO_MIGRATE" default:"false"`
}

// CartConfig controls durable cart persistence.
type CartConfig struct {
	StorageKey string        `envconfig:"AUDIOPHILE_CART_STORAGE_KEY" default:"audiophile-cart"`
	TTL        time.Duration `envconfig:"AUDIOPHILE_CART_TTL" default:"720h"`
}

// CheckoutConfig carries the pricing constants and the remote call budget.
type CheckoutConfig struct {
	TaxRate          string        `envconfig:"AUDIOPHILE_CHECKOUT_TAX_RATE" default:"0.20"`
	ShippingFeeCents int64         `envconfig:"AUDIOPHILE_CHECKOUT_SHIPPING_FEE_CENTS" default:"5000"`
	RemoteBudget     time.Duration `envconfig:"AUDIOPHILE_CHECKOUT_REMOTE_BUDGET" default:"15s"`
	SubmitRateWindow time.Duration `envconfig:"AUDIOPHILE_CHECKOUT_SUBMIT_RATE_WINDOW" default:"1m"`
	SubmitRateLimit  int           `envconfig:"AUDIOPHILE_CHECKOUT_SUBMIT_RATE_LIMIT" default:"10"`
	IdempotencyTTL   time.Duration `envconfig:"AUDIOPHILE_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
	BridgeTTL        time.Duration `envconfig:"AUDIOPHILE_CHECKOUT_BRIDGE_TTL" default:"24h"`
}

// TaxRateDecimal parses the configured tax rate.
func (c CheckoutConfig) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (c CheckoutConfig) validate() error {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return fmt.Errorf("invalid tax rate %q: %w", c.TaxRate, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("tax rate must be non-negative")
	}
	if c.ShippingFeeCents < 0 {
		return fmt.Errorf("shipping fee must be non-negative")
	}
	if c.RemoteBudget <= 0 {
		return fmt.Errorf("remote budget must be positive")
	}
	return nil
}

type NotifierConfig struct {
	GatewayURL  string        `envconfig:"AUDIOPHILE_NOTIFIER_GATEWAY_URL"`
	FromAddress string        `envconfig:"AUDIOPHILE_NOTIFIER_FROM_EMAIL" default:"orders@audiophile.example"`
	MaxAttempts int           `envconfig:"AUDIOPHILE_NOTIFIER_MAX_ATTEMPTS" default:"3"`
	Timeout     time.Duration `envconfig:"AUDIOPHILE_NOTIFIER_TIMEOUT" default:"5s"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
