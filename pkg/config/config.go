package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "RODEO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "RODEO_DB_DSN"
	EnvDBHost = "RODEO_DB_HOST"
	EnvDBUser = "RODEO_DB_USER"
	EnvDBName = "RODEO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Staff         StaffConfig
	AuthRateLimit AuthRateLimitConfig
	Stripe        StripeConfig
	Moneris       MonerisConfig
	Payments      PaymentsConfig
	Railway       RailwayConfig
	Shiptime      ShiptimeConfig
	Resend        ResendConfig
	QR            QRConfig
	Webhooks      WebhooksConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payments.parseRates(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RODEO_APP_ENV" required:"true"`
	Port         string `envconfig:"RODEO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RODEO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RODEO_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"RODEO_APP_PUBLIC_URL" default:"http://localhost:8080"`
	AutoMigrate  bool   `envconfig:"RODEO_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RODEO_DB_DSN"`
	Driver string `envconfig:"RODEO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RODEO_DB_HOST"`
	LegacyPort     int    `envconfig:"RODEO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RODEO_DB_USER"`
	LegacyPassword string `envconfig:"RODEO_DB_PASSWORD"`
	LegacyName     string `envconfig:"RODEO_DB_NAME"`
	LegacySSLMode  string `envconfig:"RODEO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RODEO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RODEO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RODEO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RODEO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RODEO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RODEO_REDIS_ADDR"`
	Password     string        `envconfig:"RODEO_REDIS_PASSWORD"`
	DB           int           `envconfig:"RODEO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RODEO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RODEO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RODEO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RODEO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RODEO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RODEO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RODEO_JWT_ISSUER" default:"rodeo-backend"`
	ExpirationMinutes int    `envconfig:"RODEO_JWT_EXPIRATION_MINUTES" default:"720"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RODEO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RODEO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RODEO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RODEO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RODEO_ARGON_KEY_LEN" default:"32"`
}

// StaffConfig holds the shared gate passwords for staff devices. The scanner
// hash admits gate and bar stations; the admin hash unlocks the back office.
type StaffConfig struct {
	PasswordHash      string `envconfig:"RODEO_STAFF_PASSWORD_HASH" required:"true"`
	AdminPasswordHash string `envconfig:"RODEO_STAFF_ADMIN_PASSWORD_HASH"`
}

// AuthRateLimitConfig throttles the staff login endpoint per IP and device label.
type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"RODEO_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit     int           `envconfig:"RODEO_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"10"`
	LoginDeviceLimit int           `envconfig:"RODEO_AUTH_RATE_LIMIT_LOGIN_DEVICE_LIMIT" default:"5"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"RODEO_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"RODEO_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"RODEO_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type MonerisConfig struct {
	StoreID     string `envconfig:"RODEO_MONERIS_STORE_ID"`
	APIToken    string `envconfig:"RODEO_MONERIS_API_TOKEN"`
	CheckoutID  string `envconfig:"RODEO_MONERIS_CHECKOUT_ID"`
	Environment string `envconfig:"RODEO_MONERIS_ENV" default:"qa"`
}

type PaymentsConfig struct {
	Currency        string `envconfig:"RODEO_PAYMENTS_CURRENCY" default:"CAD"`
	DefaultProvider string `envconfig:"RODEO_PAYMENTS_DEFAULT_PROVIDER" default:"stripe"`
	SuccessURL      string `envconfig:"RODEO_PAYMENTS_SUCCESS_URL" required:"true"`
	CancelURL       string `envconfig:"RODEO_PAYMENTS_CANCEL_URL" required:"true"`

	TaxRateRaw      string `envconfig:"RODEO_PAYMENTS_TAX_RATE" default:"0.13"`
	CreditPriceRaw  string `envconfig:"RODEO_PAYMENTS_CREDIT_PRICE" default:"7.00"`
	ShippingFlatRaw string `envconfig:"RODEO_PAYMENTS_SHIPPING_FLAT" default:"15.00"`

	TaxRate      decimal.Decimal `ignored:"true"`
	CreditPrice  decimal.Decimal `ignored:"true"`
	ShippingFlat decimal.Decimal `ignored:"true"`
}

func (p *PaymentsConfig) parseRates() error {
	var err error
	if p.TaxRate, err = decimal.NewFromString(p.TaxRateRaw); err != nil {
		return fmt.Errorf("invalid tax rate %q: %w", p.TaxRateRaw, err)
	}
	if p.CreditPrice, err = decimal.NewFromString(p.CreditPriceRaw); err != nil {
		return fmt.Errorf("invalid credit price %q: %w", p.CreditPriceRaw, err)
	}
	if p.ShippingFlat, err = decimal.NewFromString(p.ShippingFlatRaw); err != nil {
		return fmt.Errorf("invalid flat shipping %q: %w", p.ShippingFlatRaw, err)
	}
	return nil
}

// RailwayConfig points at the upstream event catalog service.
type RailwayConfig struct {
	BaseURL string        `envconfig:"RODEO_RAILWAY_BASE_URL"`
	APIKey  string        `envconfig:"RODEO_RAILWAY_API_KEY"`
	Timeout time.Duration `envconfig:"RODEO_RAILWAY_TIMEOUT" default:"10s"`
}

type ShiptimeConfig struct {
	BaseURL  string        `envconfig:"RODEO_SHIPTIME_BASE_URL"`
	Username string        `envconfig:"RODEO_SHIPTIME_USERNAME"`
	Password string        `envconfig:"RODEO_SHIPTIME_PASSWORD"`
	Timeout  time.Duration `envconfig:"RODEO_SHIPTIME_TIMEOUT" default:"15s"`
}

type ResendConfig struct {
	APIKey      string `envconfig:"RODEO_RESEND_API_KEY"`
	DefaultFrom string `envconfig:"RODEO_RESEND_FROM_EMAIL" default:"tickets@copperspur.ca"`
}

// QRConfig carries the symmetric key used to encrypt scan payloads.
type QRConfig struct {
	EncryptionKey string `envconfig:"RODEO_QR_ENCRYPTION_KEY" required:"true"`
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"RODEO_WEBHOOKS_IDEMPOTENCY_TTL" default:"720h"`
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
