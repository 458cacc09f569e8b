package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable read by the service.
	EnvPrefix = "MOZPAY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Checkout     CheckoutConfig
	Verification VerificationConfig
	RateLimit    RateLimitConfig
	Dispatch     DispatchConfig
	WhatsApp     WhatsAppConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Dispatch.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MOZPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"MOZPAY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MOZPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MOZPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MOZPAY_DB_DSN"`
	Driver string `envconfig:"MOZPAY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MOZPAY_DB_HOST"`
	Port     int    `envconfig:"MOZPAY_DB_PORT" default:"5432"`
	User     string `envconfig:"MOZPAY_DB_USER"`
	Password string `envconfig:"MOZPAY_DB_PASSWORD"`
	Name     string `envconfig:"MOZPAY_DB_NAME"`
	SSLMode  string `envconfig:"MOZPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOZPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOZPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOZPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOZPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if strings.EqualFold(d.Driver, "sqlite") {
		d.DSN = "file::memory:?cache=shared"
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database configuration incomplete: set %s_DB_DSN or host/user/name", EnvPrefix)
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"MOZPAY_REDIS_URL"`
	Address      string        `envconfig:"MOZPAY_REDIS_ADDR"`
	Password     string        `envconfig:"MOZPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOZPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOZPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOZPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOZPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOZPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOZPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CheckoutConfig tunes the simulated processing step and flow retention.
type CheckoutConfig struct {
	ProcessingDelay time.Duration `envconfig:"MOZPAY_CHECKOUT_PROCESSING_DELAY" default:"2s"`
	ProgressTick    time.Duration `envconfig:"MOZPAY_CHECKOUT_PROGRESS_TICK" default:"500ms"`
	FlowTTL         time.Duration `envconfig:"MOZPAY_CHECKOUT_FLOW_TTL" default:"30m"`
}

// VerificationConfig bounds OTP sessions.
type VerificationConfig struct {
	CodeTTL     time.Duration `envconfig:"MOZPAY_VERIFICATION_CODE_TTL" default:"5m"`
	MaxAttempts int           `envconfig:"MOZPAY_VERIFICATION_MAX_ATTEMPTS" default:"5"`
	LockWindow  time.Duration `envconfig:"MOZPAY_VERIFICATION_LOCK_WINDOW" default:"10m"`
}

type RateLimitConfig struct {
	SendWindow     time.Duration `envconfig:"MOZPAY_RATE_LIMIT_SEND_WINDOW" default:"1m"`
	SendIPLimit    int           `envconfig:"MOZPAY_RATE_LIMIT_SEND_IP_LIMIT" default:"20"`
	SendPhoneLimit int           `envconfig:"MOZPAY_RATE_LIMIT_SEND_PHONE_LIMIT" default:"3"`
}

const (
	DispatchModeSimulated = "simulated"
	DispatchModeWhatsApp  = "whatsapp"
)

type DispatchConfig struct {
	Mode string `envconfig:"MOZPAY_DISPATCH_MODE" default:"simulated"`
}

func (d DispatchConfig) validate() error {
	switch strings.ToLower(d.Mode) {
	case DispatchModeSimulated, DispatchModeWhatsApp:
		return nil
	default:
		return fmt.Errorf("unknown dispatch mode %q", d.Mode)
	}
}

type WhatsAppConfig struct {
	APIURL        string        `envconfig:"MOZPAY_WHATSAPP_API_URL" default:"https://graph.facebook.com/v19.0"`
	PhoneNumberID string        `envconfig:"MOZPAY_WHATSAPP_PHONE_NUMBER_ID"`
	AccessToken   string        `envconfig:"MOZPAY_WHATSAPP_ACCESS_TOKEN"`
	TemplateName  string        `envconfig:"MOZPAY_WHATSAPP_TEMPLATE_NAME" default:"codigo_verificacao"`
	Timeout       time.Duration `envconfig:"MOZPAY_WHATSAPP_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MOZPAY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MOZPAY_AUTO_MIGRATE" default:"false"`
}
