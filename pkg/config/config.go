package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Signature    SignatureConfig
	Monitoring   MonitoringConfig
	Merchant     MerchantConfig
	Processor    ProcessorConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GHOSTCART_APP_ENV" required:"true"`
	Port         string `envconfig:"GHOSTCART_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GHOSTCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GHOSTCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GHOSTCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GHOSTCART_DB_DSN"`
	Driver string `envconfig:"GHOSTCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GHOSTCART_DB_HOST"`
	LegacyPort     int    `envconfig:"GHOSTCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GHOSTCART_DB_USER"`
	LegacyPassword string `envconfig:"GHOSTCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"GHOSTCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"GHOSTCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GHOSTCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GHOSTCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GHOSTCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GHOSTCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GHOSTCART_REDIS_URL"`
	Address      string        `envconfig:"GHOSTCART_REDIS_ADDR"`
	Password     string        `envconfig:"GHOSTCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"GHOSTCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GHOSTCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GHOSTCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GHOSTCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GHOSTCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GHOSTCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GHOSTCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GHOSTCART_JWT_ISSUER" default:"ghostcart"`
	ExpirationMinutes int    `envconfig:"GHOSTCART_JWT_EXPIRATION_MINUTES" default:"60"`
}

// SignatureConfig holds per-role key material. Each signer role owns an
// independent secret namespace; verification never crosses roles.
type SignatureConfig struct {
	Algorithm          string `envconfig:"GHOSTCART_SIGNATURE_ALGORITHM" default:"HMAC-SHA256"`
	UserSecret         string `envconfig:"GHOSTCART_SIGNATURE_USER_SECRET" required:"true"`
	AgentSecret        string `envconfig:"GHOSTCART_SIGNATURE_AGENT_SECRET" required:"true"`
	PaymentAgentSecret string `envconfig:"GHOSTCART_SIGNATURE_PAYMENT_SECRET" required:"true"`
}

type MonitoringConfig struct {
	CheckInterval  time.Duration `envconfig:"GHOSTCART_MONITORING_CHECK_INTERVAL" default:"5m"`
	DemoInterval   time.Duration `envconfig:"GHOSTCART_MONITORING_DEMO_INTERVAL" default:"10s"`
	DemoMode       bool          `envconfig:"GHOSTCART_MONITORING_DEMO_MODE" default:"false"`
	CheckTimeout   time.Duration `envconfig:"GHOSTCART_MONITORING_CHECK_TIMEOUT" default:"15s"`
	RescanInterval time.Duration `envconfig:"GHOSTCART_MONITORING_RESCAN_INTERVAL" default:"30s"`
	MaxIntentTTL   time.Duration `envconfig:"GHOSTCART_MONITORING_MAX_INTENT_TTL" default:"720h"`
}

// Interval returns the effective polling cadence for new monitoring jobs.
func (m MonitoringConfig) Interval() time.Duration {
	if m.DemoMode {
		return m.DemoInterval
	}
	return m.CheckInterval
}

type MerchantConfig struct {
	ID                string        `envconfig:"GHOSTCART_MERCHANT_ID" default:"merchant_ghostcart_demo"`
	Name              string        `envconfig:"GHOSTCART_MERCHANT_NAME" default:"GhostCart Demo Store"`
	TaxBasisPoints    int64         `envconfig:"GHOSTCART_MERCHANT_TAX_BP" default:"800"`
	ShippingCents     int64         `envconfig:"GHOSTCART_MERCHANT_SHIPPING_CENTS" default:"1000"`
	PriceDropDelay    time.Duration `envconfig:"GHOSTCART_MERCHANT_PRICE_DROP_DELAY" default:"30s"`
	CartValidityHours int           `envconfig:"GHOSTCART_MERCHANT_CART_VALIDITY_HOURS" default:"24"`
}

type ProcessorConfig struct {
	Kind             string `envconfig:"GHOSTCART_PROCESSOR_KIND" default:"mock"`
	AlwaysApprove    bool   `envconfig:"GHOSTCART_PROCESSOR_ALWAYS_APPROVE" default:"false"`
	SquareToken      string `envconfig:"GHOSTCART_SQUARE_ACCESS_TOKEN"`
	SquareEnv        string `envconfig:"GHOSTCART_SQUARE_ENV" default:"sandbox"`
	SquareLocationID string `envconfig:"GHOSTCART_SQUARE_LOCATION_ID"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"GHOSTCART_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	EventsTopic string `envconfig:"GHOSTCART_PUBSUB_EVENTS_TOPIC" default:"gc-mandate-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GHOSTCART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GHOSTCART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GHOSTCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GHOSTCART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GHOSTCART_AUTO_MIGRATE" default:"false"`
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
