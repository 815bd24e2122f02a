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
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Tax          TaxConfig
	Tracking     TrackingConfig
	Sync         SyncConfig
	MercadoLibre MercadoLibreConfig
	Falabella    FalabellaConfig
	Webhooks     WebhooksConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Tracking.Location(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvTimezone, err)
	}
	if _, err := cfg.Tracking.Activation(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvTrackingActivationDate, err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARKETSYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETSYNC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARKETSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETSYNC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MARKETSYNC_DB_DSN"`
	Driver string `envconfig:"MARKETSYNC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MARKETSYNC_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKETSYNC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKETSYNC_DB_USER"`
	LegacyPassword string `envconfig:"MARKETSYNC_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKETSYNC_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKETSYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETSYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETSYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the database runs on the embedded SQLite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETSYNC_REDIS_URL"`
	Address      string        `envconfig:"MARKETSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MARKETSYNC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MARKETSYNC_AUTO_MIGRATE" default:"false"`
}

type TaxConfig struct {
	IVAPercent float64 `envconfig:"MARKETSYNC_IVA_PERCENT" default:"19"`
}

type TrackingConfig struct {
	ActivationDate string `envconfig:"MARKETSYNC_TRACKING_ACTIVATION_DATE"`
	Timezone       string `envconfig:"MARKETSYNC_TIMEZONE" default:"America/Santiago"`
}

// Location resolves the seller timezone used to turn calendar days into instants.
func (t TrackingConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(t.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// Activation returns the tracking activation instant, or the zero time when unset.
func (t TrackingConfig) Activation() (time.Time, error) {
	raw := strings.TrimSpace(t.ActivationDate)
	if raw == "" {
		return time.Time{}, nil
	}
	loc, err := t.Location()
	if err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation(DateLayout, raw, loc)
}

type SyncConfig struct {
	PageLimit        int           `envconfig:"MARKETSYNC_SYNC_PAGE_LIMIT" default:"50"`
	OrderConcurrency int           `envconfig:"MARKETSYNC_SYNC_ORDER_CONCURRENCY" default:"10"`
	DateConcurrency  int           `envconfig:"MARKETSYNC_SYNC_DATE_CONCURRENCY" default:"3"`
	BatchPause       time.Duration `envconfig:"MARKETSYNC_SYNC_BATCH_PAUSE" default:"1s"`
	MaxRangeDays     int           `envconfig:"MARKETSYNC_SYNC_MAX_RANGE_DAYS" default:"62"`
}

type MercadoLibreConfig struct {
	BaseURL      string        `envconfig:"MARKETSYNC_MELI_BASE_URL" default:"https://api.mercadolibre.com"`
	TokenURL     string        `envconfig:"MARKETSYNC_MELI_TOKEN_URL" default:"https://api.mercadolibre.com/oauth/token"`
	ClientID     string        `envconfig:"MARKETSYNC_MELI_CLIENT_ID"`
	ClientSecret string        `envconfig:"MARKETSYNC_MELI_CLIENT_SECRET"`
	Timeout      time.Duration `envconfig:"MARKETSYNC_MELI_TIMEOUT" default:"15s"`
}

type FalabellaConfig struct {
	BaseURL string        `envconfig:"MARKETSYNC_FALABELLA_BASE_URL" default:"https://sellercenter-api.falabella.com"`
	UserID  string        `envconfig:"MARKETSYNC_FALABELLA_USER_ID"`
	APIKey  string        `envconfig:"MARKETSYNC_FALABELLA_API_KEY"`
	Timeout time.Duration `envconfig:"MARKETSYNC_FALABELLA_TIMEOUT" default:"15s"`
}

// Enabled reports whether Falabella credentials were provided.
func (f FalabellaConfig) Enabled() bool {
	return strings.TrimSpace(f.UserID) != "" && strings.TrimSpace(f.APIKey) != ""
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"MARKETSYNC_WEBHOOK_IDEMPOTENCY_TTL" default:"10m"`
	FlexLockTTL    time.Duration `envconfig:"MARKETSYNC_FLEX_LOCK_TTL" default:"2m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:marketsync.db?cache=shared"
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
