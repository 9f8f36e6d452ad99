package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "RENPAY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "RENPAY_DB_DSN"
	EnvDBHost = "RENPAY_DB_HOST"
	EnvDBUser = "RENPAY_DB_USER"
	EnvDBName = "RENPAY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	FeatureFlags FeatureFlagsConfig
	PayPal       PayPalConfig
	SMTP         SMTPConfig
	Media        MediaConfig
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
	Env          string `envconfig:"RENPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"RENPAY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RENPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RENPAY_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"RENPAY_APP_URL" default:"https://renpay.example.com"`

	CORSOrigins []string `envconfig:"RENPAY_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RENPAY_DB_DSN"`
	Driver string `envconfig:"RENPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RENPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"RENPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RENPAY_DB_USER"`
	LegacyPassword string `envconfig:"RENPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"RENPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"RENPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RENPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RENPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RENPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RENPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RENPAY_AUTO_MIGRATE" default:"false"`
}

type PayPalConfig struct {
	ClientID      string `envconfig:"RENPAY_PAYPAL_CLIENT_ID"`
	ClientSecret  string `envconfig:"RENPAY_PAYPAL_CLIENT_SECRET"`
	Env           string `envconfig:"RENPAY_PAYPAL_ENV" default:"sandbox"`
	PlanIDMonthly string `envconfig:"RENPAY_PAYPAL_PLAN_ID_MONTHLY"`
	PlanIDAnnual  string `envconfig:"RENPAY_PAYPAL_PLAN_ID_ANNUAL"`
}

// Environment returns the normalized PayPal environment (sandbox/live).
func (p PayPalConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// IsLive reports whether the gateway should hit PayPal production.
func (p PayPalConfig) IsLive() bool {
	return p.Environment() == "live"
}

type SMTPConfig struct {
	Host      string `envconfig:"RENPAY_SMTP_HOST"`
	Port      int    `envconfig:"RENPAY_SMTP_PORT" default:"587"`
	User      string `envconfig:"RENPAY_SMTP_USER"`
	Password  string `envconfig:"RENPAY_SMTP_PASS"`
	FromEmail string `envconfig:"RENPAY_SMTP_FROM_EMAIL"`
	FromName  string `envconfig:"RENPAY_SMTP_FROM_NAME" default:"Renpay"`
}

// Configured reports whether SMTP delivery can be attempted at all.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.User != "" && s.Password != ""
}

// Sender returns the effective from address.
func (s SMTPConfig) Sender() string {
	if s.FromEmail != "" {
		return s.FromEmail
	}
	return s.User
}

type MediaConfig struct {
	DriveAPIKey         string `envconfig:"RENPAY_GOOGLE_DRIVE_API_KEY"`
	DropboxAppKey       string `envconfig:"RENPAY_DROPBOX_APP_KEY"`
	DropboxAppSecret    string `envconfig:"RENPAY_DROPBOX_APP_SECRET"`
	DropboxRefreshToken string `envconfig:"RENPAY_DROPBOX_REFRESH_TOKEN"`
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
