package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

// minProdSecretLen keeps short development secrets out of production.
const minProdSecretLen = 32

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	AI            AIConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Sendgrid      SendgridConfig
	Social        SocialConfig
	Cron          CronConfig
}

// Load reads CELLARBOOK_* variables, derives the database DSN when only the
// discrete DB_* parts are set, and reports every invalid setting at once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.resolveDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express as tags.
func (c *Config) Validate() error {
	var errs error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf(format, args...))
		}
	}

	port, err := strconv.Atoi(c.App.Port)
	check(err == nil && port > 0 && port < 65536, "%s must be a TCP port, got %q", EnvPort, c.App.Port)
	check(c.JWT.ExpirationMinutes > 0, "%s must be positive", EnvJWTExpMins)
	check(!c.App.IsProd() || len(c.JWT.Secret) >= minProdSecretLen,
		"%s must be at least %d characters in prod", EnvJWTSecret, minProdSecretLen)
	check(c.Password.ResetTokenTTL > 0, "password reset ttl must be positive")
	check(c.Social.InviteTTL > 0, "%s must be positive", EnvInviteTTL)
	check(c.FeatureFlags.IdempotencyTTL > 0, "idempotency ttl must be positive")
	check(c.Cron.Interval > 0, "cron interval must be positive")
	check(c.AI.Timeout > 0, "%s must be positive", EnvOpenAITimeout)
	if c.DB.IsSQLite() {
		check(!c.App.IsProd(), "sqlite is only supported outside prod")
	}
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"CELLARBOOK_APP_ENV" required:"true"`
	Port         string `envconfig:"CELLARBOOK_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"CELLARBOOK_APP_BASE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"CELLARBOOK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CELLARBOOK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CELLARBOOK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CELLARBOOK_DB_DSN"`
	Driver string `envconfig:"CELLARBOOK_DB_DRIVER" default:"postgres"`

	// Discrete parts, used only when DSN is empty.
	Host     string `envconfig:"CELLARBOOK_DB_HOST"`
	Port     int    `envconfig:"CELLARBOOK_DB_PORT" default:"5432"`
	User     string `envconfig:"CELLARBOOK_DB_USER"`
	Password string `envconfig:"CELLARBOOK_DB_PASSWORD"`
	Name     string `envconfig:"CELLARBOOK_DB_NAME"`
	SSLMode  string `envconfig:"CELLARBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CELLARBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CELLARBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CELLARBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CELLARBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver was selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"CELLARBOOK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CELLARBOOK_REDIS_ADDR"`
	Password     string        `envconfig:"CELLARBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"CELLARBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CELLARBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CELLARBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CELLARBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CELLARBOOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CELLARBOOK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CELLARBOOK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CELLARBOOK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CELLARBOOK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CELLARBOOK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int           `envconfig:"CELLARBOOK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int           `envconfig:"CELLARBOOK_ARGON_TIME" default:"3"`
	ArgonParallelism int           `envconfig:"CELLARBOOK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int           `envconfig:"CELLARBOOK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int           `envconfig:"CELLARBOOK_ARGON_KEY_LEN" default:"32"`
	ResetTokenTTL    time.Duration `envconfig:"CELLARBOOK_PASSWORD_RESET_TTL" default:"1h"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"CELLARBOOK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"CELLARBOOK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"CELLARBOOK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow     time.Duration `envconfig:"CELLARBOOK_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"CELLARBOOK_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"CELLARBOOK_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
	ForgotWindow     time.Duration `envconfig:"CELLARBOOK_AUTH_RATE_LIMIT_FORGOT_WINDOW" default:"15m"`
	ForgotEmailLimit int           `envconfig:"CELLARBOOK_AUTH_RATE_LIMIT_FORGOT_EMAIL_LIMIT" default:"3"`
	ForgotIPLimit    int           `envconfig:"CELLARBOOK_AUTH_RATE_LIMIT_FORGOT_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate    bool          `envconfig:"CELLARBOOK_AUTO_MIGRATE" default:"false"`
	IdempotencyTTL time.Duration `envconfig:"CELLARBOOK_IDEMPOTENCY_TTL" default:"24h"`
}

// AIConfig drives the label reader, enrichment, and price lookup collaborators.
type AIConfig struct {
	APIKey      string        `envconfig:"CELLARBOOK_OPENAI_API_KEY"`
	BaseURL     string        `envconfig:"CELLARBOOK_OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	VisionModel string        `envconfig:"CELLARBOOK_OPENAI_VISION_MODEL" default:"gpt-4o"`
	EnrichModel string        `envconfig:"CELLARBOOK_OPENAI_ENRICH_MODEL" default:"gpt-4o"`
	PriceModel  string        `envconfig:"CELLARBOOK_OPENAI_PRICE_MODEL" default:"gpt-4o-search-preview"`
	Timeout     time.Duration `envconfig:"CELLARBOOK_OPENAI_TIMEOUT" default:"45s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CELLARBOOK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CELLARBOOK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CELLARBOOK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string        `envconfig:"CELLARBOOK_GCS_BUCKET_NAME"`
	LabelPrefix   string        `envconfig:"CELLARBOOK_GCS_LABEL_PREFIX" default:"labels"`
	UploadTimeout time.Duration `envconfig:"CELLARBOOK_GCS_UPLOAD_TIMEOUT" default:"30s"`
}

// Enabled reports whether label images should be uploaded at all.
func (g GCSConfig) Enabled() bool {
	return strings.TrimSpace(g.BucketName) != ""
}

type SendgridConfig struct {
	APIKey      string `envconfig:"CELLARBOOK_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"CELLARBOOK_SENDGRID_FROM_EMAIL" default:"no-reply@cellarbook.app"`
}

type SocialConfig struct {
	InviteTTL time.Duration `envconfig:"CELLARBOOK_INVITE_TTL" default:"168h"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"CELLARBOOK_CRON_INTERVAL" default:"1h"`
	LockTTL        time.Duration `envconfig:"CELLARBOOK_CRON_LOCK_TTL" default:"10m"`
	TokenRetention time.Duration `envconfig:"CELLARBOOK_CRON_TOKEN_RETENTION" default:"24h"`
}

func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s is %s", EnvDBDSN, EnvDBDriver, DBDriverSQLite)
	}

	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.New("either " + EnvDBDSN + " or " + strings.Join(missing, ", ") + " must be set")
	}

	u := url.URL{
		Scheme: DBDriverPostgres,
		User:   url.User(db.User),
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}
