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
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Alerts       AlertsConfig
	Slack        SlackConfig
	OpenAI       OpenAIConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Feed         FeedConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"INVENTO_APP_ENV" required:"true"`
	Port         string `envconfig:"INVENTO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"INVENTO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"INVENTO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ServiceConfig identifies machine-to-machine callers. Requests
// presenting the API key bypass JWT auth and role checks.
type ServiceConfig struct {
	Kind   string `envconfig:"INVENTO_SERVICE_KIND" default:"api"`
	APIKey string `envconfig:"INVENTO_SERVICE_API_KEY"`
}

type DBConfig struct {
	DSN    string `envconfig:"INVENTO_DB_DSN"`
	Driver string `envconfig:"INVENTO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"INVENTO_DB_HOST"`
	LegacyPort     int    `envconfig:"INVENTO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"INVENTO_DB_USER"`
	LegacyPassword string `envconfig:"INVENTO_DB_PASSWORD"`
	LegacyName     string `envconfig:"INVENTO_DB_NAME"`
	LegacySSLMode  string `envconfig:"INVENTO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"INVENTO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"INVENTO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"INVENTO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"INVENTO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"INVENTO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"INVENTO_REDIS_ADDR"`
	Password     string        `envconfig:"INVENTO_REDIS_PASSWORD"`
	DB           int           `envconfig:"INVENTO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"INVENTO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"INVENTO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"INVENTO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"INVENTO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"INVENTO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"INVENTO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"INVENTO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"INVENTO_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"INVENTO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"INVENTO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"INVENTO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"INVENTO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"INVENTO_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"INVENTO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"INVENTO_AUTO_MIGRATE" default:"false"`
}

// AlertsConfig governs low-stock notification fan-out.
type AlertsConfig struct {
	Recipient string `envconfig:"INVENTO_ALERT_RECIPIENT" default:"all"`
}

type SlackConfig struct {
	BotToken      string `envconfig:"INVENTO_SLACK_BOT_TOKEN"`
	AppToken      string `envconfig:"INVENTO_SLACK_APP_TOKEN"`
	WebhookURL    string `envconfig:"INVENTO_SLACK_WEBHOOK_URL"`
	MirrorChannel string `envconfig:"INVENTO_SLACK_MIRROR_CHANNEL"`
	Debug         bool   `envconfig:"INVENTO_SLACK_DEBUG" default:"false"`
}

type OpenAIConfig struct {
	APIKey string `envconfig:"INVENTO_OPENAI_API_KEY"`
	Model  string `envconfig:"INVENTO_OPENAI_MODEL" default:"gpt-4o-mini"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"INVENTO_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"INVENTO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"INVENTO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	Enabled            bool   `envconfig:"INVENTO_PUBSUB_ENABLED" default:"false"`
	ChangeTopic        string `envconfig:"INVENTO_PUBSUB_CHANGE_TOPIC" default:"invento-change-events"`
	AlertsTopic        string `envconfig:"INVENTO_PUBSUB_ALERTS_TOPIC" default:"invento-alert-events"`
	AlertsSubscription string `envconfig:"INVENTO_PUBSUB_ALERTS_SUBSCRIPTION"`
}

// FeedConfig tunes the per-collection change watchers.
type FeedConfig struct {
	PollInterval  time.Duration `envconfig:"INVENTO_FEED_POLL_INTERVAL" default:"500ms"`
	BackoffBase   time.Duration `envconfig:"INVENTO_FEED_BACKOFF_BASE" default:"500ms"`
	BackoffCap    time.Duration `envconfig:"INVENTO_FEED_BACKOFF_CAP" default:"10s"`
	BatchSize     int           `envconfig:"INVENTO_FEED_BATCH_SIZE" default:"100"`
	ClientBuffer  int           `envconfig:"INVENTO_FEED_CLIENT_BUFFER" default:"64"`
	MirrorUpdates bool          `envconfig:"INVENTO_FEED_MIRROR_UPDATES" default:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"INVENTO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"INVENTO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"INVENTO_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
