package config

import "time"

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

var globalConfig *Config

func Global() *Config {
	return globalConfig
}

func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

type Config struct {
	Env      string `env:"ENV" env-required:"true"`
	HTTP     HTTPConfig
	JWT      JWTConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	SQLite   SQLiteConfig
	Redis    RedisConfig
}

type HTTPConfig struct {
	Host            string        `env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// JWTConfig describes the tokens issued by the external authentication
// service. An empty issuer disables the issuer check.
type JWTConfig struct {
	Issuer     string `env:"JWT_ISSUER"`
	SigningKey string `env:"JWT_SIGNING_KEY" env-required:"true"`
}

type StorageConfig struct {
	Driver string `env:"STORAGE_DRIVER" env-default:"postgres"`
}

// PostgresConfig fields are checked only when the postgres driver is used.
type PostgresConfig struct {
	Host           string        `env:"POSTGRES_HOST" env-default:"localhost"`
	Port           int           `env:"POSTGRES_PORT" env-default:"5432"`
	Username       string        `env:"POSTGRES_USERNAME"`
	Password       string        `env:"POSTGRES_PASSWORD"`
	Database       string        `env:"POSTGRES_DATABASE"`
	SSLMode        string        `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	ConnectTimeout time.Duration `env:"POSTGRES_CONNECT_TIMEOUT" env-default:"10s"`
	PingTimeout    time.Duration `env:"POSTGRES_PING_TIMEOUT" env-default:"10s"`
	MaxConns       int32         `env:"POSTGRES_MAX_CONNS" env-default:"10"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" env-default:"data/boards.db"`
}

// RedisConfig enables the board snapshot cache when URL is set.
type RedisConfig struct {
	URL         string        `env:"REDIS_URL"`
	SnapshotTTL time.Duration `env:"REDIS_SNAPSHOT_TTL" env-default:"5m"`
}

// ClientConfig is read by the CLI commands that call the API.
type ClientConfig struct {
	APIURL  string        `env:"BOARDS_API_URL" env-default:"http://localhost:8080"`
	Token   string        `env:"BOARDS_API_TOKEN"`
	Timeout time.Duration `env:"BOARDS_API_TIMEOUT" env-default:"10s"`
}
