package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Reader interface {
	Read() (*Config, error)
}

type EnvReader struct{}

func NewEnvReader() EnvReader {
	return EnvReader{}
}

func (EnvReader) Read() (*Config, error) {
	cfg := new(Config)
	err := cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, err
	}

	if err = cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown env: %s", cfg.Env)
	}

	if cfg.JWT.SigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY must not be empty")
	}

	switch cfg.Storage.Driver {
	case StorageDriverSQLite:
		if cfg.SQLite.Path == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case StorageDriverPostgres:
		pg := cfg.Postgres
		if pg.Username == "" || pg.Password == "" || pg.Database == "" {
			return fmt.Errorf("POSTGRES_USERNAME, POSTGRES_PASSWORD and POSTGRES_DATABASE are required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
	return nil
}

// ReadClient reads the CLI's API settings.
func ReadClient() (*ClientConfig, error) {
	cfg := new(ClientConfig)
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
