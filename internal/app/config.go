package app

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/adanyl0v/go-boards/internal/config"
)

func MustReadEnv() {
	cfg, err := config.NewEnvReader().Read()
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to read env")
		panic(err)
	}
	globalLogger.Info().
		Str("env", cfg.Env).
		Str("storage_driver", cfg.Storage.Driver).
		Msg("read env")

	config.SetGlobal(cfg)
}

// MustReadClientEnv reads the API settings used by the client commands.
// It does not require the server env to be present.
func MustReadClientEnv() *config.ClientConfig {
	cfg, err := config.ReadClient()
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to read client env")
		panic(err)
	}
	return cfg
}
