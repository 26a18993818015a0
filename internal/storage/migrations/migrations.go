// Package migrations embeds the goose migrations of every supported dialect.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

const (
	CommandUp     = "up"
	CommandDown   = "down"
	CommandStatus = "status"
)

func dir(dialect string) (string, error) {
	switch dialect {
	case DialectPostgres:
		return "postgres", nil
	case DialectSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported dialect: %s", dialect)
	}
}

// Run applies a goose command against db using the embedded
// migrations of the given dialect.
func Run(ctx context.Context, logger zerolog.Logger, db *sql.DB, dialect, command string) error {
	migrationsDir, err := dir(dialect)
	if err != nil {
		return err
	}

	goose.SetLogger(gooseLogger{logger: logger})
	goose.SetBaseFS(files)
	if err = goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	switch command {
	case CommandUp:
		err = goose.UpContext(ctx, db, migrationsDir)
	case CommandDown:
		err = goose.DownContext(ctx, db, migrationsDir)
	case CommandStatus:
		err = goose.StatusContext(ctx, db, migrationsDir)
	default:
		return fmt.Errorf("unknown migrate command: %s", command)
	}
	if err != nil {
		return fmt.Errorf("failed to migrate %s: %w", command, err)
	}
	return nil
}

// gooseLogger routes goose output into zerolog.
type gooseLogger struct {
	logger zerolog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Fatal().Msgf(format, v...)
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info().Msgf(format, v...)
}
