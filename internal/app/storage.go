package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/adanyl0v/go-boards/internal/config"
	"github.com/adanyl0v/go-boards/internal/storage"
	"github.com/adanyl0v/go-boards/internal/storage/migrations"
	"github.com/adanyl0v/go-boards/internal/storage/postgres"
	"github.com/adanyl0v/go-boards/internal/storage/sqlite"
)

var (
	globalStore    storage.Store
	globalDataLock *flock.Flock
)

// MustOpenStorage opens the configured backend and brings its schema
// up to date.
func MustOpenStorage() {
	cfg := config.Global()
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		store := mustOpenPostgresStore()
		mustMigratePostgres(store, migrations.CommandUp)
		globalStore = store
	case config.StorageDriverSQLite:
		globalStore = mustOpenSQLite(cfg.SQLite.Path)
	default:
		panic(fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver))
	}
}

func CloseStorage() {
	if config.Global().Storage.Driver == config.StorageDriverPostgres {
		closePostgres()
		return
	}

	if err := globalStore.Close(); err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to close sqlite database")
	}
	if globalDataLock != nil {
		_ = globalDataLock.Unlock()
	}
	globalLogger.Info().Msg("closed sqlite database")
}

// MustMigrate runs a single goose command against the configured backend.
// The sqlite backend is always migrated up on open, so down and status
// act on the latest schema.
func MustMigrate(command string) {
	cfg := config.Global()
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		store := mustOpenPostgresStore()
		defer closePostgres()
		mustMigratePostgres(store, command)
	case config.StorageDriverSQLite:
		store := mustOpenSQLite(cfg.SQLite.Path)
		globalStore = store
		defer CloseStorage()

		err := migrations.Run(context.Background(), globalLogger, store.DB(), migrations.DialectSQLite, command)
		if err != nil {
			globalLogger.Error().
				Err(err).
				Str("command", command).
				Msg("failed to migrate sqlite database")
			panic(err)
		}
	default:
		panic(fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver))
	}
	globalLogger.Info().
		Str("command", command).
		Msg("migrated database")
}

func mustMigratePostgres(store *postgres.Store, command string) {
	db := store.DB()
	defer db.Close()

	err := migrations.Run(context.Background(), globalLogger, db, migrations.DialectPostgres, command)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Str("command", command).
			Msg("failed to migrate postgres")
		panic(err)
	}
}

// mustOpenSQLite holds an exclusive lock on the data directory so that
// only one process writes the file.
func mustOpenSQLite(path string) *sqlite.Store {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		globalLogger.Error().
			Err(err).
			Str("dir", dir).
			Msg("failed to create data directory")
		panic(err)
	}

	globalDataLock = flock.New(filepath.Join(dir, "boards.lock"))
	locked, err := globalDataLock.TryLock()
	if err == nil && !locked {
		err = fmt.Errorf("another process is using %s", dir)
	}
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to lock data directory")
		panic(err)
	}

	store, err := sqlite.Open(context.Background(), globalLogger, path)
	if err != nil {
		_ = globalDataLock.Unlock()
		globalLogger.Error().
			Err(err).
			Str("path", path).
			Msg("failed to open sqlite database")
		panic(err)
	}

	globalLogger.Info().
		Str("path", path).
		Msg("opened sqlite database")
	return store
}
