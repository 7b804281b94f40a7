package main

import (
	"database/sql"
	"errors"
	"flag"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/email-tracking-service/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	defaultURL := os.Getenv("DATABASE_URL")
	if defaultURL == "" {
		defaultURL = "sqlite:data/tracking.db"
	}

	var (
		databaseURL = flag.String("database-url", defaultURL, "Database URL (sqlite:<path> or postgres://...)")
		command     = flag.String("command", "up", "Migration command (up, down, force, version)")
		version     = flag.Int("version", 1, "Version for the force command")
	)
	flag.Parse()

	dialect, source, err := store.ParseDSN(*databaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse database URL")
	}

	db, driver, err := openDriver(dialect, source)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migration driver")
	}
	defer db.Close()

	migrations, err := store.Migrations(dialect)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load migrations")
	}
	src, err := iofs.New(migrations, ".")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open migration source")
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), driver)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrator")
	}

	switch *command {
	case "up":
		log.Info().Str("dialect", string(dialect)).Msg("Applying migrations...")
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Migrations applied successfully")
	case "down":
		log.Info().Str("dialect", string(dialect)).Msg("Reverting migrations...")
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("Failed to revert migrations")
		}
		log.Info().Msg("Migrations reverted successfully")
	case "force":
		log.Info().Int("version", *version).Msg("Forcing migration version...")
		if err := m.Force(*version); err != nil {
			log.Fatal().Err(err).Msg("Failed to force migration version")
		}
		log.Info().Msg("Migration version forced successfully")
	case "version":
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatal().Err(err).Msg("Failed to read migration version")
		}
		log.Info().Uint("version", v).Bool("dirty", dirty).Msg("Current migration version")
	default:
		log.Fatal().Msgf("Unknown command: %s", *command)
	}
}

func openDriver(dialect store.Dialect, source string) (*sql.DB, database.Driver, error) {
	switch dialect {
	case store.DialectPostgres:
		config, err := pgx.ParseConfig(source)
		if err != nil {
			return nil, nil, err
		}
		db := stdlib.OpenDB(*config)
		driver, err := postgres.WithInstance(db, &postgres.Config{})
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, driver, nil
	default:
		db, err := sql.Open("sqlite3", source)
		if err != nil {
			return nil, nil, err
		}
		driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, driver, nil
	}
}
