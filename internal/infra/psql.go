package infra

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/chartloop/backend/internal/app/appconfig"
)

func Postgres(conf *appconfig.Config) (*bun.DB, error) {
	// Open a PostgreSQL database.
	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(conf.PostgresDSN)))

	pgdb.SetMaxOpenConns(conf.PostgresMaxOpenConns)
	pgdb.SetMaxIdleConns(conf.PostgresMaxIdleConns)
	pgdb.SetConnMaxLifetime(conf.PostgresConnMaxLifeTime)
	pgdb.SetConnMaxIdleTime(conf.PostgresConnMaxIdleTime)

	// Create a Bun db on top of it.
	db := bun.NewDB(pgdb, pgdialect.New())

	if conf.DevMode {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(conf.BunDebugVerbose),
		))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("infra: psql: failed to ping database")
		return nil, err
	}

	return db, nil
}
