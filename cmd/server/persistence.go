package main

import (
	"context"
	"database/sql"
	"fmt"

	auth "github.com/goliatone/go-session-auth"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// WithPersistence opens the sqlite database, creates the schema and
// builds the repositories.
func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// sqlite allows a single writer
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	if err := auth.CreateSchema(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("create schema: %w", err)
	}

	app.db = db
	app.hasher = auth.NewBcryptHasher(app.config.GetHashCost())
	app.repo = auth.NewRepositoryManager(db,
		auth.WithUsersOptions(auth.WithUsersHasher(app.hasher)),
		auth.WithSessionTimeout(app.config.SessionTimeout),
	)
	app.repo.MustValidate()

	return nil
}
