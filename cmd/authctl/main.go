// Command authctl runs maintenance tasks against the auth database.
//
//	authctl admin -email jane@example.com          grant admin
//	authctl admin -email jane@example.com -revoke  revoke admin
//	authctl purge-sessions                         drop idle sessions
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	auth "github.com/goliatone/go-session-auth"
	"github.com/goliatone/go-session-auth/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "authctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: authctl <admin|purge-sessions> [flags]")
	}

	cfg, err := config.Load(".env", nil)
	if err != nil {
		return err
	}

	logger := auth.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	if err := auth.CreateSchema(ctx, db); err != nil {
		return err
	}

	repo := auth.NewRepositoryManager(db, auth.WithSessionTimeout(cfg.SessionTimeout))

	switch args[0] {
	case "admin":
		return setAdmin(ctx, repo.Users(), args[1:], out, logger)
	case "purge-sessions":
		n, err := repo.Sessions().PurgeExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "purged %d sessions\n", n)
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func setAdmin(ctx context.Context, users auth.Users, args []string, out io.Writer, logger auth.Logger) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	revoke := fs.Bool("revoke", false, "revoke admin instead of granting it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return fmt.Errorf("admin: -email is required")
	}

	user, err := users.GetByEmail(ctx, auth.NormalizeEmail(*email))
	if err != nil {
		if auth.IsNotFound(err) {
			return fmt.Errorf("admin: no account for %s", *email)
		}
		return err
	}

	if err := users.SetAdmin(ctx, user.ID, !*revoke); err != nil {
		return err
	}

	logger.Info("admin flag changed", "user_id", user.ID.String(), "admin", !*revoke)
	fmt.Fprintf(out, "%s admin=%t\n", user.Email, !*revoke)
	return nil
}
