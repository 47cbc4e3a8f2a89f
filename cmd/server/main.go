package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	auth "github.com/goliatone/go-session-auth"
	"github.com/goliatone/go-session-auth/activitymap"
	"github.com/goliatone/go-session-auth/config"
	"github.com/goliatone/go-session-auth/middleware/csrf"
	"github.com/goliatone/go-session-auth/notifier/smtp"
	"github.com/uptrace/bun"
)

type App struct {
	config   *config.Config
	logger   *auth.SlogLogger
	db       *bun.DB
	repo     auth.RepositoryManager
	hasher   auth.PasswordHasher
	sessions *auth.SessionManager
	auther   *auth.Authenticator
	notifier auth.Notifier
	activity auth.ActivitySink
	srv      router.Server[*fiber.App]
}

func main() {
	cfg, err := config.Load(".env", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	lgr := auth.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if cfg.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybeHighlightJSON(redacted(cfg)))
		fmt.Println("============")
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Error("persistence setup failed", "error", err)
		os.Exit(1)
	}
	defer app.db.Close()

	WithAuth(ctx, app)
	WithHTTPServer(app)

	go func() {
		lgr.Info("listening", "address", cfg.Address)
		if err := app.srv.Serve(cfg.Address); err != nil {
			lgr.Error("server stopped", "error", err)
		}
	}()

	sig := WaitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		lgr.Error("shutdown failed", "error", err)
	}
}

// WithAuth builds the credential, session and mail services
func WithAuth(ctx context.Context, app *App) {
	cfg := app.config

	app.activity = activitymap.NewLogSink(app.logger.With("component", "activity"))

	var store auth.SessionStore
	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		store = auth.NewMemorySessionStore(cfg.SessionTimeout)
	default:
		store = app.repo.Sessions()
		go purgeSessions(ctx, app.repo.Sessions(), cfg.SessionTimeout, app.logger)
	}

	if cfg.SMTPHost == "" {
		app.notifier = auth.NewLogNotifier(cfg.BaseURL)
	} else {
		app.notifier = smtp.New(smtp.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			BaseURL:  cfg.BaseURL,
		}, smtp.WithAsync(true), smtp.WithLogger(app.logger.With("component", "mailer")))
	}

	app.sessions = auth.NewSessionManager(
		app.repo.Users(),
		store,
		app.hasher,
		auth.NewCookieSigner([]byte(cfg.GetSigningKey())),
		auth.WithSessionLogger(app.logger.With("component", "session")),
		auth.WithSessionActivitySink(app.activity),
		auth.WithSessionCookieName(cfg.GetSessionCookieName()),
		auth.WithSecureCookies(cfg.GetSecureCookies()),
	)

	app.auther = auth.NewAuthenticator(app.repo.Users(), app.hasher).
		WithLogger(app.logger.With("component", "authenticator")).
		WithActivitySink(app.activity)
}

func WithHTTPServer(app *App) {
	cfg := app.config

	app.srv = router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: cfg.Debug,
			StrictRouting:     false,
		}))
	})

	r := app.srv.Router()
	// flash resumes the chain with ctx.Next, so it has to be mounted first
	r.Use(flash.ToMiddleware(flash.DefaultFlash, "flash"))
	r.Use(auth.SessionMiddleware(app.sessions))

	key := sha256.Sum256([]byte(cfg.GetSigningKey()))
	r.Use(csrf.New(csrf.Config{
		SecureKey: key[:],
		Session: func(ctx router.Context) (csrf.TokenStore, bool) {
			rs, ok := auth.GetRequestSession(ctx)
			if !ok {
				return nil, false
			}
			return rs, true
		},
	}))
	csrf.RegisterRoutes(r)

	handlerOpts := []auth.HandlerOption{
		auth.WithHasher(app.hasher),
		auth.WithNotifier(app.notifier),
		auth.WithActivitySink(app.activity),
		auth.WithResetExpiration(cfg.GetResetTokenExpiration()),
	}

	auth.RegisterAuthRoutes(r, func(c *auth.AuthController) *auth.AuthController {
		c.Debug = cfg.Debug
		c.Logger = app.logger.With("component", "auth-http")
		c.Repo = app.repo
		c.Auther = app.auther
		c.HandlerOptions = handlerOpts
		return c
	})

	auth.RegisterUserRoutes(r, func(c *auth.UsersController) *auth.UsersController {
		c.Debug = cfg.Debug
		c.Logger = app.logger.With("component", "users-http")
		c.Repo = app.repo
		c.Activity = app.activity
		c.HandlerOptions = handlerOpts
		return c
	})
}

// purgeSessions drops idle sessions from the database every timeout
// interval, capped at one hour.
func purgeSessions(ctx context.Context, store *auth.DBSessionStore, timeout time.Duration, logger auth.Logger) {
	every := min(timeout, time.Hour)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				logger.Warn("session purge failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("purged sessions", "count", n)
			}
		}
	}
}

func redacted(cfg *config.Config) config.Config {
	out := *cfg
	out.SigningKey = "********"
	if out.SMTPPassword != "" {
		out.SMTPPassword = "********"
	}
	return out
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
