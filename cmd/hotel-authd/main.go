package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	auth "github.com/hoteldesk/go-auth"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	ctx := context.Background()

	cfg := gconfig.New(&AppConfig{})
	if err := cfg.Load(ctx); err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	conf := cfg.Raw()

	if conf.Debug {
		fmt.Println(print.MaybeHighlightJSON(conf))
	}

	db, err := setupPersistence(ctx, conf)
	if err != nil {
		log.Fatalf("persistence setup failed: %v", err)
	}

	repo := auth.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		log.Fatalf("repository validation failed: %v", err)
	}

	logger := appLogger{}

	tokens := auth.NewTokenService(&conf.Auth, logger)

	mailer, err := setupMailer(conf, logger)
	if err != nil {
		log.Fatalf("mailer setup failed: %v", err)
	}

	sink := auth.NewAuditLogSink(repo.AuditLogs())

	provider := auth.NewUserProvider(repo.Users()).
		WithRequireVerified(conf.Auth.GetRequireEmailVerification()).
		WithLogger(logger)

	auther := auth.NewAuthenticator(provider, repo.Users(), tokens).
		WithActivitySink(sink).
		WithLogger(logger)

	register := auth.NewRegisterUserHandler(repo, tokens, mailer).
		WithRequireVerification(conf.Auth.GetRequireEmailVerification()).
		WithActivitySink(sink).
		WithLogger(logger)

	sendVerif := auth.NewSendVerificationHandler(repo.Users(), tokens, mailer).
		WithLogger(logger)

	verify := auth.NewVerifyEmailHandler(repo.Users(), tokens, mailer).
		WithActivitySink(sink).
		WithLogger(logger)

	resetInit := auth.NewPasswordResetInitHandler(repo.Users(), tokens, mailer).
		WithLogger(logger)

	reset := auth.NewPasswordResetHandler(repo.Users(), tokens).
		WithActivitySink(sink).
		WithLogger(logger)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	auth.NewAuditJanitor(repo.AuditLogs()).
		WithLogger(logger).
		Start(janitorCtx)

	app := fiber.New(fiber.Config{
		AppName:      "hotel-authd",
		ErrorHandler: auth.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	controller := auth.NewHTTPController(
		&conf.Auth,
		auther,
		register,
		sendVerif,
		verify,
		resetInit,
		reset,
		auth.WithControllerLogger(logger),
		auth.WithControllerDebug(conf.Debug),
	)

	api := app.Group("/auth")
	controller.RegisterRoutes(api)

	guard := auth.NewRouteGuard(tokens, repo.Users()).WithLogger(logger)

	// sample protected surface so deployments can smoke test role gating
	me := app.Group("/me", guard.Protected())
	me.Get("/", func(c *fiber.Ctx) error {
		user, _ := auth.UserFromLocals(c)
		return c.JSON(user.Public())
	})

	admin := app.Group("/admin", guard.Protected(), guard.RequireRoles(auth.RoleAdmin, auth.RoleManager))
	admin.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	go func() {
		if err := app.Listen(conf.Server.GetAddress()); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	waitExitSignal()

	stopJanitor()
	if err := app.Shutdown(); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func setupPersistence(ctx context.Context, conf *AppConfig) (*bun.DB, error) {
	db, err := sql.Open(sqliteshim.ShimName, conf.Persistence.GetDSN())
	if err != nil {
		return nil, err
	}

	persistence.RegisterModel((*auth.User)(nil))
	persistence.RegisterModel((*auth.AuditLog)(nil))

	client, err := persistence.New(conf.Persistence, db, sqlitedialect.New())
	if err != nil {
		return nil, err
	}

	migrationsFS, err := fs.Sub(auth.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	return client.DB(), nil
}

func setupMailer(conf *AppConfig, logger auth.Logger) (auth.Mailer, error) {
	if conf.SMTP.Host == "" {
		logger.Info("no SMTP host configured, emails go to the log")
		return auth.LogMailer{Logger: logger}, nil
	}

	return auth.NewSMTPMailer(conf.SMTP, conf.Auth.GetPublicURL(), logger)
}

func waitExitSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

type appLogger struct{}

func (appLogger) Debug(format string, args ...any) {
	log.Printf("[DBG] "+format, args...)
}

func (appLogger) Info(format string, args ...any) {
	log.Printf("[INF] "+format, args...)
}

func (appLogger) Error(format string, args ...any) {
	log.Printf("[ERR] "+format, args...)
}
