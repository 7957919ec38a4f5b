// Package main initializes and starts the identity HTTP server, setting
// up configuration, logging, the password hashing stack, database
// connections, repositories, services, and handlers.
package main

import (
	"cmp"
	"fmt"

	nethttp "net/http"

	"github.com/mkrylov/identityd/internal/config"
	"github.com/mkrylov/identityd/internal/db"
	"github.com/mkrylov/identityd/internal/logger"
	"github.com/mkrylov/identityd/internal/mailer"
	"github.com/mkrylov/identityd/internal/repository"
	"github.com/mkrylov/identityd/internal/security"
	"github.com/mkrylov/identityd/internal/server/handler/http"
	"github.com/mkrylov/identityd/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Address

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Build the credential stack: algorithm registry, hasher, strength
	// policy and reset-token issuer. Bad configuration aborts startup.
	registry := security.NewRegistry(zapLogger)
	security.RegisterBuiltins(registry)

	hasher, err := security.BuildHasher(registry, options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot build password hasher", zap.Error(err))
	}
	strength, err := security.BuildStrengthPolicy(options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot build strength policy", zap.Error(err))
	}
	tokens, err := security.BuildTokenIssuer(options)
	if err != nil {
		zapLogger.Fatal("cannot build reset token issuer", zap.Error(err))
	}

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Initialize the user repository.
	userRepo := repository.NewPostgresUserRepository(postgresDB)

	// Select the mail transport: a real relay when configured, the log
	// mailer otherwise.
	var mail mailer.Mailer
	if options.SMTPAddr != "" {
		mail = mailer.NewSMTPMailer(options.SMTPAddr, options.MailFrom)
	} else {
		zapLogger.Warn("no SMTP relay configured, mail goes to the log")
		mail = &mailer.LogMailer{Log: zapLogger}
	}

	// Initialize business-logic services.
	userService := service.NewUserService(userRepo, hasher, strength, tokens, mail, zapLogger)

	// Create HTTP handlers and build the router.
	authHandler := &http.AuthHandler{UserService: userService}
	router := http.NewRouter(authHandler, zapLogger)

	// Create and start the HTTP server.
	server := &nethttp.Server{
		Addr:    addr,
		Handler: router,
	}

	zapLogger.Info("starting HTTP server",
		zap.String("addr", addr),
		zap.String("hash_algorithm", hasher.Algorithm()),
	)
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
