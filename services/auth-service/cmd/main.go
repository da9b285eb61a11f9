package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/database"
	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/handler"
	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/sello-auth-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/sello-auth-api/shared/auth"
	"github.com/vasapolrittideah/sello-auth-api/shared/logger"
	"github.com/vasapolrittideah/sello-auth-api/shared/mailer"
	"github.com/vasapolrittideah/sello-auth-api/shared/security"
	"github.com/vasapolrittideah/sello-auth-api/shared/validation"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("auth service stopped")
	}
}

func run(ctx context.Context, cfg *config.AuthServiceConfig, log *zerolog.Logger) error {
	client, err := database.Connect(ctx, log, cfg.Mongo.URI)
	if err != nil {
		return err
	}
	defer database.Disconnect(log, client)

	userRepo, err := repository.NewUserMongoRepository(ctx, client.Database(cfg.Mongo.Database))
	if err != nil {
		return err
	}

	hasher, err := security.NewHasher(cfg.Password.Hasher, cfg.Password.BcryptCost)
	if err != nil {
		return err
	}

	m, err := mailer.NewMailer(cfg.Mailer, log)
	if err != nil {
		return err
	}

	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Issuer, cfg.Token.Issuer)
	validator := validation.New()

	authUsecase := usecase.NewAuthUsecase(userRepo, hasher, jwtAuth, validator, cfg)
	passwordResetUsecase := usecase.NewPasswordResetUsecase(userRepo, hasher, m, validator, cfg, log)

	authHandler := handler.NewAuthHTTPHandler(authUsecase, passwordResetUsecase, jwtAuth, cfg)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(log, cfg.RequestTimeout, authHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("auth service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
