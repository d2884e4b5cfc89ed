package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/cellarbook-backend/api/routes"
	"github.com/angelmondragon/cellarbook-backend/internal/auth"
	"github.com/angelmondragon/cellarbook-backend/internal/consumed"
	"github.com/angelmondragon/cellarbook-backend/internal/friends"
	"github.com/angelmondragon/cellarbook-backend/internal/inventory"
	"github.com/angelmondragon/cellarbook-backend/internal/stats"
	"github.com/angelmondragon/cellarbook-backend/internal/users"
	"github.com/angelmondragon/cellarbook-backend/internal/wines"
	"github.com/angelmondragon/cellarbook-backend/internal/wishlist"
	"github.com/angelmondragon/cellarbook-backend/pkg/auth/session"
	"github.com/angelmondragon/cellarbook-backend/pkg/config"
	"github.com/angelmondragon/cellarbook-backend/pkg/db"
	"github.com/angelmondragon/cellarbook-backend/pkg/email"
	"github.com/angelmondragon/cellarbook-backend/pkg/logger"
	"github.com/angelmondragon/cellarbook-backend/pkg/metrics"
	"github.com/angelmondragon/cellarbook-backend/pkg/migrate"
	"github.com/angelmondragon/cellarbook-backend/pkg/openai"
	"github.com/angelmondragon/cellarbook-backend/pkg/redis"
	"github.com/angelmondragon/cellarbook-backend/pkg/storage/gcs"
)

const (
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	aiClient, err := openai.NewFromConfig(cfg.AI, openai.WithMetrics(metrics.NewAICallMetrics(prometheus.DefaultRegisterer)))
	if err != nil {
		return err
	}

	mailer, err := email.NewFromConfig(cfg.Sendgrid, logg)
	if err != nil {
		return err
	}

	deps := routes.Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Cache:    redisClient,
		Sessions: sessionManager,
	}

	userRepo := users.NewRepository(dbClient.DB())
	wineRepo := wines.NewRepository(dbClient.DB())

	wineParams := wines.ServiceParams{
		TxRunner:    dbClient,
		Repo:        wineRepo,
		Labels:      aiClient,
		Enricher:    aiClient,
		Prices:      aiClient,
		ImagePrefix: cfg.GCS.LabelPrefix,
		AITimeout:   cfg.AI.Timeout,
		Logger:      logg,
	}
	if cfg.GCS.Enabled() {
		storage, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := storage.Close(); err != nil {
				logg.Error(context.Background(), "error closing gcs client", err)
			}
		}()
		wineParams.Images = storage
		deps.Storage = storage
	} else {
		logg.Warn(ctx, "gcs bucket not configured, label images will not be stored")
	}

	if deps.Auth, err = auth.NewService(auth.ServiceParams{
		TxRunner:       dbClient,
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	}); err != nil {
		return err
	}
	if deps.Passwords, err = auth.NewPasswordService(auth.PasswordServiceParams{
		TxRunner:       dbClient,
		UserRepo:       userRepo,
		TokenRepo:      auth.NewResetTokenRepository(dbClient.DB()),
		Sessions:       sessionManager,
		Mailer:         mailer,
		Logger:         logg,
		PasswordConfig: cfg.Password,
		AppBaseURL:     cfg.App.BaseURL,
	}); err != nil {
		return err
	}
	if deps.Wines, err = wines.NewService(wineParams); err != nil {
		return err
	}
	if deps.Inventory, err = inventory.NewService(inventory.ServiceParams{
		Repo:  inventory.NewRepository(dbClient.DB()),
		Wines: wineRepo,
	}); err != nil {
		return err
	}
	if deps.Wishlist, err = wishlist.NewService(wishlist.ServiceParams{
		TxRunner: dbClient,
		Repo:     wishlist.NewRepository(dbClient.DB()),
	}); err != nil {
		return err
	}
	if deps.Consumed, err = consumed.NewService(consumed.ServiceParams{
		TxRunner: dbClient,
		Repo:     consumed.NewRepository(dbClient.DB()),
	}); err != nil {
		return err
	}
	if deps.Friends, err = friends.NewService(friends.ServiceParams{
		TxRunner:   dbClient,
		Repo:       friends.NewRepository(dbClient.DB()),
		Users:      userRepo,
		Wines:      wineRepo,
		InviteTTL:  cfg.Social.InviteTTL,
		AppBaseURL: cfg.App.BaseURL,
	}); err != nil {
		return err
	}
	if deps.Stats, err = stats.NewService(stats.NewRepository(dbClient.DB())); err != nil {
		return err
	}

	port := cfg.App.Port
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "port", port), "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logg.Info(ctx, "shutting down api server")
	return server.Shutdown(shutdownCtx)
}
