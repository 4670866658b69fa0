package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"winetopia_backend/internal/accounts"
	"winetopia_backend/internal/archive"
	"winetopia_backend/internal/email"
	"winetopia_backend/internal/events"
	apphttp "winetopia_backend/internal/http"
	"winetopia_backend/internal/http/router"
	"winetopia_backend/internal/identity"
	"winetopia_backend/internal/notification"
	"winetopia_backend/internal/scheduler"
	"winetopia_backend/internal/tickets"
	"winetopia_backend/platform/config"
	"winetopia_backend/platform/db"
	"winetopia_backend/platform/logger"
	"winetopia_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "storeDriver", cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	eventBus := events.NewInMemoryBus(log)

	var (
		store      accounts.Store
		identities identity.Provider
		health     apphttp.HealthChecker
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool := connectDatabase(ctx, cfg, log)
		defer pool.Close()
		store = accounts.NewPostgresStore(pool)
		identities = identity.NewPostgresProvider(pool, eventBus, cfg.GetIdentityInitialPassword())
		health = pool
	default:
		log.Warn("using in-memory stores; data is lost on restart")
		store = accounts.NewMemoryStore()
		identities = identity.NewMemoryProvider(eventBus, cfg.GetIdentityInitialPassword())
	}

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	deliverer := notification.NewDeliverer(sender, log)
	asyncNotifier := notification.NewAsyncNotifier(deliverer, log)
	defer asyncNotifier.Close()

	var notifier notification.Notifier = asyncNotifier
	if queueClient, closeQueue := initNotificationQueue(cfg, log); queueClient != nil {
		defer closeQueue()
		notifier = notification.NewQueueNotifier(queueClient, asyncNotifier, log)
	}

	payloads := initPayloadArchive(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(notifier, log)
	notificationModule.RegisterHandlers(eventBus)

	ticketsModule := tickets.NewModule(tickets.Dependencies{
		Accounts:   store,
		Identities: identities,
		Notifier:   notifier,
		Archive:    payloads,
		EventBus:   eventBus,
		Validator:  validator.New(),
		Config:     cfg,
		Logger:     log,
	})

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: health,
		Modules: []apphttp.Module{
			ticketsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
	}

	// let in-flight subscribers finish before the deferred notifier close
	eventBus.Wait()
	log.Info("server stopped")
}

func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *pgxpool.Pool {
	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.DatabaseError("connect", err)
		panic("failed to connect to database: " + err.Error())
	}
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, log)
	}); err != nil {
		log.DatabaseError("migrate", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")
	return pool
}

func initNotificationQueue(cfg *config.Config, log *logger.Logger) (*scheduler.Client, func()) {
	if !cfg.IsNotificationQueued() {
		log.Info("REDIS_URL not configured; notifications are delivered in process")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize notification queue client", "error", err)
		return nil, nil
	}

	log.Info("notification queue enabled", "queue", cfg.GetAsynqQueueName())
	return client, func() {
		_ = client.Close()
	}
}

func initPayloadArchive(ctx context.Context, cfg *config.Config, log *logger.Logger) archive.PayloadArchive {
	if !cfg.IsMinIOEnabled() {
		return archive.NoopArchive{}
	}

	minioArchive, err := archive.NewMinIOArchive(cfg)
	if err != nil {
		log.Error("failed to initialize payload archive", "error", err)
		panic("failed to initialize payload archive: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure webhook payload bucket", 5, 2*time.Second, func() error {
		return minioArchive.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketWebhookPayloads())
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("webhook payload archive initialized", "bucket", cfg.GetMinioBucketWebhookPayloads())
	return minioArchive
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
