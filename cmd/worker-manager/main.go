// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"visa-workers/internal/api"
	"visa-workers/internal/common/aws"
	"visa-workers/internal/common/camunda"
	"visa-workers/internal/common/config"
	"visa-workers/internal/common/database"
	"visa-workers/internal/common/logger"
	"visa-workers/internal/common/observability"
	"visa-workers/internal/i18n"
	"visa-workers/internal/store"
	sendnudge "visa-workers/internal/workers/communication/send-guidance-nudge"
	loadctx "visa-workers/internal/workers/guidance/load-application-context"
	resolve "visa-workers/internal/workers/guidance/resolve-next-step"
	"visa-workers/pkg/registry"
)

var connectRetry = camunda.RetryConfig{
	MaxRetries: 15,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog, err := logger.Build(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
		zapLog.Warn("falling back to stdout logging", zap.Error(err))
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	log.Info("starting worker manager", map[string]interface{}{"environment": cfg.App.Environment})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.Observability.ServiceName)
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability, cfg.App.Version)
	if err != nil {
		zapLog.Fatal("tracing setup failed", zap.Error(err))
	}

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	log.Info("zeebe client connected", nil)

	// --- PostgreSQL ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres setup failed", zap.Error(err))
	}
	defer pg.Close()
	if err := camunda.Retry(ctx, connectRetry, "PostgreSQL connection", log, pg.Ping); err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	if err := database.EnsureSchema(ctx, pg.DB); err != nil {
		zapLog.Fatal("postgres schema setup failed", zap.Error(err))
	}
	log.Info("postgres connected", nil)

	// --- Redis ---
	rdb := database.NewRedis(cfg.Database.Redis)
	defer rdb.Close()
	if err := camunda.Retry(ctx, connectRetry, "Redis connection", log, rdb.Ping); err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	log.Info("redis connected", nil)

	// --- Guidance dependencies ---
	catalog, err := i18n.LoadEmbedded()
	if err != nil {
		zapLog.Fatal("message catalogs failed to load", zap.Error(err))
	}

	reg, err := registry.LoadRegistry(cfg.Guidance.RegistryPath)
	if err != nil {
		log.Warn("activity registry unavailable, using built-in schemas", map[string]interface{}{
			"path":  cfg.Guidance.RegistryPath,
			"error": err.Error(),
		})
		reg = nil
	}

	applications := store.NewApplicationStore(pg.DB, rdb.Client,
		time.Duration(cfg.Guidance.CacheTTL)*time.Second, log)

	resolveHandler, err := resolve.NewHandler(resolve.HandlerOptions{
		Config:   resolve.FromAppConfig(cfg),
		Catalog:  catalog,
		Registry: reg,
		Logger:   log,
		Obs:      obs,
	})
	if err != nil {
		zapLog.Fatal("failed to create resolve-next-step handler", zap.Error(err))
	}

	loadHandler, err := loadctx.NewHandler(loadctx.FromAppConfig(cfg), applications, log, obs)
	if err != nil {
		zapLog.Fatal("failed to create load-application-context handler", zap.Error(err))
	}

	nudgeOpts := sendnudge.HandlerOptions{
		Config: sendnudge.FromAppConfig(cfg),
		Logger: log,
		Obs:    obs,
	}
	if cfg.Notifications.Email.Enabled {
		ses, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.Email.FromEmail)
		if err != nil {
			zapLog.Fatal("ses client setup failed", zap.Error(err))
		}
		nudgeOpts.Email = ses
	}
	if cfg.Notifications.SMS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SMS.SenderID)
		if err != nil {
			zapLog.Fatal("sns client setup failed", zap.Error(err))
		}
		nudgeOpts.SMS = sns
	}
	nudgeHandler, err := sendnudge.NewHandler(nudgeOpts)
	if err != nil {
		zapLog.Fatal("failed to create send-guidance-nudge handler", zap.Error(err))
	}

	// --- Workers ---
	handlers := []struct {
		taskType string
		handle   camunda.JobHandler
	}{
		{resolve.TaskType, resolveHandler.Handle},
		{loadctx.TaskType, loadHandler.Handle},
		{sendnudge.TaskType, nudgeHandler.Handle},
	}
	var workers []worker.JobWorker
	for _, h := range handlers {
		if !config.IsWorkerEnabled(cfg, h.taskType) {
			log.Info("worker disabled", map[string]interface{}{"taskType": h.taskType})
			continue
		}
		wcfg := config.GetWorkerConfig(cfg, h.taskType)
		workers = append(workers, camunda.StartWorker(zeebe.Zeebe(), h.taskType, wcfg, h.handle, log))
	}
	log.Info("workers registered", map[string]interface{}{"count": len(workers)})

	// --- HTTP API, health and metrics ---
	server, err := api.NewServer(api.Options{
		Resolver: resolveHandler,
		Loader:   loadHandler,
		Checks: map[string]api.Check{
			"postgres": pg.Ping,
			"redis":    rdb.Ping,
			"zeebe":    zeebe.HealthCheck,
		},
		Logger: log,
	})
	if err != nil {
		zapLog.Fatal("failed to create api server", zap.Error(err))
	}
	httpServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      server,
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}
	go func() {
		log.Info("http server listening", map[string]interface{}{"address": cfg.HTTP.Address})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("shutdown signal received, stopping workers", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	for _, w := range workers {
		w.Close()
	}
	for _, w := range workers {
		w.AwaitClose()
	}
	if err := zeebe.Close(); err != nil {
		log.Error("error closing zeebe client", map[string]interface{}{"error": err.Error()})
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracer shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error("meter shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("worker manager stopped gracefully", nil)
}
