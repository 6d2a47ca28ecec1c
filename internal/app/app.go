// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/geo-linebot-go/internal/bot"
	"github.com/garyellow/geo-linebot-go/internal/buildinfo"
	"github.com/garyellow/geo-linebot-go/internal/config"
	"github.com/garyellow/geo-linebot-go/internal/ctxutil"
	"github.com/garyellow/geo-linebot-go/internal/export"
	"github.com/garyellow/geo-linebot-go/internal/lineutil"
	"github.com/garyellow/geo-linebot-go/internal/logger"
	"github.com/garyellow/geo-linebot-go/internal/metrics"
	"github.com/garyellow/geo-linebot-go/internal/modules/admin"
	exportmod "github.com/garyellow/geo-linebot-go/internal/modules/export"
	"github.com/garyellow/geo-linebot-go/internal/modules/geo"
	startmod "github.com/garyellow/geo-linebot-go/internal/modules/start"
	"github.com/garyellow/geo-linebot-go/internal/r2client"
	"github.com/garyellow/geo-linebot-go/internal/ratelimit"
	"github.com/garyellow/geo-linebot-go/internal/region"
	"github.com/garyellow/geo-linebot-go/internal/reply"
	"github.com/garyellow/geo-linebot-go/internal/requestlog"
	"github.com/garyellow/geo-linebot-go/internal/sentry"
	"github.com/garyellow/geo-linebot-go/internal/storage"
	"github.com/garyellow/geo-linebot-go/internal/storage/postgres"
	"github.com/garyellow/geo-linebot-go/internal/webhook"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	store          storage.Store
	dict           *region.Dictionary
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	requestLog     *requestlog.Logger
	webhookHandler *webhook.Handler
	userLimiter    *ratelimit.KeyedLimiter
	exportLimiter  *ratelimit.KeyedLimiter
	sweeper        *export.Sweeper // nil when exports are disabled
	server         *http.Server
	wg             sync.WaitGroup // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(logger.Options{
		Level:               cfg.LogLevel,
		Writer:              os.Stdout,
		BetterstackToken:    cfg.BetterStack.Token,
		BetterstackEndpoint: cfg.BetterStack.Endpoint,
	})

	log = log.WithField("service", "geo-linebot-go")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Set as default logger so package-level slog.*Context calls get the
	// tracing values from ContextHandler too.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")
	if cfg.BetterStack.Token != "" {
		log.WithField("endpoint", cfg.BetterStack.Endpoint).Info("Better Stack logging enabled")
	}

	if on, err := sentry.Init(sentry.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     buildinfo.Version,
		SampleRate:  cfg.Sentry.SampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed")
	} else if on {
		log.WithField("environment", cfg.Sentry.Environment).Info("Sentry error tracking enabled")
	}

	dict, err := region.Load(cfg.RegionsFile)
	if err != nil {
		return nil, fmt.Errorf("region dictionary: %w", err)
	}
	log.WithField("regions", dict.Len()).Info("Region dictionary loaded")

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	mode, err := requestlog.ParseMode(cfg.RequestLog.Mode)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	reqLog := requestlog.New(store, store, requestlog.Config{
		Mode:          mode,
		AggregateTeam: cfg.RequestLog.AggregateTeam,
		Timeout:       cfg.RequestLog.Timeout,
		Buffer:        cfg.RequestLog.Buffer,
		Workers:       cfg.RequestLog.Workers,
		Recorder:      m,
	})

	lineAPI, err := messaging_api.NewMessagingApiAPI(cfg.LineChannelToken)
	if err != nil {
		_ = reqLog.Shutdown(ctx)
		_ = store.Close()
		return nil, fmt.Errorf("line client: %w", err)
	}

	userLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "user",
		Burst:         cfg.Bot.UserRateLimitBurst,
		RefillRate:    cfg.Bot.UserRateLimitRefillPerSec,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})

	app := &Application{
		cfg:         cfg,
		logger:      log,
		store:       store,
		dict:        dict,
		metrics:     m,
		registry:    registry,
		requestLog:  reqLog,
		userLimiter: userLimiter,
	}

	sender := lineutil.NewSender(cfg.Geo.BotName, cfg.Geo.BotIconURL)
	botRegistry := app.buildRegistry(ctx, sender)

	processor := bot.NewProcessor(bot.ProcessorConfig{
		Registry:    botRegistry,
		UserLimiter: userLimiter,
		Names:       lineutil.NewProfileClient(lineAPI, config.ProfileFetch),
		Sender:      sender,
		Logger:      log,
		BotConfig:   cfg.Bot,
	})

	webhookHandler, err := webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret: cfg.LineChannelSecret,
		Client:        webhook.NewLineClient(lineAPI),
		BotConfig:     cfg.Bot,
		Metrics:       m,
		Logger:        log,
		Processor:     processor,
		Sender:        sender,
	})
	if err != nil {
		app.closeResources(ctx)
		return nil, fmt.Errorf("webhook: %w", err)
	}
	app.webhookHandler = webhookHandler

	gin.SetMode(gin.ReleaseMode)
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router(),
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// OpenStore opens PostgreSQL when a database URL is configured and the
// SQLite file under the data directory otherwise.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.DatabaseURL != "" {
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Database connected", "driver", "postgres")
		return store, nil
	}

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Database connected", "driver", "sqlite", "path", cfg.SQLitePath())
	return db, nil
}

// NewPipeline builds the GEO pipeline from configuration. It is shared by
// the server and the operator CLI.
func NewPipeline(cfg *config.Config, dict *region.Dictionary, dir storage.DirectoryReader, rec geo.Recorder) *geo.Pipeline {
	return geo.NewPipeline(geo.PipelineConfig{
		Resolver:  NewResolver(cfg, dict),
		Directory: dir,
		Composer: reply.NewComposer(reply.Footer{
			Support: cfg.Geo.SupportContact,
			Brand:   cfg.Geo.Brand,
			Website: cfg.Geo.Website,
		}),
		Recorder:      rec,
		MaxRegions:    cfg.Geo.MaxRegions,
		LookupWorkers: cfg.Geo.LookupWorkers,
		LookupTimeout: cfg.Geo.LookupTimeout,
	})
}

// NewResolver builds the fuzzy resolver from configuration.
func NewResolver(cfg *config.Config, dict *region.Dictionary) *region.Resolver {
	policy := region.PolicyReport
	if cfg.Geo.SkipIneligible {
		policy = region.PolicySkip
	}
	return region.NewResolver(dict,
		region.WithThreshold(cfg.Geo.MatchThreshold),
		region.WithPolicy(policy),
	)
}

// buildRegistry wires the bot modules. Order matters: commands are matched
// before the GEO module, which accepts any other text.
func (a *Application) buildRegistry(ctx context.Context, sender *messaging_api.Sender) *bot.Registry {
	cfg := a.cfg
	log := a.logger

	startHandler := startmod.NewHandler(a.store, cfg.Geo.Brand, config.RequestLogWrite, log, sender)
	adminHandler := admin.NewHandler(a.store, cfg, NewResolver(cfg, a.dict), a.metrics, log, sender)
	exportHandler := exportmod.NewHandler(a.exportConfig(ctx, sender))
	geoHandler := geo.NewHandler(NewPipeline(cfg, a.dict, a.store, a.metrics), a.requestLog, log, sender)

	r := bot.NewRegistry()
	r.Use(
		bot.RecoveryMiddleware(log, reply.ErrorText, sender),
		bot.LoggingMiddleware(log),
		bot.MetricsMiddleware(a.metrics),
	)
	r.Register(startHandler)
	r.Register(adminHandler)
	r.Register(exportHandler)
	r.Register(geoHandler)
	r.SetFallback(startHandler)
	return r
}

// exportConfig connects /download to R2 when credentials are complete.
func (a *Application) exportConfig(ctx context.Context, sender *messaging_api.Sender) exportmod.Config {
	cfg := a.cfg
	ec := exportmod.Config{
		Store:    a.store,
		Recorder: a.metrics,
		Logger:   a.logger,
		Sender:   sender,
		Timeout:  config.ExportUpload,
	}

	if cfg.Bot.ExportDailyLimit > 0 {
		a.exportLimiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
			Name:          "export",
			Burst:         float64(cfg.Bot.ExportDailyLimit),
			RefillRate:    float64(cfg.Bot.ExportDailyLimit) / 86400.0,
			DailyLimit:    cfg.Bot.ExportDailyLimit,
			CleanupPeriod: config.RateLimiterCleanupInterval,
			Metrics:       a.metrics,
		})
		ec.Quota = a.exportLimiter
	}

	if !cfg.ExportEnabled() {
		a.logger.Info("Export storage not configured, /download is disabled")
		return ec
	}

	endpoint := cfg.Export.Endpoint
	if endpoint == "" {
		endpoint = r2client.EndpointFor(cfg.Export.AccountID)
	}
	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    endpoint,
		AccessKeyID: cfg.Export.AccessKeyID,
		SecretKey:   cfg.Export.SecretAccessKey,
		BucketName:  cfg.Export.BucketName,
	})
	if err != nil {
		a.logger.WithError(err).Warn("R2 client initialization failed, /download is disabled")
		return ec
	}

	ec.Publisher = export.NewPublisher(client, cfg.Export.Prefix, cfg.Export.LinkTTL)
	a.sweeper = export.NewSweeper(client, cfg.Export.Prefix, cfg.Export.Retention)
	a.logger.WithField("bucket", client.Bucket()).Info("Export storage enabled")
	return ec
}

func (a *Application) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.Enabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.POST("/webhook", a.webhookHandler.Handle)
	router.GET("/metrics",
		basicAuth("metrics", a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(gzhttp.GzipHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))))
	return router
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheckTimeout)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	if a.dict.Len() == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "region dictionary is empty",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"regions":  a.dict.Len(),
		"features": gin.H{
			"export": a.sweeper != nil,
			"sentry": sentry.Enabled(),
		},
	})
}

// Run starts the HTTP server and background jobs, then blocks until
// SIGINT/SIGTERM.
//
// Background jobs are stopped and awaited before any resource is closed,
// so no job ever runs against a closed store or client.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

func (a *Application) startBackgroundJobs(ctx context.Context) {
	if a.sweeper != nil {
		a.wg.Go(func() {
			a.sweepExports(ctx)
		})
	}
}

func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown stops components in dependency order:
// HTTP server, webhook handler, request logger, store, limiters, logger.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Waiting for webhook events to complete...")
	if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
	}

	a.closeResources(shutdownCtx)

	sentry.Flush(2 * time.Second)

	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", err)
	}
	if n := a.logger.Dropped(); n > 0 {
		fmt.Fprintf(os.Stderr, "%d log records were not shipped\n", n)
	}
	return nil
}

// closeResources drains the request log before closing the store it writes to.
func (a *Application) closeResources(ctx context.Context) {
	a.logger.Info("Draining request log...")
	if err := a.requestLog.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Request log shutdown timeout, pending requests dropped")
	}

	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}

	if a.userLimiter != nil {
		a.userLimiter.Stop()
	}
	if a.exportLimiter != nil {
		a.exportLimiter.Stop()
	}
}

// sweepExports deletes expired export workbooks every ExportSweepInterval.
func (a *Application) sweepExports(ctx context.Context) {
	a.logger.Debug("Export sweep job started")
	defer a.logger.Debug("Export sweep job stopped")

	ticker := time.NewTicker(config.ExportSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runExportSweep(ctx)
		}
	}
}

func (a *Application) runExportSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, config.ExportSweep)
	defer cancel()

	start := time.Now()
	deleted, err := a.sweeper.Sweep(sweepCtx)
	entry := a.logger.WithField("deleted", deleted).
		WithField("duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		entry.WithError(err).Warn("Export sweep finished with errors")
		return
	}
	if deleted > 0 {
		entry.Info("Expired exports deleted")
	}
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests with status-based log levels:
// 5xx=Error, 4xx=Warn, 404=Debug, 3xx/2xx=Debug.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = c.GetHeader("X-Correlation-Id")
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-Id", requestID)
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		status := c.Writer.Status()
		entry := log.WithField("http_method", method).
			WithField("http_path", path).
			WithField("http_status", status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("client_ip", c.ClientIP()).
			WithRequestID(requestID)

		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
		case status == 404:
			entry.Debug("HTTP request not found")
		case status >= 400:
			entry.Warn("HTTP request rejected")
		default:
			entry.Debug("HTTP request completed")
		}
	}
}
