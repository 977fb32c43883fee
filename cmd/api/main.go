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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/clinic-booking-assistant/internal/api/router"
	"github.com/wolfman30/clinic-booking-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/dialogue"
	"github.com/wolfman30/clinic-booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/compliance"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/templates"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/internal/promotions"
	"github.com/wolfman30/clinic-booking-assistant/internal/ratelimit"
	"github.com/wolfman30/clinic-booking-assistant/internal/reminders"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic booking assistant",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx, cfg); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// application is the wired process: one HTTP handler plus the background
// loops that run beside it.
type application struct {
	handler http.Handler
	workers map[string]func(context.Context)
	closers []func()
	logger  *logging.Logger
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Run serves HTTP and the workers until ctx is cancelled, then drains the
// server within cfg.ShutdownTimeout.
func (a *application) Run(ctx context.Context, cfg *appconfig.Config) error {
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	for name, run := range a.workers {
		g.Go(func() error {
			a.logger.Info("worker started", "worker", name)
			run(gctx)
			a.logger.Info("worker stopped", "worker", name)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func buildApplication(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*application, error) {
	app := &application{workers: map[string]func(context.Context){}, logger: logger}
	health := handlers.NewHealthHandler(logger)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
		health.WithCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}
	stores := bootstrap.BuildSessionStores(cfg, redisClient)
	logger.Info("session stores ready", "backend", stores.Backend)

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	if pool != nil {
		app.closers = append(app.closers, pool.Close)
		health.WithCheck("postgres", pool.Ping)
	} else {
		logger.Warn("DATABASE_URL not set, reminders and promotions disabled")
	}

	gateway, err := bootstrap.BuildCalendar(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	sender, err := bootstrap.BuildWhatsAppClient(cfg, logger.WithComponent("whatsapp"))
	if err != nil {
		app.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewAssistantMetrics(registry)

	renderer := templates.NewProvider(templates.DefaultCatalog(), templates.Params{"ClinicPhone": cfg.ClinicPhone})

	engineOpts := []dialogue.Option{
		dialogue.WithLocker(stores.Locker),
		dialogue.WithSessionTimeout(cfg.SessionTimeout),
		dialogue.WithRecorder(recorder),
	}
	processorOpts := []messaging.ProcessorOption{messaging.WithRecorder(recorder)}

	var reminderHandler *reminders.Handler
	var promotionHandler *promotions.Handler
	if pool != nil {
		reminderStore := reminders.NewStore(pool)
		scheduler := reminders.NewScheduler(reminderStore, nil, logger.WithComponent("reminders")).
			WithLeadTime(cfg.ReminderLeadTime)
		engineOpts = append(engineOpts, dialogue.WithObserver(scheduler))
		worker := reminders.NewWorker(reminderStore, sender, renderer, logger.WithComponent("reminders")).
			WithInterval(cfg.ReminderPollInterval).
			WithRecorder(recorder)
		app.workers["reminders"] = worker.Run
		reminderHandler = reminders.NewHandler(reminderStore, logger)

		promotionStore := promotions.NewStore(pool)
		quiet, err := compliance.ParseQuietHours(cfg.PromotionQuietStart, cfg.PromotionQuietEnd, cfg.Location())
		if err != nil {
			app.Close()
			return nil, err
		}
		dispatcher := promotions.NewDispatcher(promotionStore, sender, cfg.Location(), logger.WithComponent("promotions")).
			WithRate(cfg.PromotionSendRate).
			WithQuietHours(quiet).
			WithInterval(cfg.PromotionPollInterval).
			WithRecorder(recorder)
		app.workers["promotions"] = dispatcher.Run
		promotionHandler = promotions.NewHandler(promotionStore, logger)
		processorOpts = append(processorOpts, messaging.WithOptOut(compliance.NewDetector(), promotionStore))
	}

	engine := dialogue.NewEngine(stores.States, gateway, gateway.Policy(), renderer, logger.WithComponent("dialogue"), engineOpts...)

	assistant, err := bootstrap.BuildAssistant(ctx, cfg, stores.History, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	if assistant != nil {
		processorOpts = append(processorOpts, messaging.WithFallback(assistant))
	}

	processor := messaging.NewProcessor(stores.Limiter, engine, sender, renderer, logger.WithComponent("messaging"), processorOpts...)

	sweeper := session.NewSweeper(stores.History, logger.WithComponent("session")).WithInterval(cfg.HistorySweepInterval)
	app.workers["history-sweeper"] = sweeper.Run

	webhookLimiter := httpmiddleware.NewIPLimiter(cfg.WebhookRatePerSec, cfg.WebhookRateBurst)
	window, _ := stores.Limiter.(*ratelimit.Window)
	app.workers["limiter-prune"] = func(ctx context.Context) {
		pruneLimiters(ctx, time.Minute, webhookLimiter, window)
	}

	app.handler = router.New(&router.Config{
		Logger:         logger,
		Health:         health,
		Webhook:        messaging.NewHandler(processor, recorder, logger.WithComponent("webhook")),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		WebhookLimiter: webhookLimiter,
		Conversations:  handlers.NewConversationsHandler(stores.History, stores.States, logger),
		Reminders:      reminderHandler,
		Promotions:     promotionHandler,
		StaffJWTSecret: cfg.StaffJWTSecret,
	})
	if cfg.StaffJWTSecret == "" {
		logger.Warn("STAFF_JWT_SECRET not set, staff endpoints are unauthenticated")
	}
	return app, nil
}

// pruneLimiters drops idle limiter entries so memory tracks active senders.
// window is nil when the rate limiter lives in redis.
func pruneLimiters(ctx context.Context, every time.Duration, ip *httpmiddleware.IPLimiter, window *ratelimit.Window) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ip.Prune()
			if window != nil {
				window.Prune()
			}
		}
	}
}
