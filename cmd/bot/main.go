package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/quartz"
	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"zonarated-bot/internal/admission"
	"zonarated-bot/internal/bot"
	"zonarated-bot/internal/cdn"
	"zonarated-bot/internal/config"
	"zonarated-bot/internal/conversation"
	"zonarated-bot/internal/database"
	"zonarated-bot/internal/delivery"
	"zonarated-bot/internal/httpapi"
	"zonarated-bot/internal/logging"
	"zonarated-bot/internal/metrics"
	"zonarated-bot/internal/notify"
	"zonarated-bot/internal/publish"
	"zonarated-bot/internal/settings"
	"zonarated-bot/internal/shortener"
	"zonarated-bot/internal/store"
	"zonarated-bot/internal/telegram"
	"zonarated-bot/internal/worker"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogProduction)
	if err != nil {
		log.Fatalf("Could not create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service stopped with error", zap.Error(err))
	}
	logger.Info("service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not set")
	}
	if cfg.SupergroupID == 0 {
		logger.Warn("SUPERGROUP_ID is not set, join requests will be ignored")
	}

	// Connect to Database
	db, err := database.ConnectPostgres(cfg, logger)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Connect to Redis
	rdb, err := database.ConnectRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rdb.Close()

	instance, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	clock := quartz.NewReal()
	st := store.New(db)
	cfgSvc := settings.New(st, logger)

	tg := telegram.NewClient(instance, cfg.SupergroupID, cdn.NewSigner(cfg.BunnyCDNHostname, cfg.BunnyTokenKey), clock)
	notifier := notify.New(tg, rdb, logger, m)
	admissions := admission.NewController(st, cfgSvc, tg, clock, logger, m)
	maintenance := admission.NewMaintenance(cfgSvc, clock, admission.DefaultMaintenanceTTL, logger)
	downloads := delivery.NewController(st, cfgSvc, tg, clock, logger, m)
	publisher := publish.NewService(st, shortener.NewClient(cfg.ShrinkMeAPIURL), cfgSvc, tg, cfg.BotUsername, logger)

	reconciler := worker.NewReconciler(worker.Deps{
		Qualifier:   admissions,
		Maintenance: maintenance,
		Announcer:   notifier,
		Jobs:        st,
		Publisher:   publisher,
		Policy:      cfgSvc,
		Clock:       clock,
		Interval:    cfg.SchedulerInterval,
		Logger:      logger,
		Metrics:     m,
	})

	server := httpapi.New(httpapi.Config{
		Addr:                cfg.HTTPAddr,
		MetricsAllowedCIDRs: cfg.MetricsAllowedCIDRs,
	}, httpapi.NewDownloadHandler(downloads, notifier, cfg.BotUsername, logger), reg, logger)

	tgBot := bot.NewBot(instance, bot.Deps{
		Store:         st,
		Settings:      cfgSvc,
		Admission:     admissions,
		Maintenance:   maintenance,
		Delivery:      downloads,
		Notifier:      notifier,
		Conversations: conversation.NewStore(rdb, conversation.DefaultTTL),
		Forum:         tg,
		Clock:         clock,
		Logger:        logger,
		Username:      cfg.BotUsername,
		GroupID:       cfg.SupergroupID,
	})

	logger.Info("service started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tgBot.Start(gctx) })
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return reconciler.Run(gctx) })
	return g.Wait()
}
