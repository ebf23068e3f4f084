// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"vpn-subscription-bot/internal/application"
	"vpn-subscription-bot/internal/config"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/domain/ports/repository"
	tele "vpn-subscription-bot/internal/infra/adapters/telegram"
	"vpn-subscription-bot/internal/infra/api"
	pg "vpn-subscription-bot/internal/infra/db/postgres"
	"vpn-subscription-bot/internal/infra/filestore"
	"vpn-subscription-bot/internal/infra/i18n"
	"vpn-subscription-bot/internal/infra/logging"
	"vpn-subscription-bot/internal/infra/memory"
	"vpn-subscription-bot/internal/infra/metrics"
	"vpn-subscription-bot/internal/infra/panel"
	red "vpn-subscription-bot/internal/infra/redis"
	"vpn-subscription-bot/internal/infra/sched"
	"vpn-subscription-bot/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

// dryRunToken starts everything except Telegram polling.
const dryRunToken = "noop"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted secrets)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Str("path", *cfgPath).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logger.Info().
		Str("version", version).
		Int64("admin_id", cfg.Bot.AdminID).
		Str("panel_url", cfg.Panel.URL).
		Str("bot_token", logging.Redact(cfg.Bot.Token, cfg.Runtime.Dev)).
		Msg("starting")

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	tr, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}

	// ---- Redis (optional) ----
	var (
		sessions    repository.SessionRepository
		locker      repository.Locker
		rateLimiter repository.RateLimiter
		redisClient *red.Client
	)
	if cfg.Redis.URL != "" {
		redisClient, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		sessions = red.NewSessionRepo(redisClient, cfg.Redis.SessionTTL)
		locker = red.NewLocker(redisClient)
		rateLimiter = red.NewRateLimiter(redisClient)
		logger.Info().Msg("using redis for sessions, claims and rate limits")
	} else {
		sessions = memory.NewSessionRepo(cfg.Redis.SessionTTL)
		locker = memory.NewLocker()
		rateLimiter = memory.NewRateLimiter()
		logger.Warn().Msg("redis not configured, using in-process state")
	}

	// ---- Trial ledger ----
	var (
		ledger repository.TrialLedger
		pool   *pgxpool.Pool
	)
	switch cfg.Ledger.Driver {
	case "postgres":
		pool, err = pg.Connect(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		ledger = pg.NewTrialLedgerRepo(pool)
	default:
		fileLedger, err := filestore.NewTrialLedger(cfg.Ledger.Path, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Ledger.Path).Msg("trial ledger")
		}
		ledger = fileLedger
	}
	logger.Info().Str("driver", cfg.Ledger.Driver).Msg("trial ledger ready")

	media, err := filestore.NewMediaStore(ctx, cfg.Media.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Media.Path).Msg("media store")
	}

	// ---- Panel ----
	panelClient := panel.NewClient(panel.OptionsFromConfig(cfg.Panel), logger)
	defer panelClient.Close()
	if !panelClient.TestConnection(ctx) {
		logger.Warn().Str("url", cfg.Panel.URL).Msg("panel is not reachable at startup")
	}

	// ---- Telegram ----
	var (
		bot     adapter.TelegramBotAdapter
		realBot *tele.RealTelegramBotAdapter
	)
	if cfg.Bot.Token == dryRunToken {
		bot = tele.NewNoopBotAdapter(logger)
		logger.Warn().Msg("dry run: telegram polling disabled")
	} else {
		realBot, err = tele.NewRealTelegramBotAdapter(&cfg.Bot, &cfg.Media, media, rateLimiter, tr, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		bot = realBot
	}

	// ---- Use cases ----
	screens := usecase.NewScreens(bot, media, tr, usecase.ScreenConfig{
		ServiceName: cfg.Bot.ServiceName,
		SupportURL:  cfg.Bot.SupportURL,
		NewsURL:     cfg.Bot.NewsURL,
		Requisites:  cfg.Payment.Requisites,
	}, logger)
	provisionUC := usecase.NewProvisioningUseCase(panelClient, usecase.ProvisioningConfig{
		TrafficLimitStrategy: cfg.Panel.TrafficLimitStrategy,
		ActivateAllInbounds:  *cfg.Panel.ActivateAllInbounds,
		FallbackURL:          cfg.Panel.SubscriptionURL,
	}, logger)
	trialUC := usecase.NewTrialUseCase(bot, ledger, locker, provisionUC, screens, tr, cfg.Bot.AdminID, logger)
	purchaseUC := usecase.NewPurchaseUseCase(sessions, trialUC, screens, tr, logger)
	receiptUC := usecase.NewReceiptUseCase(bot, purchaseUC, screens, tr, cfg.Bot.AdminID, logger)
	approvalUC := usecase.NewApprovalUseCase(bot, provisionUC, locker, screens, tr, usecase.ApprovalConfig{
		AdminID:        cfg.Bot.AdminID,
		SupportContact: cfg.Bot.SupportContact,
		Location:       cfg.Bot.Location(),
	}, logger)
	adminUC := usecase.NewAdminUseCase(bot, panelClient, tr, cfg.Bot.AdminID, logger)

	facade := application.NewBotFacade(screens, purchaseUC, receiptUC, approvalUC, trialUC, adminUC, tr, logger)

	// ---- Probe worker ----
	var hooks []func()
	if pool != nil {
		hooks = append(hooks, func() { pg.ReportPoolStats(pool) })
	}
	probe := sched.NewProbeWorker(cfg.Panel.ProbeInterval, panelClient, logger, hooks...)
	probe.Probe(ctx)
	go func() { _ = probe.Run(ctx) }()

	// ---- Ops HTTP ----
	ops := api.NewServer(version, logger)
	ops.AddCheck("panel", probe.Check)
	if redisClient != nil {
		ops.AddCheck("redis", redisClient.Ping)
	}
	if pool != nil {
		ops.AddCheck("postgres", pool.Ping)
	}
	go func() {
		if err := ops.Start(cfg.HTTP.Port); err != nil {
			logger.Error().Err(err).Msg("ops server stopped")
		}
	}()

	// ---- Polling ----
	if realBot != nil {
		realBot.SetFacade(facade)
		go func() {
			if err := realBot.BootstrapMedia(ctx); err != nil {
				logger.Warn().Err(err).Msg("media bootstrap incomplete")
			}
		}()
		go func() {
			if err := realBot.StartPolling(ctx); err != nil {
				logger.Error().Err(err).Msg("telegram polling stopped")
				cancel()
			}
		}()
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigc:
		logger.Info().Str("signal", s.String()).Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown")
	}
	logger.Info().Msg("bye")
}
