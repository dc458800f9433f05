package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hubcoin-ledger/bot"
	"hubcoin-ledger/config"
	"hubcoin-ledger/handlers"
	"hubcoin-ledger/middleware"
	"hubcoin-ledger/models"
	"hubcoin-ledger/services"
	"hubcoin-ledger/utils"
	"hubcoin-ledger/workers"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("⚠️  unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telegram bot (optional) ---
	var botAPI *tgbotapi.BotAPI
	var notifier services.Notifier
	if cfg.BotToken != "" {
		botAPI, err = tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			log.Fatal("failed to authorize telegram bot: ", err)
		}
		notifier = bot.Messenger{API: botAPI}
		log.Infof("✅ Authorized as @%s", botAPI.Self.UserName)
	} else {
		log.Warn("⚠️  BOT_TOKEN not set, chat bot disabled")
	}

	engine := services.NewRewardEngine(services.EngineConfig{
		DB:       db,
		Rewards:  cfg.Rewards,
		Ads:      cfg.Ads,
		Location: cfg.Location,
		Partner:  services.NewPartnerClient(cfg.Partner.BaseURL, cfg.Partner.APIKey, cfg.Partner.Timeout),
		Notifier: notifier,
		Logger:   log.StandardLogger(),
	})
	sessions := services.NewMailingSessionStore(db)

	sched, err := engine.StartMaintenanceScheduler(sessions, services.MaintenanceConfig{
		MailingSessionTTL: cfg.MailingSessionTTL,
		ImpressionMaxAge:  cfg.Ads.ImpressionMaxAge,
	})
	if err != nil {
		log.Fatal("failed to start scheduler: ", err)
	}

	var tgBot *bot.Bot
	if botAPI != nil {
		broadcaster := workers.NewBroadcastWorker(engine.Accounts, bot.Messenger{API: botAPI}, workers.BroadcastOptions{})
		tgBot = bot.New(botAPI, engine, sessions, broadcaster, bot.Options{
			AdminID:       cfg.AdminUserID,
			MiniAppURL:    cfg.FrontendURL,
			ChannelURL:    cfg.ChannelURL,
			GuideURL:      cfg.GuideURL,
			WelcomeImage:  cfg.WelcomeImg,
			AdReward:      cfg.Ads.RewardAmount,
			ReferralBonus: cfg.Rewards.ReferralBonus,
		})
		if cfg.R2.Enabled() {
			mirror, err := utils.NewAvatarMirror(ctx, cfg.R2)
			if err != nil {
				log.Warnf("⚠️  avatar mirror disabled: %v", err)
			} else {
				tgBot.WithAvatarMirror(mirror)
			}
		}

		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := botAPI.GetUpdatesChan(u)
		go tgBot.Run(ctx, updates)
	}

	// --- HTTP API ---
	app := fiber.New(fiber.Config{
		AppName:      "hubcoin-ledger",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	allowedOrigins := strings.Split(cfg.FrontendURL, ",")
	for i, origin := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(origin)
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(allowedOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
		MaxAge:       86400,
	}))

	handlers.SetupOpsRoutes(app, db)
	handlers.SetupRewardRoutes(app, engine, handlers.RouteOptions{
		CallbackSecret: cfg.Ads.CallbackSecret,
		AdLimiter:      middleware.NewRateLimiter(cfg.Ads.RatePerMinute, max(1, cfg.Ads.RatePerMinute/6)),
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorf("Server error: %v", err)
			stop()
		}
	}()

	log.Infof("✅ Server running on port %s", cfg.Port)
	log.Infof("✅ CORS configured for origins: %s", strings.Join(allowedOrigins, ","))

	<-ctx.Done()
	log.Info("Shutting down server...")

	if botAPI != nil {
		botAPI.StopReceivingUpdates()
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warnf("⚠️  HTTP shutdown: %v", err)
	}
	if tgBot != nil {
		tgBot.Wait()
	}
	engine.Notices.Wait()
	if err := sched.Shutdown(); err != nil {
		log.Warnf("⚠️  scheduler shutdown: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
