package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twitchyvr/MycoLab-sub010/internal/config"
	"github.com/twitchyvr/MycoLab-sub010/internal/database"
	"github.com/twitchyvr/MycoLab-sub010/internal/delivery"
	"github.com/twitchyvr/MycoLab-sub010/internal/dispatch"
	"github.com/twitchyvr/MycoLab-sub010/internal/prefs"
	"github.com/twitchyvr/MycoLab-sub010/internal/repository"
	"github.com/twitchyvr/MycoLab-sub010/internal/rules"
	"github.com/twitchyvr/MycoLab-sub010/internal/service"
	"github.com/twitchyvr/MycoLab-sub010/internal/store"
	"github.com/twitchyvr/MycoLab-sub010/internal/toast"
	"github.com/twitchyvr/MycoLab-sub010/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	appLogger.Info("Starting notification engine",
		"environment", cfg.AppEnvironment,
		"app_name", cfg.AppName,
		"db_host", cfg.DatabaseHost,
		"db_name", cfg.DatabaseName,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgresDB(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	blobRepo := repository.NewBlobRepository(db.Pool(), appLogger)
	if err := blobRepo.EnsureSchema(ctx); err != nil {
		appLogger.Fatal("Failed to prepare blob storage", "error", err)
	}

	deliveryLogRepo := repository.NewDeliveryLogRepository(db.Pool(), appLogger)
	if err := deliveryLogRepo.EnsureSchema(ctx); err != nil {
		appLogger.Fatal("Failed to prepare delivery log", "error", err)
	}

	// Channel providers. Each is optional; an attempted send on a missing
	// provider is recorded in the delivery log as a failure.
	var emailSender delivery.EmailSender
	if cfg.SendGridApiKey != "" {
		emailSender = delivery.NewSendGridClient(cfg.SendGridApiKey, cfg.EmailFrom, appLogger)
	}

	var smsSender delivery.SMSSender
	if cfg.TwilioAccountSid != "" && cfg.TwilioAuthToken != "" {
		smsSender = delivery.NewTwilioClient(cfg.TwilioAccountSid, cfg.TwilioAuthToken, cfg.TwilioFromNumber, appLogger)
	}

	var pushSender delivery.PushSender
	if cfg.FirebaseProjectID != "" && cfg.FirebaseCredentialPath != "" {
		firebaseService, err := delivery.NewFirebaseService(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialPath, appLogger)
		if err != nil {
			appLogger.Error("Failed to initialize Firebase, push delivery disabled", "error", err)
		} else {
			pushSender = firebaseService
		}
	}

	prefStore := prefs.NewStore()
	toastScheduler := toast.NewScheduler(func() int {
		return prefStore.Global().ToastDurationMs
	}, appLogger)
	notificationStore := store.NewStore(blobRepo, prefStore, toastScheduler, appLogger)
	ruleEngine := rules.NewEngine(appLogger)
	dispatcher := dispatch.NewDispatcher(
		emailSender,
		smsSender,
		pushSender,
		cfg.FirebaseDeviceToken,
		prefStore,
		deliveryLogRepo,
		appLogger,
	)

	engine := service.NewEngine(
		ruleEngine,
		notificationStore,
		toastScheduler,
		dispatcher,
		deliveryLogRepo,
		blobRepo,
		cfg.AppSettings(),
		appLogger,
	)

	if err := engine.Start(ctx); err != nil {
		appLogger.Fatal("Failed to start notification engine", "error", err)
	}

	appLogger.Info("Notification engine ready", "unread", notificationStore.UnreadCount())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	appLogger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := engine.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Error during shutdown", "error", err)
	}
}
