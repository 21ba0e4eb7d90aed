package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tg-coursesync/internal/api"
	"tg-coursesync/internal/bot"
	"tg-coursesync/internal/chats"
	"tg-coursesync/internal/config"
	"tg-coursesync/internal/courses"
	"tg-coursesync/internal/crash"
	"tg-coursesync/internal/lms"
	"tg-coursesync/internal/logger"
	"tg-coursesync/internal/stats"
	"tg-coursesync/internal/storage"
	syncengine "tg-coursesync/internal/sync"
	"tg-coursesync/internal/telegram"
)

func main() {
	defer crash.RecoverWithStackAndExit("main")

	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	db, err := storage.Initialize(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Infof("Database connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chatService := chats.NewService(storage.NewChatRepository(db))
	courseService := courses.NewService(storage.NewCourseRepository(db), lms.NewClient(cfg.LMS))
	orphanRepo := storage.NewOrphanRepository(db)

	// MTProto client must be authorized before the engine can run.
	client := telegram.NewClient(cfg.Telegram.APIID, cfg.Telegram.APIHash, cfg.Telegram.SessionFile)
	client.Start(ctx)

	select {
	case <-client.Ready():
		logger.Infof("Telegram client connected")
	case <-time.After(time.Minute):
		log.Fatalf("Telegram client did not become ready; check session authorization")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Errorf("Telegram client shutdown error: %v", err)
		}
	}()

	// Statistics capture bot.
	botService, webhookServer, err := bot.Initialize(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}
	recorder := stats.NewRecorder(chatService, storage.NewStatsRepository(db))
	botService.OnGroupMessage(recorder)

	crash.SafeGoroutine("webhook-server", func() {
		if err := webhookServer.Start(); err != nil {
			logger.Errorf("Webhook server error: %v", err)
		}
	})
	crash.SafeGoroutine("bot-handler", func() {
		botService.Start()
	})

	// HTTP API.
	apiServer := api.NewServer(cfg.Server, chatService, courseService)
	crash.SafeGoroutine("api-server", func() {
		if err := apiServer.Start(); err != nil {
			logger.Errorf("API server error: %v", err)
		}
	})

	// Reconciliation and course import loops.
	engine := syncengine.NewEngine(client, chatService, courseService, orphanRepo,
		cfg.Telegram.FloodPauseInterval(), cfg.Telegram.Folders)
	runner := syncengine.NewRunner(engine, cfg.Telegram.SyncInterval(), cfg.Telegram.FullSyncInterval())
	crash.SafeGoroutine("sync-runner", func() {
		runner.Run(ctx)
	})
	crash.SafeGoroutine("course-import", func() {
		runCourseImport(ctx, courseService, cfg.LMS.SyncInterval())
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Infof("Received signal: %v, shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	botService.Stop()
	if err := webhookServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Webhook server shutdown error: %v", err)
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API server shutdown error: %v", err)
	}

	logger.Infof("Server gracefully stopped")
}

// runCourseImport refreshes the course catalogue on a fixed cadence. The
// first import runs immediately so folder classification has data.
func runCourseImport(ctx context.Context, service *courses.Service, interval time.Duration) {
	if err := service.Sync(ctx); err != nil {
		logger.Errorf("Course import failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := service.Sync(ctx); err != nil {
				logger.Errorf("Course import failed: %v", err)
			}
		}
	}
}
