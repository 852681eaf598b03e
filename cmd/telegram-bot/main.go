package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-grocery-checklist/internal/app"
	"ai-grocery-checklist/internal/config"
	"ai-grocery-checklist/internal/telegram"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 1. Load Configuration
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Wire model, storage and sessions
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	// 3. Initialize Telegram Bot
	bot, err := telegram.NewBot(application)
	if err != nil {
		logger.Fatal("failed to initialize telegram bot", zap.Error(err))
	}

	// 4. Serve until SIGINT/SIGTERM
	if err := bot.Run(ctx, ":"+cfg.Port); err != nil {
		logger.Fatal("telegram bot stopped", zap.Error(err))
	}
	logger.Info("server exiting")
}
