package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bantrap/internal/audit"
	"bantrap/internal/config"
	"bantrap/internal/crash"
	"bantrap/internal/discord"
	"bantrap/internal/engine"
	"bantrap/internal/logger"
	"bantrap/internal/platform"
	"bantrap/internal/server"
	"bantrap/internal/service"
	"bantrap/internal/storage"
	"bantrap/internal/telegram"
)

// chatBot is a platform adapter.
type chatBot interface {
	Gateway() platform.Gateway
	Start(sink platform.EventSink, admin *service.AdminService) error
	Stop() error
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}
	defer crash.RecoverWithStackAndExit("main")

	backend, err := storage.Open(cfg)
	if err != nil {
		logger.Fatalf("Failed to open %s storage: %v", cfg.Storage.Driver, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store := service.NewConfigStore(ctx, backend)
	cancel()

	bot, err := newBot(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize %s bot: %v", cfg.Platform, err)
	}
	gateway := bot.Gateway()

	stats := engine.NewStats()
	eng := engine.New(store, gateway, audit.NewLogger(gateway, cfg.Enforcement.PreviewLimit), cfg.Enforcement.RetentionWindow)
	dispatcher := engine.NewDispatcher(eng, stats, cfg.Enforcement.MaxConcurrent, cfg.Enforcement.EventTimeout)
	admin := service.NewAdminService(store, gateway)

	stopMonitor := make(chan struct{})
	crash.SafeGoroutine("stats-monitor", func() {
		stats.Monitor(5*time.Minute, stopMonitor)
	})

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(cfg, func(ctx context.Context) string {
			return stats.Detailed() + fmt.Sprintf("Configured Communities: %d\n", len(store.Snapshot()))
		})
		if tg, ok := bot.(*telegram.Bot); ok {
			tg.UseMux(srv.Mux())
		}
		crash.SafeGoroutine("http-server", func() {
			if err := srv.Start(); err != nil {
				logger.Errorf("HTTP server error: %v", err)
			}
		})
	}

	if err := bot.Start(dispatcher, admin); err != nil {
		logger.Fatalf("Failed to start %s bot: %v", cfg.Platform, err)
	}
	logger.Infof("bantrap running on %s, press Ctrl+C to exit", cfg.Platform)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Infof("Received signal: %v, shutting down...", sig)

	if err := bot.Stop(); err != nil {
		logger.Warningf("Error stopping bot: %v", err)
	}
	if !dispatcher.Close(30 * time.Second) {
		logger.Warningf("Timed out waiting for in-flight events")
	}
	close(stopMonitor)
	stats.Log()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warningf("HTTP server shutdown error: %v", err)
		}
		shutdownCancel()
	}

	if err := store.Close(); err != nil {
		logger.Warningf("Error closing storage: %v", err)
	}
	logger.Info("bantrap stopped")
}

func newBot(cfg *config.Config) (chatBot, error) {
	switch cfg.Platform {
	case config.PlatformTelegram:
		return telegram.New(cfg)
	default:
		return discord.New(cfg.Discord)
	}
}
