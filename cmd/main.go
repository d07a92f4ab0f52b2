package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fin_tracker/config"
	"fin_tracker/data"
	"fin_tracker/data/cache"
	"fin_tracker/data/repository"
	"fin_tracker/data/session"
	"fin_tracker/internal/externalApi/alphaVantageApi"
	"fin_tracker/internal/externalApi/cloudStorageApi/googleDriveApi"
	"fin_tracker/internal/externalApi/nseApi"
	"fin_tracker/internal/externalApi/yahooApi"
	"fin_tracker/internal/pricecache"
	"fin_tracker/internal/reportGenerator/xlsxGenerator"
	"fin_tracker/internal/scheduler"
	"fin_tracker/internal/service/portfolioService"
	"fin_tracker/internal/transport/rest"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := repository.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	providers := []pricecache.QuoteProvider{yahooApi.New(cfg)}
	if cfg.API.AlphaVantage.ApiKey != "" {
		providers = append(providers, alphaVantageApi.New(cfg))
	}

	priceCache := pricecache.New(cfg, providers)

	nseApiClient := nseApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	var cloudStorage portfolioService.CloudStorage
	if cfg.GoogleDrive.CredentialsFile != "" {
		cloudStorage = googleDriveApi.New(ctx, cfg)
	}

	portfolioSrv := portfolioService.New(pgRepo, redisCache, priceCache, nseApiClient, reportGenerator, cloudStorage)

	sched := scheduler.New()
	sched.NewIntervalJob("warm held quotes", portfolioSrv.WarmHeldQuotes, cfg.Jobs.WarmQuotesInterval, true)
	sched.NewCrontabJob("refresh stock master", portfolioSrv.RefreshStockMaster, cfg.Jobs.RefreshStocksCrontab, false)
	if cloudStorage != nil {
		sched.NewIntervalJob("cleanup old reports", portfolioSrv.CleanupOldReports, cfg.Jobs.ReportsCleanupInterval, false)
	}
	sched.Start()
	defer sched.Stop()

	restController := rest.NewController(portfolioSrv, cfg)

	server := rest.NewServer(cfg, restController, redisSession)
	go server.Start()
	defer server.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
