package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chart-collector/config"
	"chart-collector/metrics"
	"chart-collector/trends"
	"chart-collector/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWith(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cache trends.Cache
	if cfg.RedisAddr != "" {
		rc, err := trends.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Warn("[trends] Redis unavailable, caching disabled: %v", err)
		} else {
			defer rc.Close()
			cache = rc
			logger.Info("[trends] Caching responses in redis at %s for %s", cfg.RedisAddr, cfg.TrendsCacheTTL)
		}
	}

	client := trends.NewGoogleClient(trends.DefaultGoogleURL, cfg.TrendsHL,
		utils.NewHTTPClient(cfg.HTTPTimeout, ""), time.Second, logger)
	svc := trends.NewService(client, cache, cfg.TrendsCacheTTL, cfg.TrendsDataDir, logger)
	app := trends.NewApp(svc)

	go func() {
		logger.Info("[trends] Listening on %s", cfg.TrendsAddr)
		if err := app.Listen(cfg.TrendsAddr); err != nil {
			logger.Error("[trends] Server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("[trends] Error during shutdown: %v", err)
		os.Exit(1)
	}
}
