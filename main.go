package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"chart-collector/collector"
	"chart-collector/config"
	"chart-collector/metrics"
	"chart-collector/models"
	"chart-collector/scheduler"
	"chart-collector/scraper"
	"chart-collector/storage"
	"chart-collector/utils"
)

const dateLayout = "2006-01-02"

func main() {
	os.Exit(run())
}

func run() int {
	mode := flag.String("mode", "once", "once | schedule | backfill | verify")
	source := flag.String("source", "", "single source to collect or backfill (e.g. spotify, billboard)")
	startStr := flag.String("start", "", "backfill start date (YYYY-MM-DD)")
	endStr := flag.String("end", "", "backfill end date (YYYY-MM-DD), default today")
	flag.Parse()

	cfg := config.Load()
	logger := utils.NewLoggerWith(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	logger.Info("=== Chart collector starting (mode: %s, storage: %s) ===", *mode, cfg.StorageMode)
	logger.Info("Config: top %d daily, %d chart-of-record | every %s | chart-of-record on %s at %s",
		cfg.TopN, cfg.ChartOfRecordTopN, cfg.CollectionInterval, cfg.ChartOfRecordDay, cfg.ChartOfRecordTime)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	metricsApp := serveMetrics(cfg.MetricsAddr, logger)
	defer metricsApp.Shutdown()

	writer, err := storage.Open(cfg, logger)
	if err != nil {
		logger.Error("Failed to open storage: %v", err)
		return 1
	}
	defer writer.Close()

	songs, _ := writer.(storage.Reader)
	jobs, err := collector.Jobs(cfg, collector.Adapters(cfg, songs, logger))
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	orch := collector.New(jobs, writer, cfg.SourcePause, logger)

	switch *mode {
	case "once":
		return runOnce(ctx, orch, *source, logger)
	case "schedule":
		return runSchedule(ctx, cfg, orch, logger)
	case "backfill":
		return runBackfill(ctx, cfg, jobs, writer, *source, *startStr, *endStr, logger)
	case "verify":
		return verify(ctx, writer, *source, logger)
	default:
		logger.Error("Unknown mode %q", *mode)
		return 2
	}
}

func serveMetrics(addr string, logger *utils.Logger) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", metrics.MetricsHandler())
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "chart-collector"})
	})
	go func() {
		if err := app.Listen(addr); err != nil {
			logger.Warn("[metrics] Server stopped: %v", err)
		}
	}()
	return app
}

func runOnce(ctx context.Context, orch *collector.Orchestrator, source string, logger *utils.Logger) int {
	if source != "" {
		ok, err := orch.RunSource(ctx, source)
		if err != nil {
			logger.Error("%v", err)
			return 2
		}
		if !ok {
			return 1
		}
		return 0
	}
	if !orch.RunOnce(ctx) {
		return 1
	}
	return 0
}

func runSchedule(ctx context.Context, cfg *config.Config, orch *collector.Orchestrator, logger *utils.Logger) int {
	trigger, err := scheduler.New(scheduler.Config{
		Interval:     cfg.CollectionInterval,
		WeeklySource: models.SourceBillboard,
		Weekday:      cfg.ChartOfRecordDay,
		At:           cfg.ChartOfRecordTime,
		Cooldown:     cfg.SchedulerCooldown,
	}, orch, logger)
	if err != nil {
		logger.Error("%v", err)
		return 2
	}
	if err := trigger.Run(ctx); err != nil {
		logger.Error("%v", err)
		return 1
	}
	return 0
}

func runBackfill(ctx context.Context, cfg *config.Config, jobs []collector.Job, writer storage.Writer,
	source, startStr, endStr string, logger *utils.Logger) int {
	if startStr == "" {
		logger.Error("-start is required for backfill")
		return 2
	}
	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		logger.Error("Invalid -start: %v", err)
		return 2
	}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if endStr != "" {
		if end, err = time.Parse(dateLayout, endStr); err != nil {
			logger.Error("Invalid -end: %v", err)
			return 2
		}
	}
	if end.Before(start) {
		logger.Error("-end %s is before -start %s", end.Format(dateLayout), start.Format(dateLayout))
		return 2
	}

	ran := 0
	for _, job := range jobs {
		if source != "" && job.Adapter.Name() != source {
			continue
		}
		if a, ok := job.Adapter.(scraper.Archiver); ok && !a.HasArchive() {
			logger.Info("[backfill] Skipping %s: no dated archive", job.Adapter.Name())
			continue
		}
		b := collector.NewBackfill(job, writer, cfg.BackfillDailyDelay, cfg.BackfillWeekDelay, logger)
		periods := b.Periods(start, end)
		ok := b.Run(ctx, start, end)
		logger.Info("[backfill] %s: %d/%d periods stored", job.Adapter.Name(), ok, len(periods))
		ran++
		if ctx.Err() != nil {
			break
		}
	}
	if ran == 0 {
		logger.Error("No backfillable source matches %q", source)
		return 2
	}
	return 0
}

func verify(ctx context.Context, writer storage.Writer, source string, logger *utils.Logger) int {
	sw, ok := writer.(*storage.SQLWriter)
	if !ok {
		logger.Error("verify needs STORAGE_MODE=postgres or sqlite")
		return 2
	}

	for _, t := range storage.Tables() {
		if source != "" && t.Source != source {
			continue
		}
		dates, err := sw.Dates(ctx, t, 5)
		if err != nil {
			logger.Error("%v", err)
			return 1
		}
		fmt.Printf("\n  %s (%s)\n", t.Name, t.Source)
		if len(dates) == 0 {
			fmt.Println("    no rows")
			continue
		}
		for _, d := range dates {
			day, _ := time.Parse(dateLayout, d)
			n, err := sw.Count(ctx, t, day)
			if err != nil {
				logger.Error("%v", err)
				return 1
			}
			fmt.Printf("    %s  %4d rows\n", d, n)
		}

		latest, _ := time.Parse(dateLayout, dates[0])
		rows, err := sw.Rows(ctx, t, latest)
		if err != nil {
			logger.Error("%v", err)
			return 1
		}
		for i, r := range rows {
			if i == 3 {
				break
			}
			fmt.Printf("    %v\n", r)
		}
	}
	fmt.Println()
	return 0
}
