package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"chart-collector/config"
	"chart-collector/importer"
	"chart-collector/storage"
	"chart-collector/utils"
)

func main() {
	file := flag.String("file", "", "path to the historical chart-of-record CSV")
	startStr := flag.String("start", "", "first chart date to load (YYYY-MM-DD)")
	endStr := flag.String("end", "", "last chart date to load (YYYY-MM-DD)")
	flag.Parse()

	cfg := config.Load()
	logger := utils.NewLoggerWith(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	if *file == "" {
		logger.Error("-file is required")
		os.Exit(2)
	}
	start, err := parseOptionalDate(*startStr)
	if err != nil {
		logger.Error("Invalid -start: %v", err)
		os.Exit(2)
	}
	end, err := parseOptionalDate(*endStr)
	if err != nil {
		logger.Error("Invalid -end: %v", err)
		os.Exit(2)
	}

	writer, err := storage.Open(cfg, logger)
	if err != nil {
		logger.Error("Failed to open storage: %v", err)
		os.Exit(1)
	}
	defer writer.Close()

	loader, err := importer.NewLoader(writer, logger)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	report, err := loader.LoadFile(*file, start, end)
	if err != nil {
		logger.Error("Load failed: %v", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  HISTORICAL CHART IMPORT")
	fmt.Printf("  Weeks written : %d\n", report.Weeks)
	fmt.Printf("  Rows written  : %d\n", report.Rows)
	fmt.Printf("  Rows skipped  : %d\n", report.Skipped)
	fmt.Printf("  Number ones   : %d\n", report.NumberOnes)
	if report.Weeks > 0 {
		fmt.Printf("  Range         : %s -> %s\n", report.First.Format("2006-01-02"), report.Last.Format("2006-01-02"))
	}
	fmt.Println()
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
