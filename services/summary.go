package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"chart-collector/models"
	"chart-collector/utils"
)

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

// Generate tallies per-source outcomes for a finished run.
func (s *SummaryService) Generate(runID string, started time.Time, results []models.SourceResult, top map[string]models.ChartEntry) *models.RunReport {
	report := &models.RunReport{
		RunID:      runID,
		StartedAt:  started,
		Elapsed:    time.Since(started),
		Results:    results,
		TopEntries: top,
	}
	if report.TopEntries == nil {
		report.TopEntries = make(map[string]models.ChartEntry)
	}

	for _, r := range results {
		switch {
		case r.Status == nil:
			report.Skipped++
		case *r.Status:
			report.Succeeded++
		default:
			report.Failed++
		}
	}
	return report
}

// Print logs the report as a fixed-width table.
func (s *SummaryService) Print(r *models.RunReport) {
	sep := strings.Repeat("=", 64)
	thin := strings.Repeat("-", 64)

	s.logger.Info("[summary] %s", sep)
	s.logger.Info("[summary] COLLECTION SUMMARY  run=%s  elapsed=%s", r.RunID, r.Elapsed.Round(time.Millisecond))
	s.logger.Info("[summary] %s", sep)
	s.logger.Info("[summary] %-14s %-8s %8s %10s  %s", "SOURCE", "STATUS", "ROWS", "ELAPSED", "TOP ENTRY")
	s.logger.Info("[summary] %s", thin)

	for _, res := range r.Results {
		top := "-"
		if e, ok := r.TopEntries[res.Source]; ok {
			top = truncate(fmt.Sprintf("#%d %s - %s", e.Rank, e.Performer, e.Title), 30)
		}
		s.logger.Info("[summary] %-14s %-8s %8d %10s  %s",
			res.Source, statusLabel(res.Status), res.Rows, res.Elapsed.Round(time.Millisecond), top)
	}

	s.logger.Info("[summary] %s", thin)
	s.logger.Info("[summary] succeeded=%d failed=%d skipped=%d", r.Succeeded, r.Failed, r.Skipped)

	if r.Failed > 0 {
		var failed []string
		for _, res := range r.Results {
			if res.Status != nil && !*res.Status {
				failed = append(failed, res.Source)
			}
		}
		sort.Strings(failed)
		s.logger.Warn("[summary] failed sources: %s", strings.Join(failed, ", "))
	}
}

func statusLabel(status *bool) string {
	switch {
	case status == nil:
		return "SKIPPED"
	case *status:
		return "OK"
	default:
		return "FAILED"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
