// Package trends exposes Google Trends interest, compare and related
// lookups over REST, saving every payload as JSON on disk.
package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chart-collector/metrics"
	"chart-collector/models"
	"chart-collector/utils"
)

// Service resolves categories, consults the cache, calls the client and
// writes the payload file.
type Service struct {
	client Client
	cache  Cache
	ttl    time.Duration
	dir    string
	logger *utils.Logger
}

// NewService creates a Service. cache may be nil.
func NewService(client Client, cache Cache, ttl time.Duration, dir string, logger *utils.Logger) *Service {
	return &Service{client: client, cache: cache, ttl: ttl, dir: dir, logger: logger}
}

// Interest returns interest over time for one term between two dates.
func (s *Service) Interest(ctx context.Context, req models.InterestRequest) (*models.InterestResponse, error) {
	catID, err := CategoryID(req.Category)
	if err != nil {
		return nil, err
	}

	var resp models.InterestResponse
	key := requestKey("interest", req)
	if !s.cached(ctx, key, &resp) {
		series, err := s.client.InterestOverTime(ctx, Query{
			Terms:     []string{req.SearchTerm},
			Timeframe: req.StartDate + " " + req.EndDate,
			Geo:       req.Geo,
			Category:  catID,
		})
		if err != nil {
			return nil, fmt.Errorf("interest %q: %w", req.SearchTerm, err)
		}
		points := series[req.SearchTerm]
		if points == nil {
			points = []models.Point{}
		}
		resp = models.InterestResponse{
			SearchTerm: req.SearchTerm,
			StartDate:  req.StartDate,
			EndDate:    req.EndDate,
			Geo:        req.Geo,
			Category:   req.Category,
			CategoryID: catID,
			Points:     points,
		}
		s.store(ctx, key, resp)
	}

	if err := s.save(InterestFilename(req.SearchTerm, req.StartDate, req.EndDate, catID), resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Compare returns one interest series per term on a shared scale.
func (s *Service) Compare(ctx context.Context, req models.CompareRequest) (*models.CompareResponse, error) {
	catID, err := CategoryID(req.Category)
	if err != nil {
		return nil, err
	}

	var resp models.CompareResponse
	key := requestKey("compare", req)
	if !s.cached(ctx, key, &resp) {
		series, err := s.client.InterestOverTime(ctx, Query{
			Terms:     req.SearchTerms,
			Timeframe: req.StartDate + " " + req.EndDate,
			Geo:       req.Geo,
			Category:  catID,
		})
		if err != nil {
			return nil, fmt.Errorf("compare %v: %w", req.SearchTerms, err)
		}
		out := make(map[string][]models.Point, len(req.SearchTerms))
		for _, term := range req.SearchTerms {
			if pts := series[term]; pts != nil {
				out[term] = pts
			} else {
				out[term] = []models.Point{}
			}
		}
		resp = models.CompareResponse{
			SearchTerms: req.SearchTerms,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			Geo:         req.Geo,
			Category:    req.Category,
			CategoryID:  catID,
			Series:      out,
		}
		s.store(ctx, key, resp)
	}

	if err := s.save(CompareFilename(req.SearchTerms, req.StartDate, req.EndDate, catID), resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Related returns related topics or queries for a term.
func (s *Service) Related(ctx context.Context, req models.RelatedRequest) (*models.RelatedResponse, error) {
	catID, err := CategoryID(req.Category)
	if err != nil {
		return nil, err
	}

	var resp models.RelatedResponse
	key := requestKey("related", req)
	if !s.cached(ctx, key, &resp) {
		top, rising, err := s.client.Related(ctx, Query{
			Terms:     []string{req.SearchTerm},
			Timeframe: req.Timeframe,
			Geo:       req.Geo,
			Category:  catID,
		}, req.Mode)
		if err != nil {
			return nil, fmt.Errorf("related %s %q: %w", req.Mode, req.SearchTerm, err)
		}
		if top == nil {
			top = []models.RelatedItem{}
		}
		if rising == nil {
			rising = []models.RelatedItem{}
		}
		resp = models.RelatedResponse{
			SearchTerm: req.SearchTerm,
			Geo:        req.Geo,
			Category:   req.Category,
			CategoryID: catID,
			Timeframe:  req.Timeframe,
			Mode:       req.Mode,
			Top:        top,
			Rising:     rising,
		}
		s.store(ctx, key, resp)
	}

	if err := s.save(RelatedFilename(req.Mode, req.SearchTerm, req.Timeframe, catID), resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Service) cached(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, out)
	if err != nil {
		s.logger.Warn("[trends] Cache read failed: %v", err)
		return false
	}
	if hit {
		metrics.TrendsCacheHits.Inc()
	}
	return hit
}

func (s *Service) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v, s.ttl); err != nil {
		s.logger.Warn("[trends] Cache write failed: %v", err)
	}
}

// save writes v as indented JSON to dir/name.
func (s *Service) save(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	s.logger.Info("[trends] Saved %s", path)
	return nil
}
