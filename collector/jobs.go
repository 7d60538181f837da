package collector

import (
	"chart-collector/config"
	"chart-collector/models"
	"chart-collector/scraper"
	"chart-collector/scraper/billboard"
	"chart-collector/scraper/kalshi"
	"chart-collector/scraper/kworb"
	"chart-collector/scraper/searchtrends"
	"chart-collector/scraper/tiktok"
	"chart-collector/storage"
	"chart-collector/trends"
	"chart-collector/utils"
)

// Adapters builds every chart adapter from cfg, in collection order. Each
// adapter gets its own circuit breakers. songs feeds the search interest
// adapter with the latest streaming chart and may be nil.
func Adapters(cfg *config.Config, songs storage.Reader, logger *utils.Logger) []scraper.Adapter {
	client := utils.NewHTTPClient(cfg.HTTPTimeout, utils.BrowserUserAgent)
	search := trends.NewGoogleClient(trends.DefaultGoogleURL, cfg.TrendsHL,
		client.ForSource(models.SourceSearch), cfg.SourcePause, logger)

	var renderer billboard.PageRenderer
	if cfg.RenderFallback {
		renderer = scraper.NewRenderer(cfg.ChromeBin, logger)
	}

	return []scraper.Adapter{
		kworb.NewSpotify(kworb.DefaultBaseURL, client.ForSource(models.SourceSpotify), logger),
		kworb.NewYouTube(kworb.DefaultBaseURL, client.ForSource(models.SourceYouTube), logger),
		kworb.NewITunes(kworb.DefaultBaseURL, client.ForSource(models.SourceITunes), logger),
		kworb.NewAppleMusic(kworb.DefaultBaseURL, client.ForSource(models.SourceAppleMusic), logger),
		kworb.NewRadio(kworb.DefaultBaseURL, client.ForSource(models.SourceRadio), logger),
		tiktok.New(tiktok.DefaultBaseURL, cfg.TikTokAPIKey, client.ForSource(models.SourceTikTok), logger),
		searchtrends.New(search, songs, cfg.TrendsSongs, cfg.SourcePause, logger),
		kalshi.New(cfg.KalshiBaseURL, cfg.KalshiAPIKey, cfg.KalshiSeries, client.ForSource(models.SourceKalshi), logger),
		billboard.New(billboard.DefaultBaseURL, client.ForSource(models.SourceBillboard), renderer, logger),
	}
}

// Jobs wraps adapters with their tables, top-N caps and triggers. The
// chart-of-record only runs on its publication weekday.
func Jobs(cfg *config.Config, adapters []scraper.Adapter) ([]Job, error) {
	jobs := make([]Job, 0, len(adapters))
	for _, a := range adapters {
		table, err := storage.TableFor(a.Name())
		if err != nil {
			return nil, err
		}
		job := Job{Adapter: a, Table: table, TopN: cfg.TopN}
		if a.Name() == models.SourceBillboard {
			job.TopN = cfg.ChartOfRecordTopN
			job.Trigger = WeeklyTrigger(cfg.ChartOfRecordDay)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
