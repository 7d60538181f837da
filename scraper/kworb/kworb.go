// Package kworb builds chart adapters for the kworb.net aggregator pages.
package kworb

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"chart-collector/models"
	"chart-collector/scraper"
	"chart-collector/utils"
)

// DefaultBaseURL is the aggregator root; tests point adapters elsewhere.
const DefaultBaseURL = "https://kworb.net"

const spotifyStreamFloor = 100000

// NewSpotify returns the global daily streaming chart adapter. The weekly
// chart is the fallback when the daily page is empty.
func NewSpotify(base string, http *utils.HTTPClient, logger *utils.Logger) *scraper.TableAdapter {
	return &scraper.TableAdapter{
		Source: models.SourceSpotify,
		Live: scraper.TablePage{
			URL:  base + "/spotify/country/global_daily.html",
			Spec: scraper.TableSpec{MinColumns: 6, TitleColumn: 2, MetricFrom: 3, MinMetric: spotifyStreamFloor},
		},
		Alternate: func(time.Time) scraper.TablePage {
			return scraper.TablePage{
				URL:  base + "/spotify/country/global_weekly.html",
				Spec: scraper.TableSpec{MinColumns: 6, TitleColumn: 1, MetricFrom: 2, MinMetric: spotifyStreamFloor},
			}
		},
		HTTP:   http,
		Logger: logger,
	}
}

// NewYouTube returns the music video chart adapter. Video ids come from
// the "/video/<id>.html" link in the title cell.
func NewYouTube(base string, http *utils.HTTPClient, logger *utils.Logger) *scraper.TableAdapter {
	return &scraper.TableAdapter{
		Source: models.SourceYouTube,
		Live: scraper.TablePage{
			URL:  base + "/youtube/",
			Spec: scraper.TableSpec{MinColumns: 4, TitleColumn: 2, MetricFrom: 3, IDPrefix: "yt_", IDFunc: videoID},
		},
		HTTP:   http,
		Logger: logger,
	}
}

// NewITunes returns the worldwide iTunes sales chart adapter.
func NewITunes(base string, http *utils.HTTPClient, logger *utils.Logger) *scraper.TableAdapter {
	spec := scraper.TableSpec{MinColumns: 3, TitleColumn: 2, MetricFrom: 3}
	archive := func(day time.Time) scraper.TablePage {
		return scraper.TablePage{URL: base + "/ww/archive/" + day.Format("20060102") + ".html", Spec: spec}
	}
	return &scraper.TableAdapter{
		Source:    models.SourceITunes,
		Live:      scraper.TablePage{URL: base + "/ww/index.html", Spec: spec},
		Archive:   archive,
		Alternate: yesterday(archive),
		HTTP:      http,
		Logger:    logger,
	}
}

// NewAppleMusic returns the Apple Music songs chart adapter.
func NewAppleMusic(base string, http *utils.HTTPClient, logger *utils.Logger) *scraper.TableAdapter {
	spec := scraper.TableSpec{MinColumns: 3, TitleColumn: 2, MetricFrom: 3, IDPrefix: "am_"}
	archive := func(day time.Time) scraper.TablePage {
		return scraper.TablePage{URL: base + "/apple_songs/archive/" + day.Format("20060102") + ".html", Spec: spec}
	}
	return &scraper.TableAdapter{
		Source:    models.SourceAppleMusic,
		Live:      scraper.TablePage{URL: base + "/apple_songs/index.html", Spec: spec},
		Archive:   archive,
		Alternate: yesterday(archive),
		HTTP:      http,
		Logger:    logger,
	}
}

// NewRadio returns the US radio airplay chart adapter.
func NewRadio(base string, http *utils.HTTPClient, logger *utils.Logger) *scraper.TableAdapter {
	return &scraper.TableAdapter{
		Source: models.SourceRadio,
		Live: scraper.TablePage{
			URL:  base + "/radio/",
			Spec: scraper.TableSpec{MinColumns: 4, TitleColumn: 2, MetricFrom: 3, IDPrefix: "radio_"},
		},
		HTTP:   http,
		Logger: logger,
	}
}

// kworb publishes archives with a delay, so the fallback is yesterday's page.
func yesterday(archive func(time.Time) scraper.TablePage) func(time.Time) scraper.TablePage {
	return func(now time.Time) scraper.TablePage {
		return archive(now.AddDate(0, 0, -1))
	}
}

func videoID(cell *goquery.Selection, _, _ string) string {
	href, ok := cell.Find("a").First().Attr("href")
	if !ok || !strings.Contains(href, "/video/") {
		return ""
	}
	id := href[strings.LastIndex(href, "/video/")+len("/video/"):]
	return strings.TrimSuffix(id, ".html")
}
