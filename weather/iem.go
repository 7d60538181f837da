package weather

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chart-collector/models"
	"chart-collector/utils"
)

// DefaultIEMURL is the Iowa Environmental Mesonet ASOS download endpoint.
const DefaultIEMURL = "https://mesonet.agron.iastate.edu/cgi-bin/request/asos.py"

// IEMClient reads multi-year ASOS archives in a single request.
type IEMClient struct {
	endpoint string
	http     *utils.HTTPClient
	logger   *utils.Logger
}

func NewIEMClient(endpoint string, http *utils.HTTPClient, logger *utils.Logger) *IEMClient {
	return &IEMClient{endpoint: endpoint, http: http, logger: logger}
}

func (c *IEMClient) Name() string { return "iem" }

// DailyHighs downloads tmpf observations for [start, end] and returns the
// maximum per UTC calendar day.
func (c *IEMClient) DailyHighs(ctx context.Context, station string, start, end time.Time) ([]models.DailyHigh, error) {
	q := url.Values{}
	q.Set("station", station)
	q.Set("data", "tmpf")
	q.Set("year1", strconv.Itoa(start.Year()))
	q.Set("month1", strconv.Itoa(int(start.Month())))
	q.Set("day1", strconv.Itoa(start.Day()))
	q.Set("year2", strconv.Itoa(end.Year()))
	q.Set("month2", strconv.Itoa(int(end.Month())))
	q.Set("day2", strconv.Itoa(end.Day()))
	q.Set("tz", "Etc/UTC")
	q.Set("format", "onlycsv")
	q.Set("latlon", "no")
	q.Set("direct", "no")

	c.logger.Info("[iem] Requesting %s observations from %s to %s",
		station, start.Format("2006-01-02"), end.Format("2006-01-02"))

	body, err := c.http.Get(ctx, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("iem: %w", err)
	}
	return ParseASOS(bytes.NewReader(body))
}

// ParseASOS reads an IEM "onlycsv" export with at least the valid and
// tmpf columns. Comment lines and missing ("M") values are skipped.
func ParseASOS(r io.Reader) ([]models.DailyHigh, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("iem: read header: %w", err)
	}

	validIdx, tmpfIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "valid":
			validIdx = i
		case "tmpf":
			tmpfIdx = i
		}
	}
	if validIdx < 0 || tmpfIdx < 0 {
		return nil, fmt.Errorf("iem: unexpected columns %v", header)
	}

	maxByDay := make(map[time.Time]float64)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iem: read row: %w", err)
		}
		if len(rec) <= validIdx || len(rec) <= tmpfIdx {
			continue
		}
		temp, err := strconv.ParseFloat(strings.TrimSpace(rec[tmpfIdx]), 64)
		if err != nil {
			continue
		}
		ts, err := time.Parse("2006-01-02 15:04", strings.TrimSpace(rec[validIdx]))
		if err != nil {
			continue
		}
		day := dateOf(ts, time.UTC)
		if cur, ok := maxByDay[day]; !ok || temp > cur {
			maxByDay[day] = temp
		}
	}

	if len(maxByDay) == 0 {
		return nil, ErrNoData
	}
	return sortedHighs(maxByDay), nil
}
