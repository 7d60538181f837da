package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chart-collector/config"
	"chart-collector/models"
	"chart-collector/utils"
	"chart-collector/weather"
)

const dateLayout = "2006-01-02"

func main() {
	mode := flag.String("mode", "evaluate", "backfill-nws | backfill-iem | features | evaluate | brackets | forecast | daily-features | nws-brackets")
	startStr := flag.String("start", "", "first day (YYYY-MM-DD) for backfill modes")
	endStr := flag.String("end", "", "last day (YYYY-MM-DD) for backfill modes, default today")
	station := flag.String("station", "", "station id, default WEATHER_STATION")
	flag.Parse()

	cfg := config.Load()
	logger := utils.NewLoggerWith(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	if *station == "" {
		*station = cfg.WeatherStation
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &app{
		cfg:     cfg,
		logger:  logger,
		store:   weather.NewStore(cfg.WeatherDir),
		http:    utils.NewHTTPClient(cfg.HTTPTimeout, cfg.NWSUserAgent),
		station: *station,
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	if *endStr != "" {
		d, err := time.Parse(dateLayout, *endStr)
		if err != nil {
			logger.Error("Invalid -end: %v", err)
			os.Exit(2)
		}
		end = d
	}
	var start time.Time
	if *startStr != "" {
		d, err := time.Parse(dateLayout, *startStr)
		if err != nil {
			logger.Error("Invalid -start: %v", err)
			os.Exit(2)
		}
		start = d
	}

	var err error
	switch *mode {
	case "backfill-nws":
		if start.IsZero() {
			// the observations endpoint only keeps recent history
			start = end.AddDate(0, 0, -30)
		}
		err = app.backfill(ctx, app.nws(), start, end, weather.DefaultChunkDays)
	case "backfill-iem":
		if start.IsZero() {
			start = end.AddDate(-10, 0, 0)
		}
		// IEM serves years per request
		err = app.backfill(ctx, weather.NewIEMClient(weather.DefaultIEMURL, app.http, logger), start, end, 366)
	case "features":
		_, err = app.features()
	case "evaluate":
		_, _, _, err = app.evaluate()
	case "brackets":
		err = app.modelBrackets()
	case "forecast":
		err = app.forecast(ctx)
	case "daily-features":
		err = app.dailyFeatures()
	case "nws-brackets":
		err = app.nwsBrackets(ctx)
	default:
		logger.Error("Unknown mode %q", *mode)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("[weather] %s failed: %v", *mode, err)
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	logger  *utils.Logger
	store   *weather.Store
	http    *utils.HTTPClient
	station string
}

func (a *app) nws() *weather.NWSClient {
	return weather.NewNWSClient(weather.DefaultNWSBaseURL, a.cfg.NWSUserAgent, a.http, a.logger)
}

func (a *app) backfill(ctx context.Context, src weather.Source, start, end time.Time, chunkDays int) error {
	a.logger.Info("[weather] Backfilling %s official highs from %s to %s via %s",
		a.station, start.Format(dateLayout), end.Format(dateLayout), src.Name())

	highs, err := weather.NewBackfiller(src, chunkDays, time.Second, a.logger).Run(ctx, a.station, start, end)
	if err != nil {
		return err
	}
	merged, err := a.store.MergeHighs(a.station, src.Name(), highs)
	if err != nil {
		return err
	}
	a.logger.Info("[weather] Saved %d new days (%d total) to %s", len(highs), len(merged), a.store.HighsPath(a.station))
	return nil
}

func (a *app) features() ([]models.FeatureRow, error) {
	highs, err := a.store.LoadHighs(a.station)
	if err != nil {
		return nil, err
	}
	if len(highs) == 0 {
		return nil, fmt.Errorf("no highs stored for %s, run a backfill first: %w", a.station, weather.ErrNoData)
	}
	rows, err := weather.BuildClimatologyFeatures(highs, weather.DefaultMinHistory)
	if err != nil {
		return nil, err
	}
	if err := a.store.SaveFeatures(a.station, rows); err != nil {
		return nil, err
	}
	a.logger.Info("[weather] Built %d feature rows from %d days -> %s", len(rows), len(highs), a.store.FeaturesPath(a.station))
	return rows, nil
}

func (a *app) evaluate() ([]models.FeatureRow, models.EvaluationReport, *weather.Model, error) {
	rows, err := a.features()
	if err != nil {
		return nil, models.EvaluationReport{}, nil, err
	}
	report, model, err := weather.Evaluate(rows, weather.DefaultTestFrac)
	if err != nil {
		return nil, models.EvaluationReport{}, nil, err
	}

	fmt.Println()
	fmt.Printf("  Train: %d rows (through %s) | Test: %d rows (from %s)\n",
		report.TrainRows, report.TrainEnd.Format(dateLayout), report.TestRows, report.TestStart.Format(dateLayout))
	fmt.Printf("  %-22s %8s %8s\n", "", "MAE", "RMSE")
	fmt.Printf("  %-22s %8.3f %8.3f\n", "Baseline (lag 1) train", report.BaselineTrain.MAE, report.BaselineTrain.RMSE)
	fmt.Printf("  %-22s %8.3f %8.3f\n", "Baseline (lag 1) test", report.BaselineTest.MAE, report.BaselineTest.RMSE)
	fmt.Printf("  %-22s %8.3f %8.3f\n", "Model train", report.ModelTrain.MAE, report.ModelTrain.RMSE)
	fmt.Printf("  %-22s %8.3f %8.3f\n", "Model test", report.ModelTest.MAE, report.ModelTest.RMSE)
	fmt.Printf("  Residual sigma (test): %.3f °F\n\n", report.ResidualSigma)
	return rows, report, model, nil
}

// modelBrackets treats the last stored day as today and spreads the model's
// estimate over brackets.
func (a *app) modelBrackets() error {
	rows, report, model, err := a.evaluate()
	if err != nil {
		return err
	}
	last := rows[len(rows)-1]
	mu := model.Predict(last)
	fmt.Printf("  Date: %s, true high: %.1f °F, model estimate: %.1f °F\n",
		last.TargetDate.Format(dateLayout), last.TmaxF, mu)
	printBrackets(weather.BracketProbabilities(mu, report.ResidualSigma, weather.ExampleBrackets(mu)))
	return nil
}

func (a *app) forecast(ctx context.Context) error {
	fc, err := a.nws().ForecastHighs(ctx, a.cfg.WeatherLat, a.cfg.WeatherLon)
	if err != nil {
		return err
	}
	if len(fc) == 0 {
		return weather.ErrNoData
	}
	history, err := a.store.AppendForecasts(a.station, fc)
	if err != nil {
		return err
	}
	a.logger.Info("[weather] Stored %d forecasts (%d total) -> %s", len(fc), len(history), a.store.ForecastsPath(a.station))

	fmt.Printf("\n  NWS forecast issued %s\n", fc[0].IssuedAt.Format(time.RFC3339))
	for _, f := range fc {
		fmt.Printf("  %s  %5.1f °F\n", f.TargetDate.Format(dateLayout), f.HighF)
	}
	fmt.Println()
	return nil
}

// dailyFeatures joins stored highs with the latest stored forecast per day.
func (a *app) dailyFeatures() error {
	highs, err := a.store.LoadHighs(a.station)
	if err != nil {
		return err
	}
	forecasts, err := a.store.LoadForecasts(a.station)
	if err != nil {
		return err
	}
	rows := weather.BuildDailyFeatures(highs, forecasts)
	if len(rows) == 0 {
		return fmt.Errorf("no day has both an observed high and a forecast: %w", weather.ErrNoData)
	}
	if err := a.store.SaveDailyFeatures(a.station, rows); err != nil {
		return err
	}
	a.logger.Info("[weather] Built daily feature table with %d rows -> %s", len(rows), a.store.DailyFeaturesPath(a.station))

	start := len(rows) - 5
	if start < 0 {
		start = 0
	}
	for _, r := range rows[start:] {
		fmt.Printf("  %s  obs %5.1f  fcst %5.1f  issued %s\n",
			r.TargetDate.Format(dateLayout), r.TmaxF, r.ForecastHighF, r.IssuedAt.Format(time.RFC3339))
	}
	return nil
}

// nwsBrackets centres the brackets on the next NWS daytime high and uses
// the model's held-out residual spread.
func (a *app) nwsBrackets(ctx context.Context) error {
	_, report, _, err := a.evaluate()
	if err != nil {
		return err
	}
	fc, err := a.nws().ForecastHighs(ctx, a.cfg.WeatherLat, a.cfg.WeatherLon)
	if err != nil {
		return err
	}
	if len(fc) == 0 {
		return weather.ErrNoData
	}
	next := fc[0]
	fmt.Printf("  NWS high for %s: %.1f °F (sigma %.2f)\n", next.TargetDate.Format(dateLayout), next.HighF, report.ResidualSigma)
	printBrackets(weather.BracketProbabilities(next.HighF, report.ResidualSigma, weather.ExampleBrackets(next.HighF)))
	return nil
}

func printBrackets(probs []models.BracketProbability) {
	fmt.Println("\n  Bracket probabilities:")
	for _, p := range probs {
		fmt.Printf("  %18s: %5.1f %%\n", weather.Label(p.Bracket), p.Probability*100)
	}
	fmt.Println()
}
