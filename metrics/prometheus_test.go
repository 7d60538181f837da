package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestMetricsEndpointExposesCounters(t *testing.T) {
	Init()
	Init()

	RowsWritten.WithLabelValues("spotify", "csv").Add(3)

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `chart_rows_written_total{backend="csv",source="spotify"}`) {
		t.Errorf("metrics output missing rows counter:\n%s", body)
	}
}
