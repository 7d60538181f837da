package trends

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"chart-collector/metrics"
	"chart-collector/models"
)

var validate = validator.New()

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// NewApp builds the fiber app with the trends routes, /health and /metrics.
func NewApp(svc *Service) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "trends-server",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler:          ErrorHandler,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "trends-server",
		})
	})
	app.Get("/metrics", metrics.MetricsHandler())

	RegisterRoutes(app, svc)
	return app
}

// RegisterRoutes wires the trends handlers into app.
func RegisterRoutes(app *fiber.App, svc *Service) {
	g := app.Group("/trends")

	g.Post("/interest", func(c *fiber.Ctx) error {
		req := models.InterestRequest{Geo: "US", Category: "All"}
		if err := bind(c, &req); err != nil {
			return record("interest", err)
		}
		resp, err := svc.Interest(c.UserContext(), req)
		if err != nil {
			return record("interest", upstream(err))
		}
		record("interest", nil)
		return c.JSON(resp)
	})

	g.Post("/compare", func(c *fiber.Ctx) error {
		req := models.CompareRequest{Geo: "US", Category: "All"}
		if err := bind(c, &req); err != nil {
			return record("compare", err)
		}
		resp, err := svc.Compare(c.UserContext(), req)
		if err != nil {
			return record("compare", upstream(err))
		}
		record("compare", nil)
		return c.JSON(resp)
	})

	g.Post("/related", func(c *fiber.Ctx) error {
		req := models.RelatedRequest{Geo: "US", Category: "All", Timeframe: "today 12-m", Mode: "queries"}
		if err := bind(c, &req); err != nil {
			return record("related", err)
		}
		resp, err := svc.Related(c.UserContext(), req)
		if err != nil {
			return record("related", upstream(err))
		}
		record("related", nil)
		return c.JSON(resp)
	})
}

func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// upstream maps service errors to HTTP errors.
func upstream(err error) error {
	if errors.Is(err, ErrUnknownCategory) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusBadGateway, err.Error())
}

func record(endpoint string, err error) error {
	status := "200"
	if err != nil {
		status = "500"
		var e *fiber.Error
		if errors.As(err, &e) {
			status = strconv.Itoa(e.Code)
		}
	}
	metrics.TrendsRequests.WithLabelValues(endpoint, status).Inc()
	return err
}
