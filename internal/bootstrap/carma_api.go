package bootstrap

import (
	"strings"
	"time"

	"carma_server/adapter/in/http"
	"carma_server/config"
	"carma_server/infra/middleware"
	"carma_server/pkg/logger"
	"carma_server/pkg/metrics"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logger.Init(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Service: "carma-api",
		Pretty:  cfg.IsDevelopment(),
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		StrictRouting:         false,
		CaseSensitive:         false,

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		// 10MB
		BodyLimit: 10 * 1024 * 1024,

		ServerHeader:       "",
		DisableDefaultDate: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.PreventPathTraversal())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		allowOrigins = "*"
		allowCredentials = false
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders:    "X-Request-ID",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	latency := metrics.NewLatencyRegistry(1000)
	http.NewHealthHandler(deps.Checks).Register(app)
	http.NewMetricsHandler(latency).Register(app)

	api := app.Group("/api")
	api.Use(middleware.Latency(latency))
	api.Use(middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).Handler())

	http.NewEmailHandler(deps.Inbox, deps.Summary, deps.Vendor).Register(api)
	http.NewProjectHandler(deps.Projects).Register(api)
	http.NewVendorHandler(deps.Vendor).Register(api)
	http.NewReportHandler(deps.Report).Register(api)
	http.NewProcurementHandler(deps.Procurement).Register(api)

	logger.Info("API routes registered (store=%s, checks=%d)", cfg.StoreBackend, len(deps.Checks))

	return app, cleanup, nil
}
