package api

import (
	"github.com/ayo6706/currency-widget/internal/api/handler"
	"github.com/ayo6706/currency-widget/internal/api/middleware"
	"github.com/ayo6706/currency-widget/internal/api/spec"
	"github.com/ayo6706/currency-widget/internal/config"
	"github.com/ayo6706/currency-widget/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type Router struct {
	cfg    *config.Config
	logger *zap.Logger
	widget *service.WidgetService
	redis  redis.Cmdable
}

// NewRouter wires the local adapter. redis may be nil.
func NewRouter(cfg *config.Config, logger *zap.Logger, widget *service.WidgetService, redis redis.Cmdable) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{cfg: cfg, logger: logger, widget: widget, redis: redis}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))

	// Handlers
	var rates handler.RateStateReader
	if api.widget != nil {
		rates = api.widget
	}
	healthHandler := handler.NewHealthHandler(api.redis, rates)
	currencyHandler := handler.NewCurrencyHandler()
	widgetHandler := handler.NewWidgetHandler(api.widget)

	// Operational Routes
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Widget Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimiter(api.cfg.RateLimitRPS))

		r.Get("/v1/currencies", currencyHandler.ListCurrencies)
		r.Get("/v1/state", widgetHandler.GetState)
		r.Put("/v1/amount", widgetHandler.SetAmount)
		r.Put("/v1/source", widgetHandler.SetSource)

		r.Post("/v1/targets", widgetHandler.AddTarget)
		r.Put("/v1/targets/{index}", widgetHandler.ReplaceTarget)
		r.Delete("/v1/targets/{index}", widgetHandler.RemoveTarget)

		r.Post("/v1/conversions", widgetHandler.Convert)
		r.Delete("/v1/history", widgetHandler.ClearHistory)
		r.Post("/v1/rates/refetch", widgetHandler.Refetch)
		r.Put("/v1/theme/toggle", widgetHandler.ToggleTheme)
	})

	return r
}
