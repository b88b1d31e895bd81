package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/config"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/products-catalog-api/internal/infrastructure/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const uuidPattern = "[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}"

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	config  *config.ServerConfig
	product *handler.ProductHandler
	health  *handler.HealthHandler
	meters  metric.MeterProvider
	logger  *slog.Logger
	srv     *http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.ServerConfig,
	product *handler.ProductHandler,
	health *handler.HealthHandler,
	meters metric.MeterProvider,
	logger *slog.Logger,
) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		product: product,
		health:  health,
		meters:  meters,
		logger:  logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.srv = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	// Structured JSON logging replaces chi's default logger
	s.router.Use(middleware.StructuredLogger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.RequestID)
	// Route-aware middleware
	s.router.Use(middleware.HTTPRouteContext())
	s.router.Use(middleware.ActiveRequestsMiddleware(s.meters.Meter("products-api")))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/products", func(r chi.Router) {
		r.Get("/", s.product.GetProducts)
		r.Post("/", s.product.AddProduct)
		r.Put("/", s.product.UpdateProduct)
		r.Get("/search/product-id/{id:"+uuidPattern+"}", s.product.GetProductByID)
		r.Get("/search/{text}", s.product.SearchProducts)
		r.Delete("/{id:"+uuidPattern+"}", s.product.DeleteProduct)
	})

	// Probes and the Prometheus scrape endpoint
	s.router.Get("/health", s.health.Health)
	s.router.Get("/ready", s.health.Ready)
	s.router.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// Handler returns the router wrapped with otelhttp instrumentation
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "http-server",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
		otelhttp.WithMeterProvider(s.meters),
		otelhttp.WithMetricAttributesFn(func(r *http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{
				attribute.String("http.route", middleware.RoutePattern(r)),
			}
		}),
	)
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		slog.String("address", s.srv.Addr),
	)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Shutting down HTTP server")
	return s.srv.Shutdown(ctx)
}
