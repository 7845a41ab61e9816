package services

import (
	"fmt"
	"strconv"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/sidequest-rpg/sidequest_api/shared"
)

const (
	MONITORING_SVC          = "monitoring_svc"
	SERVICE_NAME            = "sidequest_api"
	DEFAULT_PROMETHEUS_PORT = 2112
)

// HTTP Metrics
var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	httpRequestsSuccessfulTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_successful_total",
			Help: "Total successful HTTP requests (2xx status codes)",
		},
		[]string{"endpoint", "method"},
	)

	httpRequestsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_failed_total",
			Help: "Total failed HTTP requests (4xx, 5xx status codes)",
		},
		[]string{"endpoint", "method"},
	)

	httpRequestsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_active",
			Help: "Number of active concurrent HTTP requests",
		},
		[]string{"endpoint", "method"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "method", "status"},
	)

	httpResponseSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response payload size in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
		},
		[]string{"endpoint", "method"},
	)
)

// Oracle Metrics
var (
	oracleCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_call_duration_seconds",
			Help:    "Quest oracle call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"operation", "outcome"},
	)

	oracleFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_fallbacks_total",
			Help: "Oracle calls answered from the local fallback",
		},
		[]string{"operation"},
	)
)

// Game Metrics
var (
	questsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quests_generated_total",
			Help: "Quests handed out to players",
		},
		[]string{"source"},
	)

	proofsVerifiedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofs_verified_total",
			Help: "Proof submissions by verdict",
		},
		[]string{"outcome"},
	)

	xpAwardedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "xp_awarded_total",
			Help: "Experience points awarded",
		},
	)

	levelUpsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "level_ups_total",
			Help: "Awards that raised a player's level",
		},
	)
)

type MonitoringService struct {
	context.DefaultService

	port     int
	register *prometheus.Registry

	server *fiber.App
}

type monitoringConfig struct {
	Port int `env:"PROMETHEUS_PORT" envDefault:"2112"`
}

func (svc *MonitoringService) Id() string {
	return MONITORING_SVC
}

func (svc *MonitoringService) Configure(ctx *context.Context) error {
	cfg := monitoringConfig{Port: DEFAULT_PROMETHEUS_PORT}
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("monitoring config: %w", err)
	}
	svc.port = cfg.Port
	return svc.DefaultService.Configure(ctx)
}

func (svc *MonitoringService) Start() error {
	reg := prometheus.NewRegistry()

	// Heap, GC and process stats come from the runtime collectors.
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	reg.MustRegister(
		httpRequestsTotal,
		httpRequestsSuccessfulTotal,
		httpRequestsFailedTotal,
		httpRequestsActive,
		httpRequestDurationSeconds,
		httpResponseSizeBytes,
		oracleCallDurationSeconds,
		oracleFallbacksTotal,
		questsGeneratedTotal,
		proofsVerifiedTotal,
		xpAwardedTotal,
		levelUpsTotal,
	)

	svc.register = reg

	svc.initializeMetrics()

	config := fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
		},
	}

	svc.server = fiber.New(config)
	svc.server.Use(recover.New())

	svc.server.Get("/metrics", svc.metricsHandler)
	svc.server.Get("/health", svc.healthHandler)

	// The API server is the blocking service, so metrics listen in the background.
	go func() {
		log.Info().Int("port", svc.port).Msg("Prometheus metrics server started")
		if err := svc.server.Listen(fmt.Sprintf(":%v", svc.port)); err != nil {
			log.Error().Err(err).Msg("Prometheus metrics server stopped")
		}
	}()
	return nil
}

func (svc *MonitoringService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

func (svc *MonitoringService) metricsHandler(c *fiber.Ctx) error {
	handler := promhttp.HandlerFor(svc.register, promhttp.HandlerOpts{})
	return adaptor.HTTPHandler(handler)(c)
}

func (svc *MonitoringService) healthHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":    "healthy",
		"service":   SERVICE_NAME,
		"timestamp": time.Now().Unix(),
	})
}

func (svc *MonitoringService) initializeMetrics() {
	httpRequestsTotal.WithLabelValues("/health", "GET", "200").Add(0)
	httpRequestsSuccessfulTotal.WithLabelValues("/health", "GET").Add(0)
	httpRequestsActive.WithLabelValues("/health", "GET").Set(0)

	for _, source := range []string{"oracle", "fallback"} {
		questsGeneratedTotal.WithLabelValues(source).Add(0)
	}
	for _, outcome := range []string{"accepted", "rejected", "honor_system"} {
		proofsVerifiedTotal.WithLabelValues(outcome).Add(0)
	}
	for _, op := range []string{"generate_quests", "verify_proof"} {
		oracleFallbacksTotal.WithLabelValues(op).Add(0)
	}

	log.Info().Msg("Metrics initialized successfully")
}

// RecordRequest records HTTP request metrics
func (svc *MonitoringService) RecordRequest(method, endpoint, status string, duration time.Duration, responseSize int) {
	httpRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(endpoint, method, status).Observe(duration.Seconds())
	httpResponseSizeBytes.WithLabelValues(endpoint, method).Observe(float64(responseSize))

	statusCode, _ := strconv.Atoi(status)
	if statusCode >= 200 && statusCode < 400 {
		httpRequestsSuccessfulTotal.WithLabelValues(endpoint, method).Inc()
	} else if statusCode >= 400 {
		httpRequestsFailedTotal.WithLabelValues(endpoint, method).Inc()
	}
}

func (svc *MonitoringService) QuestsGenerated(source string, n int) {
	questsGeneratedTotal.WithLabelValues(source).Add(float64(n))
}

func (svc *MonitoringService) ProofVerdict(outcome string) {
	proofsVerifiedTotal.WithLabelValues(outcome).Inc()
}

func (svc *MonitoringService) XPAwarded(amount int, leveledUp bool) {
	xpAwardedTotal.Add(float64(amount))
	if leveledUp {
		levelUpsTotal.Inc()
	}
}

func (svc *MonitoringService) OracleCall(operation, outcome string, duration time.Duration) {
	oracleCallDurationSeconds.WithLabelValues(operation, outcome).Observe(duration.Seconds())
	if outcome == "fallback" {
		oracleFallbacksTotal.WithLabelValues(operation).Inc()
	}
}

// MonitoringMiddleware creates a Fiber middleware for monitoring HTTP requests
func MonitoringMiddleware(monitoringSvc *MonitoringService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		method := c.Method()

		httpRequestsActive.WithLabelValues("all", method).Inc()
		defer httpRequestsActive.WithLabelValues("all", method).Dec()

		err := c.Next()

		// Route pattern, not the raw path, to keep label cardinality bounded
		endpoint := c.Route().Path

		status := strconv.Itoa(c.Response().StatusCode())
		if err != nil {
			if appErr, ok := shared.GetAppError(err); ok {
				status = strconv.Itoa(appErr.StatusCode)
			} else if fe, ok := err.(*fiber.Error); ok {
				status = strconv.Itoa(fe.Code)
			} else {
				status = "500"
			}
		}

		monitoringSvc.RecordRequest(method, endpoint, status, time.Since(start), len(c.Response().Body()))
		return err
	}
}
