package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/voxel-stream/internal/logging"
	"github.com/annel0/voxel-stream/internal/middleware"
	"github.com/annel0/voxel-stream/internal/world"
)

// StatsSource отдаёт снимок состояния стриминга. Методы вызываются
// из горутин HTTP-сервера и должны быть потокобезопасны.
type StatsSource interface {
	Snapshot() world.Stats
	LoadingStats() string
	CullingStats() string
}

// Config содержит конфигурацию отладочного сервера
type Config struct {
	Addr     string              // адрес, например ":6060"
	Source   StatsSource         // источник статистики чанков
	Registry *prometheus.Registry // nil - новый регистр
	Logger   *logging.Logger
}

// DebugServer - HTTP-сервер только для чтения: здоровье, статистика чанков,
// сведения о процессе и Prometheus /metrics
type DebugServer struct {
	router  *gin.Engine
	srv     *http.Server
	source  StatsSource
	process *ProcessStats
	logger  *logging.Logger
}

// NewDebugServer создаёт сервер, но не запускает его
func NewDebugServer(cfg Config) *DebugServer {
	if cfg.Addr == "" {
		cfg.Addr = ":6060"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetAPILogger()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("voxel_debug"))
	router.Use(middleware.NewRequestLogger(cfg.Logger).Handler())

	promMw := middleware.NewPrometheusMiddleware("voxel_debug", cfg.Registry)
	router.Use(promMw.Handler())
	middleware.RegisterMetricsEndpoint(router, cfg.Registry)

	s := &DebugServer{
		router:  router,
		source:  cfg.Source,
		process: NewProcessStats(),
		logger:  cfg.Logger,
	}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.setupRoutes()
	return s
}

func (s *DebugServer) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	debug := s.router.Group("/debug")
	{
		debug.GET("/chunks", s.handleChunks)
		debug.GET("/process", s.handleProcess)
	}
}

// Handler возвращает http.Handler сервера
func (s *DebugServer) Handler() http.Handler {
	return s.router
}

// Start запускает сервер и блокируется до Shutdown
func (s *DebugServer) Start() error {
	s.logger.Info("🩺 Отладочный HTTP доступен по адресу %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь текущих запросов
func (s *DebugServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *DebugServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
		"uptime": s.process.Uptime(),
	})
}

func (s *DebugServer) handleChunks(c *gin.Context) {
	if s.source == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chunk manager is not attached"})
		return
	}

	stats := s.source.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"stats":          stats,
		"culled_percent": stats.CulledPercent(),
		"loading":        s.source.LoadingStats(),
		"culling":        s.source.CullingStats(),
	})
}

func (s *DebugServer) handleProcess(c *gin.Context) {
	resp := gin.H{
		"uptime": s.process.Uptime(),
		"memory": s.process.Memory(),
	}
	if percent, err := s.process.CPUPercent(); err == nil {
		resp["cpu_percent"] = percent
	} else {
		resp["cpu_error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}
