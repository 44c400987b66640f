// Package server provides HTTP server initialization and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"fluxocaixa/src/app/http/dto"
	"fluxocaixa/src/app/http/handler"
	"fluxocaixa/src/app/middleware"
	"fluxocaixa/src/core/usecase"
	"fluxocaixa/src/infra/config"
	"fluxocaixa/src/infra/db"
	"fluxocaixa/src/infra/logger"
	"fluxocaixa/src/infra/metrics"
	"fluxocaixa/src/infra/repo"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	router  *gin.Engine
	http    *http.Server
	db      *db.Postgres
	metrics *metrics.Metrics

	// Handlers
	healthHandler    *handler.HealthHandler
	transacaoHandler *handler.TransacaoHandler
	relatorioHandler *handler.RelatorioHandler
}

// New creates a new Server with all dependencies wired up. The server owns
// pg from here on and closes it during shutdown.
func New(cfg *config.Config, log *slog.Logger, pg *db.Postgres, m *metrics.Metrics) *Server {
	// Set Gin mode based on log level
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	dto.RegisterTagNames()

	router := gin.New()

	ledger := repo.NewLedgerRepository(pg.Executor, pg.Transactor, logger.WithComponent(log, "repo"))

	healthService := usecase.NewHealthService(pg, cfg.Server.Environment, cfg.Server.Version, log)
	transacaoService := usecase.NewTransacaoService(ledger, m, log)
	relatorioService := usecase.NewRelatorioService(ledger, m, log)

	s := &Server{
		cfg:              cfg,
		log:              log,
		router:           router,
		db:               pg,
		metrics:          m,
		healthHandler:    handler.NewHealthHandler(healthService),
		transacaoHandler: handler.NewTransacaoHandler(transacaoService),
		relatorioHandler: handler.NewRelatorioHandler(relatorioService),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	// Order matters: Recovery should be first to catch all panics
	s.router.Use(middleware.Recovery(s.log))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(middleware.Logging(s.log))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.GET("/", handler.Index(s.cfg.Server.Version))
	s.router.GET("/health", s.healthHandler.Health)
	s.router.GET("/health/detailed", s.healthHandler.DetailedHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api/transacoes")
	{
		api.GET("", s.transacaoHandler.List)
		api.POST("", s.transacaoHandler.Create)
		api.POST("/lote", s.transacaoHandler.InsertBatch)
		api.GET("/:id", s.transacaoHandler.Get)

		api.GET("/consultas/saldo", s.relatorioHandler.Saldo)
		api.GET("/consultas/relatorio-mensal", s.relatorioHandler.RelatorioMensal)
		api.GET("/consultas/tags", s.relatorioHandler.BuscarPorTags)
		api.GET("/consultas/estatisticas", s.relatorioHandler.Estatisticas)

		api.POST("/consolidar/:ano/:mes", s.relatorioHandler.ConsolidarMes)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":       "NOT_FOUND",
				"message":    "The requested resource was not found",
				"path":       c.Request.URL.Path,
				"request_id": middleware.GetRequestID(c),
			},
		})
	})
}

// setupHTTPServer configures the underlying HTTP server.
func (s *Server) setupHTTPServer() {
	s.http = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
}

// Run listens on the configured address and serves until ctx is cancelled
// or SIGINT/SIGTERM arrives, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		_ = s.db.Close(context.Background())
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("received shutdown signal", "cause", context.Cause(gctx))
		return s.Shutdown()
	})

	return g.Wait()
}

// Shutdown stops accepting requests, waits for in-flight ones, then closes
// the database pool.
func (s *Server) Shutdown() error {
	s.log.Info("shutting down server", "timeout", s.cfg.Server.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if err := s.db.Close(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("database shutdown error: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.log.Info("server stopped gracefully")
	return nil
}

// Router returns the Gin router for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}
