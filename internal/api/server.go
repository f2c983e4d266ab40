// Package api exposes the read-only results API: runs, statistics,
// unmatched rows, and the correction audit trail. All writes happen
// through the batch commands; the API never mutates anything.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/config"
	"github.com/DSDPowerBiTutorials/automacao-dados-financeiros-sub008/internal/infrastructure/storage"
)

// Server is the read-only HTTP API server
type Server struct {
	cfg        config.APIConfig
	router     *gin.Engine
	httpServer *http.Server
	repo       storage.Repository
	logger     *slog.Logger
}

// NewServer creates the API server and wires its routes
func NewServer(cfg config.APIConfig, repo storage.Repository, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health"},
	}))

	// cors.New panics when no origin policy is set at all
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	s := &Server{
		cfg:    cfg,
		router: router,
		repo:   repo,
		logger: logger,
	}

	router.GET("/health", s.getHealth)

	api := router.Group("/api")
	{
		api.GET("/stats", s.getStats)
		api.GET("/runs", s.getRuns)
		api.GET("/unmatched", s.getUnmatched)
		api.GET("/corrections", s.getCorrections)
		api.GET("/transactions/:id", s.getTransaction)
	}

	return s
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.repo.GetStats(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to fetch stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) getRuns(c *gin.Context) {
	limit := intQuery(c, "limit", 20)
	runs, err := s.repo.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("failed to fetch runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch runs"})
		return
	}
	if runs == nil {
		runs = []storage.ReconRun{}
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) getUnmatched(c *gin.Context) {
	source := c.Query("source")
	limit := intQuery(c, "limit", 100)

	transactions, err := s.repo.ListTransactions(c.Request.Context(), source, true)
	if err != nil {
		s.logger.Error("failed to fetch unmatched transactions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch unmatched transactions"})
		return
	}
	if len(transactions) > limit {
		transactions = transactions[:limit]
	}
	c.JSON(http.StatusOK, gin.H{
		"count":        len(transactions),
		"transactions": transactions,
	})
}

func (s *Server) getCorrections(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	corrections, err := s.repo.ListCorrections(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("failed to fetch corrections", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch corrections"})
		return
	}
	if corrections == nil {
		corrections = []storage.Correction{}
	}
	c.JSON(http.StatusOK, corrections)
}

func (s *Server) getTransaction(c *gin.Context) {
	tx, err := s.repo.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("failed to fetch transaction", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch transaction"})
		return
	}
	if tx == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	c.JSON(http.StatusOK, tx)
}

// Start blocks serving HTTP until the server is shut down
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin engine for tests
func (s *Server) Router() http.Handler {
	return s.router
}

func intQuery(c *gin.Context, name string, defaultVal int) int {
	val := c.Query(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}
