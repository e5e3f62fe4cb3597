package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docchat/internal/logger"
)

// maxBodyBytes bounds request bodies; chunk batches with embeddings are large.
const maxBodyBytes = 32 << 20

// Server is the HTTP API for docchat.
type Server struct {
	ports   *Ports
	version string
	engine  *gin.Engine
}

// NewServer creates a new HTTP server with the given ports.
func NewServer(ports *Ports, version string) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		gin.LoggerWithWriter(logger.Writer()),
		gin.RecoveryWithWriter(logger.Writer()),
		limitBody(maxBodyBytes),
	)

	s := &Server{
		ports:   ports,
		version: version,
		engine:  engine,
	}
	s.registerRoutes()

	return s, nil
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves the API on addr until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("HTTP API listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.POST("/search", s.handleSearch)

	docs := s.engine.Group("/documents")
	docs.GET("", s.handleListDocuments)
	docs.POST("", s.handleSaveDocument)
	docs.GET("/:id", s.handleGetDocument)
	docs.DELETE("/:id", s.handleDeleteDocument)
	docs.GET("/:id/content", s.handleGetContent)
	docs.GET("/:id/chunks", s.handleListChunks)
	docs.POST("/:id/chunks", s.handleAddChunks)

	chunks := s.engine.Group("/chunks")
	chunks.GET("/:id", s.handleGetChunk)
	chunks.PUT("/:id", s.handleUpdateChunk)
	chunks.DELETE("/:id", s.handleDeleteChunk)

	index := s.engine.Group("/index")
	index.GET("/status", s.handleIndexStatus)
	index.POST("/backfill", s.handleBackfill)
	index.POST("/rebuild", s.handleRebuild)
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
