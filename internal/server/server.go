// Package server exposes the search engine over HTTP with gin. The surface
// is intentionally small: one search endpoint, a health check, and a metrics
// snapshot for operators.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Hino9LLC/newsearch/internal/errors"
	"github.com/Hino9LLC/newsearch/internal/search"
	"github.com/Hino9LLC/newsearch/internal/store"
	"github.com/Hino9LLC/newsearch/internal/telemetry"
)

// Config holds the HTTP server settings.
type Config struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
}

// Server wires the search engine to an HTTP listener.
type Server struct {
	engine  *search.Engine
	store   store.ContentStore
	index   store.VectorIndex
	metrics *telemetry.Metrics
	logger  *slog.Logger
	config  Config
	http    *http.Server
}

// New creates a server. metrics may be nil; the metrics endpoint then
// returns an empty snapshot.
func New(engine *search.Engine, cs store.ContentStore, index store.VectorIndex, metrics *telemetry.Metrics, logger *slog.Logger, cfg Config) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Server{
		engine:  engine,
		store:   cs,
		index:   index,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
	}
}

// Router builds the gin engine with middleware and routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(RequestID(), RequestLogger(s.logger), gin.Recovery())

	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/search", s.handleSearch)
		v1.GET("/metrics", s.handleMetrics)
	}
	return r
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	return s.http.Shutdown(shutdownCtx)
}

// searchResponse is the wire shape of a search reply.
type searchResponse struct {
	Query string `json:"query"`
	*search.ResultPage
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	strategy := c.Query("type")
	if strategy == "" {
		strategy = c.Query("strategy")
	}

	req := search.Request{
		Query:     query,
		Strategy:  search.NormalizeStrategy(strategy),
		Page:      atoiDefault(c.Query("page"), 1),
		PageSize:  atoiDefault(c.Query("page_size"), 0),
		ClientKey: c.ClientIP(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	page, err := s.engine.Search(ctx, req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, searchResponse{Query: query, ResultPage: page})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	eligible, err := s.store.CountEligible(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"eligible": eligible,
		"indexed":  s.index.Count(),
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	if s.metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

// writeError maps engine errors to HTTP status codes. Internal detail stays
// in the logs; the response body carries the code and a short message.
func (s *Server) writeError(c *gin.Context, err error) {
	requestID := c.GetString("request_id")

	switch {
	case errors.Is(err, errors.ErrRateLimited):
		var se *errors.SearchError
		if errors.As(err, &se) && se.RetryAfterSeconds > 0 {
			c.Header("Retry-After", strconv.Itoa(se.RetryAfterSeconds))
		}
		c.JSON(http.StatusTooManyRequests, gin.H{"code": errors.GetCode(err), "error": "rate limit exceeded"})

	case errors.Is(err, errors.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"code": errors.GetCode(err), "error": "search timed out"})

	case errors.Is(err, errors.ErrStorageUnavailable):
		s.logger.Error("search failed", "request_id", requestID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": errors.GetCode(err), "error": "search unavailable"})

	default:
		s.logger.Error("search failed", "request_id", requestID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": errors.GetCode(err), "error": "internal error"})
	}
}

// atoiDefault parses s, falling back to def on anything malformed.
func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
