// Package dataserver exposes a Coordinator over the HTTP query protocol used by
// browser based plotting clients.
package dataserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	mosaic "github.com/scopedb/mosaic-go"
)

// ArrowStreamMediaType is the content type of Arrow IPC stream responses.
const ArrowStreamMediaType = "application/vnd.apache.arrow.stream"

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Type string `json:"type"`
	SQL  string `json:"sql"`
}

// Dependencies are injected into the router.
type Dependencies struct {
	Coordinator *mosaic.Coordinator
	Gatherer    prometheus.Gatherer
	Logger      *zap.Logger
}

// New creates the gin router serving the query protocol.
func New(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(gin.Recovery(), accessLog(deps.Logger))
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.POST("/query", queryHandler(deps.Coordinator))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	return router
}

func queryHandler(coord *mosaic.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		kind, err := mosaic.ParseResultKind(req.Type)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := coord.Query(c.Request.Context(), req.SQL, kind)
		if err != nil {
			c.JSON(statusOf(err), gin.H{"error": err.Error()})
			return
		}
		defer result.Release()

		switch kind {
		case mosaic.ResultKindExec:
			c.JSON(http.StatusOK, gin.H{})
		case mosaic.ResultKindJSON:
			rows := result.Rows
			if rows == nil {
				rows = []mosaic.Row{}
			}
			c.JSON(http.StatusOK, rows)
		case mosaic.ResultKindArrow:
			data, err := mosaic.EncodeTable(result.Table)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.Data(http.StatusOK, ArrowStreamMediaType, data)
		}
	}
}

func statusOf(err error) int {
	var (
		unsupportedErr *mosaic.UnsupportedOperationError
		timeoutErr     *mosaic.TimeoutError
		transportErr   *mosaic.TransportError
	)
	switch {
	case errors.Is(err, mosaic.ErrNoConnector):
		return http.StatusServiceUnavailable
	case errors.Is(err, mosaic.ErrEmptyStatement), errors.As(err, &unsupportedErr):
		return http.StatusBadRequest
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Server serves the router until it is shut down.
type Server struct {
	http   *http.Server
	logger *zap.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           New(deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is done, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("data server listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
