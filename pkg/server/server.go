// Package server exposes the local conversion engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/clipforge/pkg/adapters/remoteconvert"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

// Options configures the conversion service.
type Options struct {
	Listen         string
	MaxUploadBytes int64
	AllowOrigins   []string
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Listen:         ":3001",
		MaxUploadBytes: 500 << 20,
		AllowOrigins:   []string{"*"},
	}
}

// Server serves POST /api/convert-webm-to-mp4, GET /health and GET /metrics.
type Server struct {
	convert pipeline.Stage[pipeline.ConvertInput, pipeline.ConvertResult]
	opts    Options
	logger  ports.Logger
	router  *gin.Engine
}

// New creates a new Server backed by the given conversion stage.
func New(convert pipeline.Stage[pipeline.ConvertInput, pipeline.ConvertResult], opts Options, logger ports.Logger) *Server {
	s := &Server{
		convert: convert,
		opts:    opts,
		logger:  logger.WithComponent("server"),
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Metrics(DefaultMetricsConfig()))
	r.Use(s.cors())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST(remoteconvert.ConvertPath, s.handleConvert)
	return r
}

// cors answers with "*" when any origin is allowed, otherwise it echoes a
// listed request Origin and omits the header for the rest.
func (s *Server) cors() gin.HandlerFunc {
	allowed := make(map[string]bool, len(s.opts.AllowOrigins))
	anyOrigin := len(s.opts.AllowOrigins) == 0
	for _, o := range s.opts.AllowOrigins {
		if o == "*" {
			anyOrigin = true
		}
		allowed[o] = true
	}
	return func(c *gin.Context) {
		if anyOrigin {
			c.Header("Access-Control-Allow-Origin", "*")
		} else {
			c.Header("Vary", "Origin")
			if origin := c.GetHeader("Origin"); allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Conversion service listening on %s", s.opts.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down conversion service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
