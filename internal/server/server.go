// Package server exposes the evaluation pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/resumatch/internal/notify"
	"github.com/spigell/resumatch/internal/pipeline"
)

const (
	defaultThreshold     = pipeline.DefaultThreshold
	defaultMaxUploadSize = 32 << 20
	shutdownTimeout      = 15 * time.Second
)

// Runner is the part of the pipeline the handlers depend on.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	RunBatch(ctx context.Context, reqs []pipeline.Request, concurrency int) []pipeline.Item
}

// Notifier is optional. Without it /api/send-emails answers 503.
type Notifier interface {
	Notify(ctx context.Context, candidates []notify.Candidate, jobDescription string) notify.Summary
}

type Deps struct {
	Runner   Runner
	Notifier Notifier
	Logger   *zap.Logger
}

type Config struct {
	Listen           string
	BatchConcurrency int
	Threshold        float64
	UploadDir        string

	// MaxUploadSize caps the request body of the upload routes.
	MaxUploadSize int64
}

type Server struct {
	deps   Deps
	cfg    Config
	engine *gin.Engine
}

func New(deps Deps, cfg Config) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = 1
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = defaultMaxUploadSize
	}

	s := &Server{deps: deps, cfg: cfg}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.cfg.MaxUploadSize

	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger(s.deps.Logger))

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	api.POST("/evaluate", s.evaluate)
	api.POST("/evaluate-multiple", s.evaluateMultiple)
	api.POST("/send-emails", s.sendEmails)

	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("http server started", zap.String("listen", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.deps.Logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
