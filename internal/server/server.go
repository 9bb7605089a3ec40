// Package server exposes the advice and prediction endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/pathfinder/internal/ai"
	"github.com/spigell/pathfinder/internal/scoring"
)

const (
	defaultAddress     = ":5000"
	shutdownTimeout    = 10 * time.Second
	readHeaderTimeout  = 10 * time.Second
	StatusMessage      = "PathFinder AI Backend is running"
	requestIDHeader    = "X-Request-ID"
	requestLoggerKey   = "pathfinder.logger"
	requestIDKey       = "pathfinder.request_id"
	internalErrMessage = "internal server error"
)

var errAdvisorMissing = errors.New("advisor is not configured")

// Config controls the listener and cross-origin policy.
type Config struct {
	Address      string        `mapstructure:"address"`
	CORSOrigins  []string      `mapstructure:"cors-origins"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
}

// Predictor ranks careers for a set of marks.
type Predictor interface {
	Score(ctx context.Context, marks []float64, allMarks scoring.Marks) ([]scoring.Result, error)
}

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Predictor Predictor
	Advisor   ai.Advisor
	Logger    *zap.Logger
}

// Server is the HTTP front of the backend.
type Server struct {
	config Config
	deps   Deps
	engine *gin.Engine
}

// New wires the routes. Deps.Advisor may be nil, in which case /chat reports
// the provider as unavailable.
func New(cfg Config, deps Deps) *Server {
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &Server{config: cfg, deps: deps}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(
		requestID(s.deps.Logger),
		recovery(),
		accessLog(),
		corsPolicy(s.config.CORSOrigins),
	)

	r.GET("/", s.home)
	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/chat", s.chat)
	r.POST("/predict", s.predict)

	return r
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("starting http server", zap.String("address", s.config.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", s.config.Address, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.deps.Logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
