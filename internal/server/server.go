// Package server exposes the StoryForge stages over HTTP. Handlers only
// decode requests and call stages; all generation behaviour lives below.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Yates-Labs/storyforge/internal/intake"
	"github.com/Yates-Labs/storyforge/internal/orchestrator"
	"github.com/Yates-Labs/storyforge/internal/stage"
)

type Server struct {
	Echo *echo.Echo

	stages   *stage.Stages
	pipeline *orchestrator.Pipeline
	queue    *intake.Queue
	validate *validator.Validate
	logger   *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithPipeline enables POST /pipeline.
func WithPipeline(p *orchestrator.Pipeline) Option {
	return func(s *Server) { s.pipeline = p }
}

// WithQueue enables the /requests endpoints.
func WithQueue(q *intake.Queue) Option {
	return func(s *Server) { s.queue = q }
}

// WithLogger sets the logger used for requests and errors.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger.WithPrefix("server")
		}
	}
}

func New(stages *stage.Stages, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		Echo:     e,
		stages:   stages,
		validate: validator.New(),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.Echo.GET("/", s.handleGetRoot)

	s.Echo.POST("/generate", s.handlePostGenerate)
	s.Echo.POST("/generate-story-bible", s.handlePostStoryBible)
	s.Echo.POST("/generate_episode", s.handlePostEpisode)

	if s.pipeline != nil {
		s.Echo.POST("/pipeline", s.handlePostPipeline)
	}
	if s.queue != nil {
		s.Echo.POST("/requests", s.handlePostRequest)
		s.Echo.GET("/requests/:id", s.handleGetRequest)
	}
}

func (s *Server) Start(addr string) error {
	s.logger.Info("server listening", "addr", addr)
	err := s.Echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.Echo.Shutdown(ctx)
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "uri", c.Request().RequestURI, "err", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Success: false, Error: msg})
	}
	if err != nil {
		s.logger.Error("writing error response", "err", err)
	}
}
