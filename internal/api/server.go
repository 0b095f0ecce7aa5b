package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/fumitoshi0524/mcdropout/internal/logger"
	"github.com/fumitoshi0524/mcdropout/mc"
	"github.com/fumitoshi0524/mcdropout/nn"
)

type Config struct {
	// Model serves /v1/predict and /v1/model. It may be nil.
	Model   *nn.Sequential
	Samples int
	Logger  logger.Logger
}

type Server struct {
	model   *nn.Sequential
	arch    *nn.Architecture
	samples int
	log     logger.Logger
	clock   func() time.Time
}

// NewServer switches the model to inference mode so only always-on dropout
// layers sample during prediction.
func NewServer(cfg Config) (*Server, error) {
	s := &Server{
		model:   cfg.Model,
		samples: cfg.Samples,
		log:     cfg.Logger,
		clock:   time.Now,
	}
	if s.samples <= 0 {
		s.samples = mc.DefaultSamples
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.model != nil {
		arch, err := s.model.Architecture()
		if err != nil {
			return nil, fmt.Errorf("api: describe model: %w", err)
		}
		s.arch = &arch
		nn.SetTraining(s.model, false)
	}
	return s, nil
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/model", s.handleModel)
	e.POST("/v1/dropout", s.handleDropout)
	e.POST("/v1/predict", s.handlePredict)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":       "ok",
		"model_loaded": s.model != nil,
	})
}

func (s *Server) handleModel(c *echo.Context) error {
	if s.arch == nil {
		return writeNotFound(c, "no model loaded")
	}
	return c.JSON(http.StatusOK, s.arch)
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func newRequestID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
