package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/fumitoshi0524/mcdropout/mc"
	"github.com/fumitoshi0524/mcdropout/nn"
	"github.com/fumitoshi0524/mcdropout/tensor"
)

func (s *Server) handleDropout(c *echo.Context) error {
	req, err := decodeJSON[DropoutRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	input, err := inputTensor(req.Input, req.Shape)
	if err != nil {
		return writeFailure(c, err)
	}
	opts := []nn.Option{}
	if req.NoiseShape != nil {
		opts = append(opts, nn.WithNoiseShape(req.NoiseShape))
	}
	if req.Seed != nil {
		opts = append(opts, nn.WithSeed(*req.Seed))
	}
	layer := nn.NewAlwaysOnDropout(req.Rate, opts...)
	training := req.Training != nil && *req.Training
	out, err := layer.ForwardMode(input, training)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	resp := DropoutResponse{
		ID:      newRequestID("drop"),
		Created: s.clock().Unix(),
		Output:  out.Data(),
		Shape:   out.Shape(),
		Config:  layer.GetConfig(),
	}
	s.log.Debug("dropout applied", "id", resp.ID, "rate", layer.Rate(), "elements", out.Numel())
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePredict(c *echo.Context) error {
	if s.model == nil {
		return writeNotFound(c, "no model loaded")
	}
	req, err := decodeJSON[PredictRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	input, err := inputTensor(req.Input, req.Shape)
	if err != nil {
		return writeFailure(c, err)
	}
	samples := s.samples
	if req.Samples != nil {
		samples = *req.Samples
		if samples == 0 {
			return writeBadRequest(c, mc.ErrNoSamples.Error())
		}
	}

	id := newRequestID("pred")
	est, err := mc.Predict(c.Request().Context(), s.model, input, mc.Options{
		Samples: samples,
		Logger:  s.log.With("id", id),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return writeError(c, http.StatusServiceUnavailable, "server_error", err.Error())
		}
		return writeBadRequest(c, err.Error())
	}
	return c.JSON(http.StatusOK, PredictResponse{
		ID:       id,
		Created:  s.clock().Unix(),
		Model:    s.model.Name(),
		Mean:     est.Mean.Data(),
		Variance: est.Variance.Data(),
		StdDev:   est.StdDev.Data(),
		Shape:    est.Mean.Shape(),
		Samples:  est.Samples,
	})
}

// inputTensor builds the request tensor; a missing shape means a 1-D input.
func inputTensor(data []float64, shape []int) (*tensor.Tensor, error) {
	if len(data) == 0 {
		return nil, newInvalidRequest("input is required")
	}
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	t, err := tensor.New(data, shape...)
	if err != nil {
		return nil, newInvalidRequest(err.Error())
	}
	return t, nil
}
