// Package mc estimates predictive uncertainty by sampling a model that
// contains always-on dropout layers.
package mc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/fumitoshi0524/mcdropout/internal/logger"
	"github.com/fumitoshi0524/mcdropout/internal/parallel"
	"github.com/fumitoshi0524/mcdropout/nn"
	"github.com/fumitoshi0524/mcdropout/tensor"
)

const DefaultSamples = 30

var ErrNoSamples = errors.New("mc: samples must be positive")

type Options struct {
	// Samples is the number of forward passes; zero means DefaultSamples.
	Samples int
	Logger  logger.Logger
}

// Estimate holds per-element statistics over the sampled outputs. Variance
// is the unbiased sample variance and is zero for a single sample.
type Estimate struct {
	Mean     *tensor.Tensor
	Variance *tensor.Tensor
	StdDev   *tensor.Tensor
	Samples  int
}

// Predict runs model on input Samples times and summarises the outputs.
// Passes run concurrently, so model must tolerate concurrent Forward calls;
// the nn layers do. The model's mode is not changed: call nn.SetTraining(m,
// false) first so standard Dropout layers stay off and only AlwaysOnDropout
// layers sample.
func Predict(ctx context.Context, model nn.Module, input *tensor.Tensor, opts Options) (*Estimate, error) {
	if model == nil {
		return nil, errors.New("mc: nil model")
	}
	if input == nil {
		return nil, errors.New("mc: nil input")
	}
	samples := opts.Samples
	if samples == 0 {
		samples = DefaultSamples
	}
	if samples < 0 {
		return nil, ErrNoSamples
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	start := time.Now()
	outputs := make([]*tensor.Tensor, samples)
	err := parallel.Each(ctx, samples, func(i int) error {
		out, err := model.Forward(input)
		if err != nil {
			return fmt.Errorf("mc: sample %d: %w", i, err)
		}
		outputs[i] = out
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("mc: predict cancelled: %w", ctxErr)
		}
		return nil, err
	}

	shape := outputs[0].Shape()
	values := make([][]float64, samples)
	for i, out := range outputs {
		if !sameShape(out.Shape(), shape) {
			return nil, fmt.Errorf("mc: sample %d has shape %v, want %v", i, out.Shape(), shape)
		}
		values[i] = out.Data()
	}

	n := len(values[0])
	mean := make([]float64, n)
	variance := make([]float64, n)
	std := make([]float64, n)
	column := make([]float64, samples)
	for j := 0; j < n; j++ {
		for i := range values {
			column[i] = values[i][j]
		}
		if samples == 1 {
			mean[j] = column[0]
			continue
		}
		mean[j], variance[j] = stat.MeanVariance(column, nil)
		std[j] = math.Sqrt(variance[j])
	}

	est := &Estimate{
		Mean:     tensor.MustNew(mean, shape...),
		Variance: tensor.MustNew(variance, shape...),
		StdDev:   tensor.MustNew(std, shape...),
		Samples:  samples,
	}
	log.Debug("mc prediction finished",
		"samples", samples,
		"elements", n,
		"elapsed", time.Since(start),
		"max_stddev", maxOf(std),
	)
	return est, nil
}

// MeanStdDev returns the average of the per-element standard deviations, a
// scalar summary of how uncertain the prediction is.
func (e *Estimate) MeanStdDev() float64 {
	if e == nil || e.StdDev == nil {
		return 0
	}
	return stat.Mean(e.StdDev.Data(), nil)
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func maxOf(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}
