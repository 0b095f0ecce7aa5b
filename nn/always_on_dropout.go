package nn

import (
	"fmt"
	"math"

	"github.com/fumitoshi0524/mcdropout/tensor"
)

// dropoutParams is the configuration shared by Dropout and AlwaysOnDropout.
type dropoutParams struct {
	rate       float64
	noiseShape NoiseShape
	seed       *int64
}

func newDropoutParams(rate float64, o options) dropoutParams {
	p := dropoutParams{rate: clampRate(rate), noiseShape: o.noiseShape.Clone()}
	if o.seed != nil {
		seed := *o.seed
		p.seed = &seed
	}
	return p
}

// clampRate forces rate into [0, 1]; NaN becomes 0.
func clampRate(rate float64) float64 {
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return math.Min(rate, 1)
}

// active reports whether masking happens at all. Rates of exactly 0 and
// exactly 1 both pass the input through unchanged.
func (p dropoutParams) active() bool {
	return p.rate > 0 && p.rate < 1
}

func (p dropoutParams) source() tensor.Source {
	if p.seed != nil {
		return tensor.NewSource(*p.seed)
	}
	return tensor.DefaultSource()
}

func (p dropoutParams) apply(input *tensor.Tensor) (*tensor.Tensor, error) {
	if !p.active() {
		return input, nil
	}
	var noise []int
	if p.noiseShape != nil && input != nil {
		noise = p.noiseShape.Resolve(input.Shape())
	}
	return tensor.DropoutWithNoise(input, p.rate, noise, p.source())
}

func (p dropoutParams) exportTo(cfg Config) Config {
	cfg["rate"] = p.rate
	cfg["noise_shape"] = p.noiseShape.configValue()
	if p.seed != nil {
		cfg["seed"] = *p.seed
	} else {
		cfg["seed"] = nil
	}
	return cfg
}

// dropoutFromConfig reads rate plus the options recorded by exportTo and the
// base layer.
func dropoutFromConfig(cfg Config) (float64, []Option, error) {
	raw, ok := cfg["rate"]
	if !ok {
		return 0, nil, fmt.Errorf("config missing rate")
	}
	rate, err := toFloat64(raw)
	if err != nil {
		return 0, nil, fmt.Errorf("config rate: %w", err)
	}
	opts, err := baseOptions(cfg)
	if err != nil {
		return 0, nil, err
	}
	shape, err := noiseShapeFromConfig(cfg["noise_shape"])
	if err != nil {
		return 0, nil, err
	}
	if shape != nil {
		opts = append(opts, WithNoiseShape(shape))
	}
	if v := cfg["seed"]; v != nil {
		seed, err := toInt64(v)
		if err != nil {
			return 0, nil, fmt.Errorf("config seed: %w", err)
		}
		opts = append(opts, WithSeed(seed))
	}
	return rate, opts, nil
}

// AlwaysOnDropout applies dropout in training and in inference alike. It is
// the building block for Monte Carlo dropout: repeated forward passes over
// the same input sample different masks.
//
// When a seed is configured every call draws from a fresh source with that
// seed, so equal inputs give equal outputs.
type AlwaysOnDropout struct {
	BaseLayer
	params dropoutParams
}

// NewAlwaysOnDropout builds the layer. rate is clamped into [0, 1].
func NewAlwaysOnDropout(rate float64, opts ...Option) *AlwaysOnDropout {
	o := buildOptions("always_on_dropout", opts)
	return &AlwaysOnDropout{
		BaseLayer: o.base(),
		params:    newDropoutParams(rate, o),
	}
}

// AlwaysOnDropoutFromConfig rebuilds a layer from the output of GetConfig.
func AlwaysOnDropoutFromConfig(cfg Config) (*AlwaysOnDropout, error) {
	rate, opts, err := dropoutFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("AlwaysOnDropout: %w", err)
	}
	return NewAlwaysOnDropout(rate, opts...), nil
}

func (d *AlwaysOnDropout) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	return d.ForwardMode(input, d.Training())
}

// ForwardMode accepts the training flag of the module calling convention and
// ignores it.
func (d *AlwaysOnDropout) ForwardMode(input *tensor.Tensor, _ bool) (*tensor.Tensor, error) {
	return d.params.apply(input)
}

// NoiseShapeFor returns the mask shape used for input, or nil for a mask
// matching input's own shape.
func (d *AlwaysOnDropout) NoiseShapeFor(input *tensor.Tensor) []int {
	return d.params.noiseShape.Resolve(input.Shape())
}

func (d *AlwaysOnDropout) Rate() float64          { return d.params.rate }
func (d *AlwaysOnDropout) NoiseShape() NoiseShape { return d.params.noiseShape.Clone() }

func (d *AlwaysOnDropout) Seed() (int64, bool) {
	if d.params.seed == nil {
		return 0, false
	}
	return *d.params.seed, true
}

func (d *AlwaysOnDropout) SupportsMasking() bool { return true }

func (d *AlwaysOnDropout) ClassName() string { return "AlwaysOnDropout" }

func (d *AlwaysOnDropout) GetConfig() Config {
	return d.params.exportTo(d.BaseLayer.GetConfig())
}

func (d *AlwaysOnDropout) Parameters() []*tensor.Tensor { return nil }

func (d *AlwaysOnDropout) ZeroGrad() {}

func (d *AlwaysOnDropout) String() string {
	return fmt.Sprintf("AlwaysOnDropout(name=%s, rate=%g, noise_shape=%s)", d.Name(), d.params.rate, d.params.noiseShape)
}
