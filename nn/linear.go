package nn

import (
	"fmt"
	"math"

	"github.com/fumitoshi0524/mcdropout/tensor"
)

type Linear struct {
	BaseLayer
	inFeatures  int
	outFeatures int
	weight      *tensor.Tensor
	bias        *tensor.Tensor
}

// NewLinear creates a fully connected layer with Glorot-scaled normal
// initialisation.
func NewLinear(inFeatures, outFeatures int, withBias bool, opts ...Option) *Linear {
	o := buildOptions("linear", opts)
	scale := math.Sqrt(2.0 / float64(inFeatures+outFeatures))
	w := tensor.Randn(outFeatures, inFeatures)
	w.Scale(scale)
	w.SetRequiresGrad(o.trainable)
	var b *tensor.Tensor
	if withBias {
		b = tensor.Zeros(outFeatures)
		b.SetRequiresGrad(o.trainable)
	}
	return &Linear{
		BaseLayer:   o.base(),
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      w,
		bias:        b,
	}
}

func LinearFromConfig(cfg Config) (*Linear, error) {
	in, err := requireInt(cfg, "in_features")
	if err != nil {
		return nil, fmt.Errorf("Linear: %w", err)
	}
	out, err := requireInt(cfg, "out_features")
	if err != nil {
		return nil, fmt.Errorf("Linear: %w", err)
	}
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("Linear: features must be positive, got %d -> %d", in, out)
	}
	useBias := true
	if v, ok := cfg["use_bias"].(bool); ok {
		useBias = v
	}
	opts, err := baseOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("Linear: %w", err)
	}
	return NewLinear(in, out, useBias, opts...), nil
}

func (l *Linear) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	x := input
	var err error
	switch input.Rank() {
	case 1:
		x, err = input.Reshape(1, input.Numel())
	case 2:
	default:
		x, err = tensor.Flatten(input)
	}
	if err != nil {
		return nil, err
	}
	wt, err := tensor.Transpose(l.weight)
	if err != nil {
		return nil, err
	}
	out, err := tensor.MatMul(x, wt)
	if err != nil {
		return nil, err
	}
	if l.bias == nil {
		return out, nil
	}
	return tensor.AddBias2D(out, l.bias)
}

func (l *Linear) Parameters() []*tensor.Tensor {
	params := []*tensor.Tensor{l.weight}
	if l.bias != nil {
		params = append(params, l.bias)
	}
	return params
}

func (l *Linear) ZeroGrad() {
	for _, p := range l.Parameters() {
		p.ZeroGrad()
	}
}

func (l *Linear) Weight() *tensor.Tensor { return l.weight }
func (l *Linear) Bias() *tensor.Tensor   { return l.bias }

func (l *Linear) ClassName() string { return "Linear" }

func (l *Linear) GetConfig() Config {
	cfg := l.BaseLayer.GetConfig()
	cfg["in_features"] = l.inFeatures
	cfg["out_features"] = l.outFeatures
	cfg["use_bias"] = l.bias != nil
	return cfg
}

func (l *Linear) StateDict(prefix string, state map[string]*tensor.Tensor) {
	if state == nil {
		return
	}
	state[joinPrefix(prefix, "weight")] = l.weight.Clone()
	if l.bias != nil {
		state[joinPrefix(prefix, "bias")] = l.bias.Clone()
	}
}

func (l *Linear) LoadState(prefix string, state map[string]*tensor.Tensor) error {
	if state == nil {
		return fmt.Errorf("state dict is nil")
	}
	targets := map[string]*tensor.Tensor{"weight": l.weight}
	if l.bias != nil {
		targets["bias"] = l.bias
	}
	for name, dst := range targets {
		key := joinPrefix(prefix, name)
		src, ok := state[key]
		if !ok {
			return fmt.Errorf("Linear missing %s", key)
		}
		if err := tensor.CopyInto(dst, src); err != nil {
			return fmt.Errorf("load %s: %w", key, err)
		}
	}
	return nil
}

func requireInt(cfg Config, key string) (int, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("config missing %s", key)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("config %s: %w", key, err)
	}
	return int(n), nil
}
