package nn

import (
	"fmt"

	"github.com/fumitoshi0524/mcdropout/tensor"
)

// Dropout is the standard operator: it masks while training and is the
// identity after Eval.
type Dropout struct {
	BaseLayer
	params dropoutParams
}

func NewDropout(p float64, opts ...Option) *Dropout {
	o := buildOptions("dropout", opts)
	return &Dropout{BaseLayer: o.base(), params: newDropoutParams(p, o)}
}

func DropoutFromConfig(cfg Config) (*Dropout, error) {
	rate, opts, err := dropoutFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("Dropout: %w", err)
	}
	return NewDropout(rate, opts...), nil
}

func (d *Dropout) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	return d.ForwardMode(input, d.Training())
}

func (d *Dropout) ForwardMode(input *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	if !training {
		return input, nil
	}
	return d.params.apply(input)
}

func (d *Dropout) Rate() float64 { return d.params.rate }

func (d *Dropout) ClassName() string { return "Dropout" }

func (d *Dropout) GetConfig() Config {
	return d.params.exportTo(d.BaseLayer.GetConfig())
}

func (d *Dropout) Parameters() []*tensor.Tensor { return nil }

func (d *Dropout) ZeroGrad() {}
