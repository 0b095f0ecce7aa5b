package nn

import "github.com/fumitoshi0524/mcdropout/tensor"

type ReLU struct {
	BaseLayer
}

func Relu(opts ...Option) *ReLU {
	o := buildOptions("relu", opts)
	return &ReLU{BaseLayer: o.base()}
}

func (r *ReLU) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.Relu(input), nil
}

func (r *ReLU) Parameters() []*tensor.Tensor { return nil }

func (r *ReLU) ZeroGrad() {}

func (r *ReLU) ClassName() string { return "ReLU" }
