package tensor

import (
	"errors"

	"github.com/fumitoshi0524/mcdropout/internal/parallel"
)

// Reshape returns a tensor sharing t's values under a new shape. A single -1
// dimension is inferred.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	if len(shape) == 0 {
		return nil, errors.New("reshape shape required")
	}
	shape = append([]int(nil), shape...)
	prod, infer := 1, -1
	for i, dim := range shape {
		switch {
		case dim == -1 && infer == -1:
			infer = i
		case dim == -1:
			return nil, errors.New("multiple inferred dimensions")
		case dim <= 0:
			return nil, errors.New("invalid reshape dimension")
		default:
			prod *= dim
		}
	}
	if infer != -1 {
		if t.Numel()%prod != 0 {
			return nil, errors.New("cannot infer dimension")
		}
		shape[infer] = t.Numel() / prod
		prod = t.Numel()
	}
	if prod != t.Numel() {
		return nil, errors.New("reshape size mismatch")
	}
	out := &Tensor{data: t.data, shape: shape, strides: makeStrides(shape)}
	srcShape := t.Shape()
	unary(out, t, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		back := grad.Clone()
		back.shape = srcShape
		back.strides = makeStrides(srcShape)
		accumulate(grads, t, back)
	})
	return out, nil
}

// Flatten collapses every axis after the first into one.
func Flatten(a *Tensor) (*Tensor, error) {
	if len(a.shape) < 2 {
		return a.Reshape(a.Numel())
	}
	return a.Reshape(a.shape[0], -1)
}

func Relu(a *Tensor) *Tensor {
	out := Zeros(a.shape...)
	parallel.For(len(out.data), func(start, end int) {
		for i := start; i < end; i++ {
			if v := a.data[i]; v > 0 {
				out.data[i] = v
			}
		}
	})
	unary(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		g := Zeros(a.shape...)
		for i, v := range out.data {
			if v > 0 {
				g.data[i] = grad.data[i]
			}
		}
		accumulate(grads, a, g)
	})
	return out
}
