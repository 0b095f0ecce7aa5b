package tensor

import (
	"fmt"

	"github.com/fumitoshi0524/mcdropout/internal/parallel"
)

func Add(a, b *Tensor) (*Tensor, error) {
	if err := ensureSameShape(a, b); err != nil {
		return nil, err
	}
	out := elementwise(a, b, func(x, y float64) float64 { return x + y })
	binary(out, a, b, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		if a.requiresGrad {
			accumulate(grads, a, grad)
		}
		if b.requiresGrad {
			accumulate(grads, b, grad)
		}
	})
	return out, nil
}

func Mul(a, b *Tensor) (*Tensor, error) {
	if err := ensureSameShape(a, b); err != nil {
		return nil, err
	}
	out := elementwise(a, b, func(x, y float64) float64 { return x * y })
	binary(out, a, b, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		if a.requiresGrad {
			accumulate(grads, a, hadamard(grad, b))
		}
		if b.requiresGrad {
			accumulate(grads, b, hadamard(grad, a))
		}
	})
	return out, nil
}

func MulScalar(a *Tensor, value float64) *Tensor {
	out := a.Clone()
	out.Scale(value)
	unary(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		scaled := grad.Clone()
		scaled.Scale(value)
		accumulate(grads, a, scaled)
	})
	return out
}

// Scale multiplies every element in place. It is not recorded on the tape.
func (t *Tensor) Scale(v float64) {
	parallel.For(len(t.data), func(start, end int) {
		for i := start; i < end; i++ {
			t.data[i] *= v
		}
	})
}

func Sum(a *Tensor) *Tensor {
	total := 0.0
	for _, v := range a.data {
		total += v
	}
	out := Full(total, 1)
	unary(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		accumulate(grads, a, Full(grad.data[0], a.shape...))
	})
	return out
}

func Mean(a *Tensor) *Tensor {
	scale := 1.0 / float64(a.Numel())
	total := 0.0
	for _, v := range a.data {
		total += v
	}
	out := Full(total*scale, 1)
	unary(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		accumulate(grads, a, Full(grad.data[0]*scale, a.shape...))
	})
	return out
}

// identity returns a copy of in that passes gradients straight through.
func identity(in *Tensor) *Tensor {
	out := in.Clone()
	unary(out, in, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		accumulate(grads, in, grad)
	})
	return out
}

func elementwise(a, b *Tensor, fn func(x, y float64) float64) *Tensor {
	out := Zeros(a.shape...)
	parallel.For(len(out.data), func(start, end int) {
		for i := start; i < end; i++ {
			out.data[i] = fn(a.data[i], b.data[i])
		}
	})
	return out
}

func hadamard(a, b *Tensor) *Tensor {
	return elementwise(a, b, func(x, y float64) float64 { return x * y })
}

func ensureSameShape(a, b *Tensor) error {
	if a == nil || b == nil {
		return fmt.Errorf("nil tensor operand")
	}
	if !sameShape(a.shape, b.shape) {
		return fmt.Errorf("shape mismatch: %v vs %v", a.shape, b.shape)
	}
	return nil
}
