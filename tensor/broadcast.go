package tensor

import (
	"errors"
	"fmt"

	"github.com/fumitoshi0524/mcdropout/internal/parallel"
)

// BroadcastTo materialises t expanded to targetShape. Gradients are summed
// back down to t's shape.
func BroadcastTo(t *Tensor, targetShape []int) (*Tensor, error) {
	if _, err := numel(targetShape); err != nil {
		return nil, err
	}
	strides, err := broadcastStrides(t.shape, targetShape)
	if err != nil {
		return nil, err
	}
	out := Zeros(targetShape...)
	rank := len(targetShape)
	parallel.For(len(out.data), func(start, end int) {
		idx := make([]int, rank)
		rem := start
		for d := rank - 1; d >= 0; d-- {
			idx[d] = rem % targetShape[d]
			rem /= targetShape[d]
		}
		for i := start; i < end; i++ {
			offset := 0
			for d := 0; d < rank; d++ {
				offset += idx[d] * strides[d]
			}
			out.data[i] = t.data[offset]
			for d := rank - 1; d >= 0; d-- {
				idx[d]++
				if idx[d] < targetShape[d] {
					break
				}
				idx[d] = 0
			}
		}
	})
	srcShape := t.Shape()
	unary(out, t, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		reduced, err := ReduceToShape(grad, srcShape)
		if err != nil {
			panic(err)
		}
		accumulate(grads, t, reduced)
	})
	return out, nil
}

// MulBroadcast multiplies a by b, broadcasting b against a's shape.
func MulBroadcast(a, b *Tensor) (*Tensor, error) {
	if a == nil || b == nil {
		return nil, errors.New("MulBroadcast requires non-nil tensors")
	}
	if sameShape(a.shape, b.shape) {
		return Mul(a, b)
	}
	expanded, err := BroadcastTo(b, a.shape)
	if err != nil {
		return nil, fmt.Errorf("broadcast %v to %v: %w", b.shape, a.shape, err)
	}
	return Mul(a, expanded)
}

func broadcastStrides(srcShape, targetShape []int) ([]int, error) {
	srcRank := len(srcShape)
	tgtRank := len(targetShape)
	if tgtRank < srcRank {
		return nil, errors.New("target rank must be >= source rank")
	}
	srcStrides := makeStrides(srcShape)
	off := tgtRank - srcRank
	strides := make([]int, tgtRank)
	for i := tgtRank - 1; i >= off; i-- {
		srcDim := srcShape[i-off]
		switch {
		case srcDim == targetShape[i]:
			strides[i] = srcStrides[i-off]
		case srcDim == 1:
			strides[i] = 0
		default:
			return nil, fmt.Errorf("incompatible broadcast dimension %d: %d vs %d", i, srcDim, targetShape[i])
		}
	}
	return strides, nil
}

// ReduceToShape sums grad over the axes that were broadcast to reach its
// shape from targetShape.
func ReduceToShape(grad *Tensor, targetShape []int) (*Tensor, error) {
	tgt := append([]int(nil), targetShape...)
	if len(tgt) == 0 {
		tgt = []int{1}
	}
	if len(tgt) > len(grad.shape) {
		return nil, errors.New("target rank greater than grad rank")
	}
	out := grad
	diff := len(out.shape) - len(tgt)
	for axis := 0; axis < len(out.shape); axis++ {
		tgtDim := 1
		if axis >= diff {
			tgtDim = tgt[axis-diff]
		}
		if out.shape[axis] == tgtDim {
			continue
		}
		if tgtDim != 1 {
			return nil, errors.New("cannot reduce to target shape")
		}
		out = reduceAxis(out, axis)
	}
	if !sameShape(out.shape, tgt) {
		out = &Tensor{data: out.data, shape: tgt, strides: makeStrides(tgt)}
	}
	return out, nil
}

func reduceAxis(t *Tensor, axis int) *Tensor {
	shape := t.Shape()
	axisSize := shape[axis]
	shape[axis] = 1
	out := Zeros(shape...)
	outer := 1
	for i := 0; i < axis; i++ {
		outer *= t.shape[i]
	}
	inner := t.strides[axis]
	parallel.For(outer, func(start, end int) {
		for o := start; o < end; o++ {
			dst := o * inner
			src := o * axisSize * inner
			for k := 0; k < axisSize; k++ {
				row := src + k*inner
				for j := 0; j < inner; j++ {
					out.data[dst+j] += t.data[row+j]
				}
			}
		}
	})
	return out
}
