package tensor

import (
	"errors"
	"fmt"

	"github.com/fumitoshi0524/mcdropout/internal/parallel"
)

func MatMul(a, b *Tensor) (*Tensor, error) {
	if len(a.shape) != 2 || len(b.shape) != 2 {
		return nil, errors.New("matmul expects rank 2 tensors")
	}
	if a.shape[1] != b.shape[0] {
		return nil, fmt.Errorf("incompatible shapes for matmul: %v x %v", a.shape, b.shape)
	}
	out := matmul(a, b, false, false)
	binary(out, a, b, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		if a.requiresGrad {
			accumulate(grads, a, matmul(grad, b, false, true))
		}
		if b.requiresGrad {
			accumulate(grads, b, matmul(a, grad, true, false))
		}
	})
	return out, nil
}

func Transpose(a *Tensor) (*Tensor, error) {
	if len(a.shape) != 2 {
		return nil, errors.New("transpose expects rank 2 tensor")
	}
	rows, cols := a.shape[0], a.shape[1]
	out := Zeros(cols, rows)
	parallel.For(rows, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < cols; j++ {
				out.data[j*rows+i] = a.data[i*cols+j]
			}
		}
	})
	unary(out, a, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		back, _ := Transpose(grad)
		accumulate(grads, a, back)
	})
	return out, nil
}

// AddBias2D adds a rank-1 bias to every row of a rank-2 tensor.
func AddBias2D(a, bias *Tensor) (*Tensor, error) {
	if len(a.shape) != 2 || len(bias.shape) != 1 || a.shape[1] != bias.shape[0] {
		return nil, fmt.Errorf("AddBias2D shape mismatch: %v + %v", a.shape, bias.shape)
	}
	rows, cols := a.shape[0], a.shape[1]
	out := a.Clone()
	parallel.For(rows, func(start, end int) {
		for i := start; i < end; i++ {
			row := out.data[i*cols : (i+1)*cols]
			for j := range row {
				row[j] += bias.data[j]
			}
		}
	})
	binary(out, a, bias, func(grad *Tensor, grads map[*Tensor]*Tensor) {
		if a.requiresGrad {
			accumulate(grads, a, grad)
		}
		if bias.requiresGrad {
			reduced, err := ReduceToShape(grad, bias.shape)
			if err != nil {
				panic(err)
			}
			accumulate(grads, bias, reduced)
		}
	})
	return out, nil
}

func matmul(a, b *Tensor, transA, transB bool) *Tensor {
	aRows, aCols := dims2D(a, transA)
	_, bCols := dims2D(b, transB)
	out := Zeros(aRows, bCols)
	parallel.For(aRows, func(start, end int) {
		for i := start; i < end; i++ {
			for k := 0; k < aCols; k++ {
				aik := at2D(a, i, k, transA)
				for j := 0; j < bCols; j++ {
					out.data[i*bCols+j] += aik * at2D(b, k, j, transB)
				}
			}
		}
	})
	return out
}

func dims2D(t *Tensor, trans bool) (int, int) {
	if trans {
		return t.shape[1], t.shape[0]
	}
	return t.shape[0], t.shape[1]
}

func at2D(t *Tensor, row, col int, trans bool) float64 {
	if trans {
		return t.data[col*t.shape[1]+row]
	}
	return t.data[row*t.shape[1]+col]
}
