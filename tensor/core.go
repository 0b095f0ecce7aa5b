package tensor

import (
	"errors"
	"fmt"
)

// Tensor is a dense, row-major float64 array with an optional gradient tape.
type Tensor struct {
	data         []float64
	shape        []int
	strides      []int
	grad         *Tensor
	requiresGrad bool
	node         *node
	parents      []*Tensor
}

type node struct {
	backward func(grad *Tensor, grads map[*Tensor]*Tensor)
}

func New(data []float64, shape ...int) (*Tensor, error) {
	total, err := numel(shape)
	if err != nil {
		return nil, err
	}
	if total != len(data) {
		return nil, fmt.Errorf("data and shape mismatch: %d values for shape %v", len(data), shape)
	}
	return &Tensor{
		data:    append([]float64(nil), data...),
		shape:   append([]int(nil), shape...),
		strides: makeStrides(shape),
	}, nil
}

func MustNew(data []float64, shape ...int) *Tensor {
	t, err := New(data, shape...)
	if err != nil {
		panic(err)
	}
	return t
}

func Zeros(shape ...int) *Tensor {
	return Full(0, shape...)
}

func Ones(shape ...int) *Tensor {
	return Full(1, shape...)
}

func Full(value float64, shape ...int) *Tensor {
	total, err := numel(shape)
	if err != nil {
		panic(err)
	}
	data := make([]float64, total)
	if value != 0 {
		for i := range data {
			data[i] = value
		}
	}
	return &Tensor{
		data:    data,
		shape:   append([]int(nil), shape...),
		strides: makeStrides(shape),
	}
}

func (t *Tensor) Clone() *Tensor {
	if t == nil {
		return nil
	}
	return &Tensor{
		data:    append([]float64(nil), t.data...),
		shape:   append([]int(nil), t.shape...),
		strides: append([]int(nil), t.strides...),
	}
}

func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

func (t *Tensor) Rank() int {
	return len(t.shape)
}

func (t *Tensor) Numel() int {
	return len(t.data)
}

func (t *Tensor) Data() []float64 {
	return append([]float64(nil), t.data...)
}

// SetData overwrites the tensor's values. The slice must hold Numel() values.
func (t *Tensor) SetData(values []float64) error {
	if len(values) != len(t.data) {
		return errors.New("SetData expects matching element count")
	}
	copy(t.data, values)
	return nil
}

func (t *Tensor) SetRequiresGrad(v bool) {
	t.requiresGrad = v
}

func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

func (t *Tensor) Grad() *Tensor {
	if t.grad == nil {
		return nil
	}
	return t.grad.Clone()
}

func (t *Tensor) ZeroGrad() {
	t.grad = nil
}

func (t *Tensor) Detach() *Tensor {
	return t.Clone()
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, data=%v)", t.shape, t.data)
}

// Equal reports whether a and b have the same shape and identical values.
func Equal(a, b *Tensor) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !sameShape(a.shape, b.shape) {
		return false
	}
	for i, v := range a.data {
		if b.data[i] != v {
			return false
		}
	}
	return true
}

// CopyInto copies the contents of src into dst; shapes must match.
func CopyInto(dst, src *Tensor) error {
	if dst == nil || src == nil {
		return errors.New("CopyInto requires non-nil tensors")
	}
	if !sameShape(dst.shape, src.shape) {
		return fmt.Errorf("CopyInto shape mismatch: %v vs %v", dst.shape, src.shape)
	}
	copy(dst.data, src.data)
	return nil
}

func numel(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, errors.New("shape is required")
	}
	total := 1
	for _, dim := range shape {
		if dim <= 0 {
			return 0, fmt.Errorf("invalid shape %v", shape)
		}
		total *= dim
	}
	return total, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i, dim := range a {
		if dim != b[i] {
			return false
		}
	}
	return true
}

func makeStrides(shape []int) []int {
	if len(shape) == 0 {
		return nil
	}
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}
