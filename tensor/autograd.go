package tensor

import (
	"errors"

	"github.com/fumitoshi0524/mcdropout/internal/parallel"
)

// Backward seeds the gradient of t with ones and propagates it through the
// recorded graph, accumulating into every tensor that requires grad.
func (t *Tensor) Backward() error {
	if t == nil {
		return errors.New("nil tensor")
	}
	if !t.requiresGrad {
		return errors.New("tensor does not require grad")
	}
	order := topo(t)
	grads := map[*Tensor]*Tensor{t: Ones(t.shape...)}
	for i := len(order) - 1; i >= 0; i-- {
		current := order[i]
		grad := grads[current]
		if grad == nil {
			continue
		}
		if current.grad == nil {
			current.grad = grad.Clone()
		} else {
			addInPlace(current.grad, grad)
		}
		if current.node != nil {
			current.node.backward(grad, grads)
		}
	}
	return nil
}

func topo(root *Tensor) []*Tensor {
	visited := map[*Tensor]bool{}
	var order []*Tensor
	var visit func(*Tensor)
	visit = func(n *Tensor) {
		if n == nil || visited[n] {
			return
		}
		visited[n] = true
		for _, parent := range n.parents {
			visit(parent)
		}
		order = append(order, n)
	}
	visit(root)
	return order
}

func accumulate(grads map[*Tensor]*Tensor, target *Tensor, value *Tensor) {
	if target == nil || value == nil {
		return
	}
	if existing, ok := grads[target]; ok {
		addInPlace(existing, value)
		return
	}
	grads[target] = value.Clone()
}

func addInPlace(dst, src *Tensor) {
	if !sameShape(dst.shape, src.shape) {
		panic("addInPlace shape mismatch")
	}
	parallel.For(len(dst.data), func(start, end int) {
		for i := start; i < end; i++ {
			dst.data[i] += src.data[i]
		}
	})
}

// unary wires out as the result of a single-input op with the given backward.
func unary(out, in *Tensor, backward func(grad *Tensor, grads map[*Tensor]*Tensor)) {
	if !in.requiresGrad {
		return
	}
	out.requiresGrad = true
	out.parents = []*Tensor{in}
	out.node = &node{backward: backward}
}

// binary wires out as the result of a two-input op; parents that do not
// require grad are left off the tape.
func binary(out, a, b *Tensor, backward func(grad *Tensor, grads map[*Tensor]*Tensor)) {
	if !(a.requiresGrad || b.requiresGrad) {
		return
	}
	out.requiresGrad = true
	parents := make([]*Tensor, 0, 2)
	if a.requiresGrad {
		parents = append(parents, a)
	}
	if b.requiresGrad {
		parents = append(parents, b)
	}
	out.parents = parents
	out.node = &node{backward: backward}
}
